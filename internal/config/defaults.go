package config

import (
	"time"

	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/llm"
)

const (
	DefaultConfigName = "config"
	DefaultConfigType = "yaml"
	EnvPrefix         = "ANCHOR"

	// DBConnectionEnv holds a PostgreSQL connection string; it is never read from the config file.
	DBConnectionEnv = "ANCHOR_DB_CONNECTION"
)

var (
	DefaultStorage = Storage{
		Path: constants.DefaultConfigPath,
	}

	DefaultLLM = LLM{
		Provider:          llm.ProviderAnthropic,
		Timeout:           60 * time.Second,
		MaxRetries:        3,
		RequestsPerMinute: 30,
	}

	DefaultPipeline = Pipeline{
		ObservationCap: constants.ObservationCap,
	}

	DefaultNotify = Notify{
		Enabled: false,
	}

	DefaultBackup = Backup{
		Auto: true,
	}
)
