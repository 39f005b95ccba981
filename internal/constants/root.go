package constants

const (
	AppName            = "anchor"
	DefaultKeyringUser = "database-connection"
	DefaultLLMKeyUser  = "llm-api-key"
	DefaultConfigDir   = "~/.config/anchor"
	DefaultConfigPath  = "~/.config/anchor/anchor.db"
	DefaultUserID      = "local"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// MonthFormat is the month bucket format (YYYY-MM)
	MonthFormat = "2006-01"

	// YearFormat is the year bucket format (YYYY)
	YearFormat = "2006"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "anchor-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifierLockfileName   = "anchor-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.anchor"
	TrayAppExecutable      = "anchor-tray"
)
