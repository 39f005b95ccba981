package habits

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/anchor/internal/cli"
	"github.com/julianstephens/anchor/internal/logger"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/utils"
	"github.com/julianstephens/anchor/internal/validation"
)

// HabitImportCmd reads rows of "timestamp[,amount[,duration_min[,note]]]". A
// header row starting with "timestamp" is skipped, as is any row whose
// timestamp cannot be parsed.
type HabitImportCmd struct {
	Habit  string `arg:"" help:"Habit title or ID to import into."`
	File   string `arg:"" help:"CSV file to read." type:"existingfile"`
	DryRun bool   `help:"Parse and report without writing sessions." name:"dry-run"`
}

// ImportResult counts the outcome of an import.
type ImportResult struct {
	Imported int
	Skipped  int
}

func (c *HabitImportCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	habit, err := resolveHabit(ctx, c.Habit, false)
	if err != nil {
		return err
	}

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	sessions, skipped, err := ParseSessionsCSV(f, habit, ctx.Location())
	if err != nil {
		return err
	}

	res := ImportResult{Skipped: skipped}
	if !c.DryRun {
		for _, s := range sessions {
			if _, err := ctx.Store.AddHabitSession(s); err != nil {
				return fmt.Errorf("failed after importing %d sessions: %w", res.Imported, err)
			}
			res.Imported++
		}
	} else {
		res.Imported = len(sessions)
	}

	verb := "Imported"
	if c.DryRun {
		verb = "Would import"
	}
	ctx.Printf("%s %d sessions into %s", verb, res.Imported, habit.Title)
	if res.Skipped > 0 {
		ctx.Printf(" (%d rows skipped)", res.Skipped)
	}
	ctx.Println()
	return nil
}

// ParseSessionsCSV turns CSV rows into sessions for habit. Rows with an
// unreadable timestamp or invalid values are counted as skipped.
func ParseSessionsCSV(r io.Reader, habit models.Habit, loc *time.Location) ([]models.HabitSession, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var sessions []models.HabitSession
	skipped := 0
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read CSV: %w", err)
		}
		if first {
			first = false
			if len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "timestamp") {
				continue
			}
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}

		s, ok := parseRow(record, habit, loc)
		if !ok {
			skipped++
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, skipped, nil
}

func parseRow(record []string, habit models.Habit, loc *time.Location) (models.HabitSession, bool) {
	at, err := utils.ParseTimestamp(strings.TrimSpace(record[0]), loc)
	if err != nil {
		logger.Debug("Skipping row with unreadable timestamp", "value", record[0])
		return models.HabitSession{}, false
	}

	s := models.HabitSession{HabitID: habit.ID, CreatedAt: at}
	if v, ok := field(record, 1); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return models.HabitSession{}, false
		}
		s.Amount = &n
	}
	if v, ok := field(record, 2); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return models.HabitSession{}, false
		}
		s.DurationMin = &n
		finished := at.Add(time.Duration(n) * time.Minute)
		s.FinishedAt = &finished
	}
	if v, ok := field(record, 3); ok {
		s.Note = v
	}

	if err := validation.ValidateSession(s, habit); err != nil {
		logger.Debug("Skipping invalid row", "timestamp", record[0], "error", err)
		return models.HabitSession{}, false
	}
	return s, true
}

func field(record []string, i int) (string, bool) {
	if i >= len(record) {
		return "", false
	}
	v := strings.TrimSpace(record[i])
	return v, v != ""
}
