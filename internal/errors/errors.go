package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/anchor/internal/keyring"
	"github.com/julianstephens/anchor/internal/llm"
	"github.com/julianstephens/anchor/internal/logger"
	"github.com/julianstephens/anchor/internal/storage"
)

// hints pairs known failures with the command that usually resolves them.
var hints = []struct {
	target error
	hint   string
}{
	{llm.ErrMissingAPIKey, "store a key with 'anchor keyring set llm' or set the provider's API key variable"},
	{keyring.ErrNotFound, "store the secret with 'anchor keyring set'"},
	{keyring.ErrUnavailable, "the OS keyring is unavailable; use the environment variable instead"},
	{storage.ErrNotFound, "list existing records with the matching 'list' command"},
}

// Hint returns a remediation hint for err, or "" when none applies.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	for _, h := range hints {
		if stderrors.Is(err, h.target) {
			return h.hint
		}
	}
	if strings.Contains(err.Error(), "storage not initialized") {
		return "run 'anchor init' to create the database"
	}
	return ""
}

// Format formats an error message with a consistent "Error: " prefix and, when
// known, a hint on the next line.
func Format(err error) string {
	if err == nil {
		return ""
	}
	msg := fmt.Sprintf("Error: %v", err)
	if hint := Hint(err); hint != "" {
		msg += "\nHint: " + hint
	}
	return msg
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...any) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...any) {
	logger.Error("Command execution failed", "error", fmt.Sprintf(format, args...))
	fmt.Fprintln(os.Stderr, Formatf(format, args...))
	os.Exit(1)
}
