// Package notifier delivers briefing headlines to the companion tray app and
// falls back to a native desktop notification when the tray is not running.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/beeep"
	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/logger"
)

var ErrTrayNotRunning = errors.New(constants.TrayAppExecutable + " is not running")

type Notifier struct {
	configDir   func() (string, error)
	findProcess func(int) (ps.Process, error)
	desktop     func(title, message string) error
	client      *http.Client
	log         *log.Logger
}

type WebhookPayload struct {
	Title      string `json:"title,omitempty"`
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
}

func New() *Notifier {
	return &Notifier{
		configDir:   os.UserConfigDir,
		findProcess: ps.FindProcess,
		desktop: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		client: &http.Client{Timeout: 5 * time.Second},
		log:    logger.Component("notifier"),
	}
}

// Notify sends text to the tray app, or to the desktop when the tray is unavailable.
func (n *Notifier) Notify(ctx context.Context, title, text string) error {
	trayErr := n.notifyTray(ctx, title, text)
	if trayErr == nil {
		return nil
	}
	n.log.Debug("tray notification unavailable, using desktop", "error", trayErr)

	if err := n.desktop(title, text); err != nil {
		return errors.Join(trayErr, fmt.Errorf("desktop notification failed: %w", err))
	}
	return nil
}

func (n *Notifier) notifyTray(ctx context.Context, title, text string) error {
	dir, err := n.trayConfigDir()
	if err != nil {
		return err
	}
	port, secret, err := n.readLockfile(filepath.Join(dir, constants.NotifierLockfileName))
	if err != nil {
		return err
	}
	return n.send(ctx, port, secret, WebhookPayload{
		Title:      title,
		Text:       text,
		DurationMs: constants.NotificationDurationMs,
	})
}

// trayConfigDir returns the tray app's directory, honouring a lockfile_dir override
// in its settings.json.
func (n *Notifier) trayConfigDir() (string, error) {
	configDir, err := n.configDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	trayDir := filepath.Join(configDir, constants.TrayAppIdentifier)

	data, err := os.ReadFile(filepath.Join(trayDir, "settings.json"))
	if err != nil {
		return trayDir, nil
	}
	var store struct {
		Settings struct {
			LockfileDir *string `json:"lockfile_dir"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(data, &store); err == nil && store.Settings.LockfileDir != nil && *store.Settings.LockfileDir != "" {
		return *store.Settings.LockfileDir, nil
	}
	return trayDir, nil
}

// readLockfile parses "port|pid|secret" and confirms the pid belongs to the tray app.
func (n *Notifier) readLockfile(path string) (int, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, "", ErrTrayNotRunning
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return 0, "", errors.New("lockfile is malformed")
	}

	port, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, "", errors.New("invalid port number in lockfile")
	}
	if port < 1 || port > 65535 {
		return 0, "", fmt.Errorf("port number %d is outside valid range (1-65535)", port)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, "", errors.New("invalid process ID in lockfile")
	}
	secret := strings.TrimSpace(parts[2])
	if secret == "" {
		return 0, "", errors.New("secret in lockfile is empty")
	}

	process, err := n.findProcess(pid)
	if err != nil || process == nil {
		return 0, "", ErrTrayNotRunning
	}
	if !strings.HasPrefix(process.Executable(), constants.TrayAppExecutable) {
		return 0, "", fmt.Errorf("process with PID %d is not %s (is %s)", pid, constants.TrayAppExecutable, process.Executable())
	}
	return port, secret, nil
}

func (n *Notifier) send(ctx context.Context, port int, secret string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("http://127.0.0.1:%d", port), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Anchor-Secret", secret)

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(msg))
}
