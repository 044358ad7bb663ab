package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// SessionMarkerPrefix is injected as a line of stdout once the child's
// session id has been discovered by watching its log directory, so the
// normalizer (and anything tailing the raw stream) can pick the session
// id up the same way every other family's stdout carries one.
const SessionMarkerPrefix = "[copilot-session] "

// sessionWatchTimeout bounds how long CreateTempLogDir's companion
// watcher waits for the child to create its session log file before
// giving up.
const sessionWatchTimeout = 600 * time.Second

var sessionLogName = regexp.MustCompile(`^[0-9a-fA-F-]{36}\.log$`)

// CreateTempLogDir allocates a fresh, uniquely named directory under
// base/copilot_logs for one Copilot invocation's --log-dir flag. The
// directory name is itself a random UUID so concurrent runs sharing the
// same base never collide.
func CreateTempLogDir(base string) (string, error) {
	dirName := uuid.NewString()
	dir := filepath.Join(base, "copilot_logs", dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("executor: create copilot log dir: %w", err)
	}
	return dir, nil
}

// WatchSessionID watches logDir for the UUID-named log file Copilot
// creates once a session starts, and returns the UUID parsed from its
// name. It prefers fsnotify for instant detection and falls back to a
// polling ticker if the watcher itself fails to start, matching the
// original's poll loop as a degraded-but-functional path.
func WatchSessionID(ctx context.Context, logDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, sessionWatchTimeout)
	defer cancel()

	if id, ok := scanForSessionLog(logDir); ok {
		return id, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return pollForSessionLog(ctx, logDir)
	}
	defer watcher.Close()

	if err := watcher.Add(logDir); err != nil {
		return pollForSessionLog(ctx, logDir)
	}

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("executor: timed out waiting for copilot session log: %w", ctx.Err())
		case ev, ok := <-watcher.Events:
			if !ok {
				return pollForSessionLog(ctx, logDir)
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if id, ok := sessionIDFromPath(ev.Name); ok {
				return id, nil
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return pollForSessionLog(ctx, logDir)
			}
			if werr != nil {
				return pollForSessionLog(ctx, logDir)
			}
		}
	}
}

func pollForSessionLog(ctx context.Context, logDir string) (string, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("executor: timed out waiting for copilot session log: %w", ctx.Err())
		case <-ticker.C:
			if id, ok := scanForSessionLog(logDir); ok {
				return id, nil
			}
		}
	}
}

func scanForSessionLog(logDir string) (string, bool) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := sessionIDFromPath(e.Name()); ok {
			return id, true
		}
	}
	return "", false
}

func sessionIDFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if !sessionLogName.MatchString(name) {
		return "", false
	}
	return strings.TrimSuffix(name, ".log"), true
}

// FormatSessionMarker renders the session id as the prefixed line a
// Copilot run's driver injects into its own stdout stream once
// WatchSessionID resolves it.
func FormatSessionMarker(sessionID string) string {
	return SessionMarkerPrefix + sessionID
}

// StripSessionMarker removes a leading SessionMarkerPrefix from a line so
// the plain-text normalizer doesn't turn the marker itself into a visible
// assistant message entry.
func StripSessionMarker(line string) string {
	if strings.HasPrefix(line, SessionMarkerPrefix) {
		return ""
	}
	return line
}
