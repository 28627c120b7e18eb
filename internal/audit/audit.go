// Package audit writes the activity and error trail for task operations to
// dedicated log files, one structured line per event.
package audit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type Log struct {
	activity *slog.Logger
	errors   *slog.Logger
}

func New(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit log dir failed: %w", err)
	}

	activityFile, err := os.OpenFile(filepath.Join(dir, "activity.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open activity log failed: %w", err)
	}
	errorFile, err := os.OpenFile(filepath.Join(dir, "error.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open error log failed: %w", err)
	}

	return &Log{
		activity: slog.New(slog.NewJSONHandler(activityFile, &slog.HandlerOptions{Level: slog.LevelInfo})),
		errors:   slog.New(slog.NewJSONHandler(errorFile, &slog.HandlerOptions{Level: slog.LevelError})),
	}, nil
}

// Activity records a successful operation. Safe to call on a nil receiver
// so tests can run services without an audit trail.
func (l *Log) Activity(action, userID, taskID, details string) {
	if l == nil {
		return
	}
	l.activity.Info(action, "user", userID, "task", taskID, "details", details)
}

func (l *Log) Error(action, userID, taskID, details string) {
	if l == nil {
		return
	}
	l.errors.Error(action, "user", userID, "task", taskID, "details", details)
}
