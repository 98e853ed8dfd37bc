package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. Init configures it once at startup.
var Logger = logrus.New()

type appNameHook struct {
	appName string
}

// Levels implements logrus.Hook.
func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Message = "[" + h.appName + "] " + entry.Message
	return nil
}

// Init sets output, level and formatting. An unknown level falls back to info.
func Init(appName, level string) {
	configure(Logger, os.Stdout, appName, level)
}

// configure installs formatter and hooks before the level is parsed so the
// invalid-level warning is formatted like every later line.
func configure(l *logrus.Logger, out io.Writer, appName, level string) {
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	hooks := make(logrus.LevelHooks)
	if appName != "" {
		hooks.Add(&appNameHook{appName: appName})
	}
	l.ReplaceHooks(hooks)

	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.Warnf("Invalid LOG_LEVEL '%s', defaulting to INFO", level)
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
}
