package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestAppNameHookPrefixesMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.AddHook(&appNameHook{appName: "estatedesk"})

	logger.Info("property sold")

	if !strings.Contains(buf.String(), "[estatedesk] property sold") {
		t.Fatalf("expected prefixed message, got %q", buf.String())
	}
}

func TestInitFallsBackToInfo(t *testing.T) {
	Init("", "chatty")
	if Logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", Logger.GetLevel())
	}

	Init("", "debug")
	if Logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", Logger.GetLevel())
	}
}

func TestConfigureWarnsWithFinalFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	configure(logger, &buf, "estatedesk", "chatty")

	out := buf.String()
	if !strings.Contains(out, "[estatedesk] Invalid LOG_LEVEL 'chatty'") {
		t.Fatalf("expected prefixed warning, got %q", out)
	}
	if !strings.HasPrefix(out, "time=") {
		t.Fatalf("expected text formatter output, got %q", out)
	}
}

func TestConfigureDoesNotStackHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()

	configure(logger, &buf, "estatedesk", "info")
	configure(logger, &buf, "estatedesk", "info")
	logger.Info("listing created")

	if strings.Count(buf.String(), "[estatedesk]") != 1 {
		t.Fatalf("expected a single prefix, got %q", buf.String())
	}
}
