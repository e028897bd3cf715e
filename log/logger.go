package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	defaultLevel = logrus.ErrorLevel

	envKeyLevel  = "LOG_LEVEL"
	envKeyFormat = "LOG_FORMAT"
	envKeyFile   = "LOG_FILE"
)

var Logger logrus.FieldLogger

func init() {
	Logger = newLogger(os.Getenv(envKeyLevel), os.Getenv(envKeyFormat), openOutput(os.Getenv(envKeyFile)))
}

// an unopenable LOG_FILE falls back to stdout
func openOutput(path string) io.Writer {
	if path == "" {
		return os.Stdout
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return os.Stdout
	}

	return f
}

func newLogger(level, format string, out io.Writer) logrus.FieldLogger {
	l := logrus.New()
	l.Formatter = resolveFormatter(format)
	l.Out = out

	lvl, err := resolveLogLevel(level)
	l.Level = lvl

	if err != nil {
		l.Errorf("an error occurred resolving the log level: %s", err)
	}

	return l
}

func resolveFormatter(format string) logrus.Formatter {
	if strings.EqualFold(format, "text") {
		return &logrus.TextFormatter{FullTimestamp: true, DisableColors: true}
	}

	return &logrus.JSONFormatter{}
}

func resolveLogLevel(envLvl string) (logrus.Level, error) {
	if envLvl == "" {
		return defaultLevel, nil
	}

	lvl, err := logrus.ParseLevel(envLvl)
	if err != nil {
		return defaultLevel, err
	}

	return lvl, nil
}
