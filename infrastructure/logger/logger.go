package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

// SideEffectChannel tags log lines of bookkeeping writes that failed without affecting a job.
const SideEffectChannel = "side_effect"

var logger = log.New()

func init() {
	logger.Formatter = &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}
	logger.Out = os.Stdout

	level, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = log.DebugLevel
	}
	logger.SetLevel(level)

	// Prefer stdout (systemd/docker). LOG_TO_FILE=true writes a dated file under logs/.
	if os.Getenv("LOG_TO_FILE") != "true" {
		return
	}
	cwd, err := os.Getwd()
	if err != nil {
		logger.WithField("error", err).Warn("Failed get current working directory, logging to stdout")
		return
	}
	logsDir := filepath.Join(cwd, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		logger.Warnf("Failed to create logs directory %s: %v, falling back to stdout", logsDir, err)
		return
	}
	filePath := filepath.Join(logsDir, fmt.Sprintf("%s%s.log", time.Now().Format("2006-01-02"), os.Getenv("ENV")))
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		logger.Warnf("Failed to open log file %s: %v, falling back to stdout", filePath, err)
		return
	}
	logger.Out = f
}

// GetLogger returns an entry annotated with the calling function, file and line.
func GetLogger() *log.Entry {
	function, file, line, _ := runtime.Caller(1)

	functionName := ""
	if fn := runtime.FuncForPC(function); fn != nil {
		functionName = fn.Name()
	}
	return logger.WithFields(log.Fields{
		"function": functionName,
		"file":     filepath.Base(file),
		"line":     line,
	})
}

// SideEffect returns an entry for failures that are logged and swallowed.
func SideEffect() *log.Entry {
	return GetLogger().WithField("channel", SideEffectChannel)
}
