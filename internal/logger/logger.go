package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Logger is the shared instance; nil until InitLogger runs.
	Logger *logrus.Logger
	// ErrorLogger receives Error and above.
	ErrorLogger *logrus.Logger
)

// LogConfig selects level and destinations. Empty paths log to stdout/stderr.
type LogConfig struct {
	ErrorLogPath string
	InfoLogPath  string
	LogLevel     string
	// Output overrides InfoLogPath and ErrorLogPath when set.
	Output io.Writer
}

// CustomFormatter prints "[time] [LEVL] (caller) message".
type CustomFormatter struct {
	TimestampFormat string
}

// Format implements logrus.Formatter.
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var fields strings.Builder
	for k, v := range entry.Data {
		fmt.Fprintf(&fields, " %s=%v", k, v)
	}

	return []byte(fmt.Sprintf("[%s] [%s] (%s) %s%s\n",
		timestamp,
		level,
		getCaller(),
		entry.Message,
		fields.String())), nil
}

func getCaller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		if strings.Contains(file, "sirupsen") ||
			strings.HasSuffix(file, "/logger/logger.go") ||
			strings.HasSuffix(file, "/entry.go") {
			continue
		}

		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), runtime.FuncForPC(pc).Name(), line)
	}

	return "unknown:unknown:0"
}

// ParseLevel maps a config string to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// InitLogger (re)initialises the package loggers.
func InitLogger(config LogConfig) error {
	formatter := &CustomFormatter{TimestampFormat: "15:04:05 MST 2006/01/02"}
	level := ParseLevel(config.LogLevel)

	Logger = logrus.New()
	Logger.SetFormatter(formatter)
	Logger.SetLevel(level)

	ErrorLogger = logrus.New()
	ErrorLogger.SetFormatter(formatter)
	ErrorLogger.SetLevel(level)

	if config.Output != nil {
		Logger.SetOutput(config.Output)
		ErrorLogger.SetOutput(config.Output)
		return nil
	}

	Logger.SetOutput(os.Stdout)
	if config.InfoLogPath != "" {
		f, err := openLogFile(config.InfoLogPath)
		if err != nil {
			return fmt.Errorf("open info log %s: %w", config.InfoLogPath, err)
		}
		Logger.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	ErrorLogger.SetOutput(os.Stderr)
	if config.ErrorLogPath != "" {
		f, err := openLogFile(config.ErrorLogPath)
		if err != nil {
			return fmt.Errorf("open error log %s: %w", config.ErrorLogPath, err)
		}
		ErrorLogger.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	return nil
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
}

// WithFields returns an entry carrying fields, or nil before InitLogger.
func WithFields(fields logrus.Fields) *logrus.Entry {
	if Logger == nil {
		return nil
	}
	return Logger.WithFields(fields)
}

func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Infof(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Errorf(format, args...)
	}
}
