package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
)

// LoggerNames lists the packages that obtain a logger via logger.GetLogger.
var LoggerNames = []string{"cmd", "pool", "counter", "ledger", "ring"}

// logOutput is where all dSync loggers write to. Workload results go to stdout,
// so log lines go to stderr. It is read once, when the factory creates a logger.
var logOutput io.Writer = os.Stderr

// dragonboat panics if the factory is set twice
var installFactory sync.Once

// --------------------------------------------------------------------------
// Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

var levelTags = map[logger.LogLevel]string{
	logger.CRITICAL: "CRIT",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// lineLogger writes "LEVEL | package | message" lines. The level may be changed
// while other goroutines log.
type lineLogger struct {
	pkg       string
	threshold atomic.Int64
	out       *log.Logger
}

func (l *lineLogger) SetLevel(level logger.LogLevel) {
	l.threshold.Store(int64(level))
}

func (l *lineLogger) Debugf(format string, args ...interface{}) {
	l.write(logger.DEBUG, format, args)
}

func (l *lineLogger) Infof(format string, args ...interface{}) {
	l.write(logger.INFO, format, args)
}

func (l *lineLogger) Warningf(format string, args ...interface{}) {
	l.write(logger.WARNING, format, args)
}

func (l *lineLogger) Errorf(format string, args ...interface{}) {
	l.write(logger.ERROR, format, args)
}

// Panicf always panics, the line is written first if CRITICAL is enabled.
func (l *lineLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, "%s", []interface{}{msg})
	panic(msg)
}

func (l *lineLogger) enabled(level logger.LogLevel) bool {
	return int64(level) <= l.threshold.Load()
}

func (l *lineLogger) write(level logger.LogLevel, format string, args []interface{}) {
	if !l.enabled(level) {
		return
	}
	l.out.Printf("%-5s | %-8s | %s", levelTags[level], l.pkg, fmt.Sprintf(format, args...))
}

// CreateLogger implements the dragonboat logger.Factory. New loggers log warnings
// and above until InitLoggers sets another level.
func CreateLogger(pkgName string) logger.ILogger {
	l := &lineLogger{
		pkg: pkgName,
		out: log.New(logOutput, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	l.SetLevel(logger.WARNING)
	return l
}

// ParseLogLevel converts a level name (debug, info, warn, error) to logger.LogLevel.
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.WARNING, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// InitLoggers installs the custom logger factory on the first call and sets the
// level of every logger in LoggerNames on each call.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	installFactory.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
