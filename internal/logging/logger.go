// Package logging provides categorized zap loggers for uuidfreeze.
// Logging is silent by default: nothing is written until SetLogger installs a real core.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Category represents a log category/system
type Category string

const (
	CategoryProxy  Category = "proxy"  // Install, push/pop of interception contexts
	CategoryScope  Category = "scope"  // Freezer/Mocker lifecycle
	CategoryConfig Category = "config" // Configuration load and validation
	CategoryCLI    Category = "cli"    // Developer CLI
)

// Logger wraps a named zap logger for one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	base      = zap.NewNop()
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
)

// SetLogger replaces the root logger. Passing nil restores the no-op logger.
// Category loggers obtained earlier keep working and pick up the new root.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggersMu.Lock()
	defer loggersMu.Unlock()
	base = l
	for cat, existing := range loggers {
		existing.sugar = l.Named(string(cat)).Sugar()
	}
}

// Root returns the current root logger.
func Root() *zap.Logger {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	return base
}

// Get returns the logger for a category, creating it on first use.
func Get(category Category) *Logger {
	loggersMu.RLock()
	l, ok := loggers[category]
	loggersMu.RUnlock()
	if ok {
		return l
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l = &Logger{category: category, sugar: base.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

func (l *Logger) current() *zap.SugaredLogger {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	return l.sugar
}

// Category returns the category this logger writes under.
func (l *Logger) Category() Category {
	return l.category
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.current().Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.current().Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.current().Warnf(format, args...)
}

// With returns a structured child of the category logger.
func (l *Logger) With(fields ...zap.Field) *zap.Logger {
	return l.current().Desugar().With(fields...)
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// ProxyDebug logs debug to the proxy category
func ProxyDebug(format string, args ...interface{}) {
	Get(CategoryProxy).Debug(format, args...)
}

// ProxyWarn logs a warning to the proxy category
func ProxyWarn(format string, args ...interface{}) {
	Get(CategoryProxy).Warn(format, args...)
}

// ScopeDebug logs debug to the scope category
func ScopeDebug(format string, args ...interface{}) {
	Get(CategoryScope).Debug(format, args...)
}

// ScopeWarn logs a warning to the scope category
func ScopeWarn(format string, args ...interface{}) {
	Get(CategoryScope).Warn(format, args...)
}

// ConfigDebug logs debug to the config category
func ConfigDebug(format string, args ...interface{}) {
	Get(CategoryConfig).Debug(format, args...)
}

// ConfigWarn logs a warning to the config category
func ConfigWarn(format string, args ...interface{}) {
	Get(CategoryConfig).Warn(format, args...)
}

// Sync flushes the root logger. Errors from syncing stdout/stderr are ignored.
func Sync() error {
	if err := Root().Sync(); err != nil {
		return fmt.Errorf("failed to sync logger: %w", err)
	}
	return nil
}
