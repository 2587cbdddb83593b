// Package log provides centralized logging functionality using zap logger.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// log backs the package-level functions and skips their frame when
// reporting the caller; baseLogger is handed to components as is.
var log *zap.SugaredLogger
var baseLogger *zap.Logger

// Init initializes the package-level logger
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	setLogger(zapLogger)
	return nil
}

func setLogger(l *zap.Logger) {
	baseLogger = l
	log = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

func pkgLogger() *zap.SugaredLogger {
	if log == nil {
		l, _ := zap.NewProduction()
		setLogger(l)
	}
	return log
}

// GetSugaredLogger returns the sugared logger instance
func GetSugaredLogger() *zap.SugaredLogger {
	pkgLogger()
	return baseLogger.Sugar()
}

// Named returns a child logger scoped to one component, e.g. "stroke" or "rest".
func Named(component string) *zap.SugaredLogger {
	return GetSugaredLogger().Named(component)
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// Package-level convenience functions
func Debugf(template string, args ...interface{}) {
	pkgLogger().Debugf(template, args...)
}

func Debugw(msg string, keysAndValues ...interface{}) {
	pkgLogger().Debugw(msg, keysAndValues...)
}

func Info(args ...interface{}) {
	pkgLogger().Info(args...)
}

func Infof(template string, args ...interface{}) {
	pkgLogger().Infof(template, args...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	pkgLogger().Infow(msg, keysAndValues...)
}

func Warnf(template string, args ...interface{}) {
	pkgLogger().Warnf(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	pkgLogger().Warnw(msg, keysAndValues...)
}

func Errorf(template string, args ...interface{}) {
	pkgLogger().Errorf(template, args...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	pkgLogger().Errorw(msg, keysAndValues...)
}

func Fatalf(template string, args ...interface{}) {
	pkgLogger().Fatalf(template, args...)
	os.Exit(1)
}
