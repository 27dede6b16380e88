// Package logrus exposes a logrus logger through logger.Logger for hosts
// that already log with logrus.
package logrus

import (
	"github.com/raykavin/perfscope/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Adapter wraps a logrus entry
type Adapter struct {
	entry *logrus.Entry
}

// NewAdapter wraps log
func NewAdapter(log *logrus.Logger) *Adapter {
	return &Adapter{entry: logrus.NewEntry(log)}
}

func (a *Adapter) WithField(key string, value any) logger.Logger {
	return &Adapter{entry: a.entry.WithField(key, value)}
}

func (a *Adapter) WithFields(fields map[string]any) logger.Logger {
	return &Adapter{entry: a.entry.WithFields(logrus.Fields(fields))}
}

func (a *Adapter) WithError(err error) logger.Logger {
	return &Adapter{entry: a.entry.WithError(err)}
}

func (a *Adapter) Debug(args ...any) { a.entry.Debug(args...) }
func (a *Adapter) Info(args ...any)  { a.entry.Info(args...) }
func (a *Adapter) Warn(args ...any)  { a.entry.Warn(args...) }
func (a *Adapter) Error(args ...any) { a.entry.Error(args...) }
func (a *Adapter) Fatal(args ...any) { a.entry.Fatal(args...) }

func (a *Adapter) Debugf(format string, args ...any) { a.entry.Debugf(format, args...) }
func (a *Adapter) Infof(format string, args ...any)  { a.entry.Infof(format, args...) }
func (a *Adapter) Warnf(format string, args ...any)  { a.entry.Warnf(format, args...) }
func (a *Adapter) Errorf(format string, args ...any) { a.entry.Errorf(format, args...) }
func (a *Adapter) Fatalf(format string, args ...any) { a.entry.Fatalf(format, args...) }

// SetLevel implements logger.Logger.
func (a *Adapter) SetLevel(level logger.Level) {
	setLevel(a.entry.Logger, level)
}

func setLevel(log *logrus.Logger, level logger.Level) {
	if level == logger.Disabled {
		log.SetLevel(logrus.PanicLevel)
		return
	}
	if lv, ok := toLogrus[level]; ok {
		log.SetLevel(lv)
	}
}

// GetLevel implements logger.Logger.
func (a *Adapter) GetLevel() logger.Level {
	current := a.entry.Logger.GetLevel()
	for level, lv := range toLogrus {
		if lv == current {
			return level
		}
	}
	return logger.NoLevel
}

var toLogrus = map[logger.Level]logrus.Level{
	logger.TraceLevel: logrus.TraceLevel,
	logger.DebugLevel: logrus.DebugLevel,
	logger.InfoLevel:  logrus.InfoLevel,
	logger.WarnLevel:  logrus.WarnLevel,
	logger.ErrorLevel: logrus.ErrorLevel,
	logger.FatalLevel: logrus.FatalLevel,
	logger.PanicLevel: logrus.PanicLevel,
}
