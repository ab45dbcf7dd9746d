package logger

import (
	"fmt"

	"github.com/rs/zerolog"
)

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	l := GetLogger().WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// LogProgress logs how far a run has come through its target list
func LogProgress(done, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(done) / float64(total) * 100
	}

	GetLogger().WithFields(map[string]interface{}{
		"done":       done,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Debug("Fetch progress")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }

// LeveledAdapter exposes a Logger through the key/value logging interface
// used by HTTP client libraries such as go-retryablehttp.
type LeveledAdapter struct {
	log    Logger
	redact func(string) string
}

// NewLeveledAdapter wraps l
func NewLeveledAdapter(l Logger) *LeveledAdapter {
	return &LeveledAdapter{log: l}
}

// WithRedactor returns an adapter that passes every string, error or Stringer value
// through redact before logging it. Request URLs carry secrets in their query.
func (a *LeveledAdapter) WithRedactor(redact func(string) string) *LeveledAdapter {
	return &LeveledAdapter{log: a.log, redact: redact}
}

func (a *LeveledAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.log.ErrorWithFields(msg, a.pairs(keysAndValues))
}

func (a *LeveledAdapter) Info(msg string, keysAndValues ...interface{}) {
	// client chatter stays below the run narration
	a.log.DebugWithFields(msg, a.pairs(keysAndValues))
}

func (a *LeveledAdapter) Debug(msg string, keysAndValues ...interface{}) {
	a.log.DebugWithFields(msg, a.pairs(keysAndValues))
}

func (a *LeveledAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.log.WarnWithFields(msg, a.pairs(keysAndValues))
}

// pairs turns an alternating key/value list into a field map. A trailing key
// without a value is kept with a nil value.
func (a *LeveledAdapter) pairs(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 >= len(keysAndValues) {
			fields[key] = nil
			continue
		}
		fields[key] = a.scrub(keysAndValues[i+1])
	}
	return fields
}

func (a *LeveledAdapter) scrub(v interface{}) interface{} {
	if a.redact == nil {
		return v
	}
	switch s := v.(type) {
	case string:
		return a.redact(s)
	case error:
		return a.redact(s.Error())
	case fmt.Stringer:
		return a.redact(s.String())
	default:
		return v
	}
}
