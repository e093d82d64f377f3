// Package wirelog provides a small structured-logging helper shared by
// the handshake, socket, and typed packages, built on logrus.
package wirelog

import "github.com/sirupsen/logrus"

// Logger wraps logrus.Fields for one package, attaching a fixed
// "component" field to every entry so log aggregation can filter by
// layer (handshake, socket, typed) without string-matching messages.
type Logger struct {
	component string
	fields    logrus.Fields
}

// New returns a Logger tagged with the given component name, e.g.
// "handshake" or "socket".
func New(component string) *Logger {
	return &Logger{
		component: component,
		fields:    logrus.Fields{"component": component},
	}
}

// With returns a copy of l with an additional field, leaving l itself
// unmodified so callers can build a base logger once per component
// and fork per-call fields cheaply.
func (l *Logger) With(key string, value interface{}) *Logger {
	fields := make(logrus.Fields, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Logger{component: l.component, fields: fields}
}

func (l *Logger) entry() *logrus.Entry {
	return logrus.WithFields(l.fields)
}

// Debug logs function-entry/exit and per-message bookkeeping; never
// pass plaintext or key material here.
func (l *Logger) Debug(msg string) { l.entry().Debug(msg) }

// Info logs state transitions: handshake start/complete, socket and
// transport close.
func (l *Logger) Info(msg string) { l.entry().Info(msg) }

// Warn logs recoverable anomalies that do not end the session.
func (l *Logger) Warn(msg string) { l.entry().Warn(msg) }

// Error logs a fatal condition alongside the error that caused it.
func (l *Logger) Error(msg string, err error) {
	l.entry().WithField("error", err.Error()).Error(msg)
}
