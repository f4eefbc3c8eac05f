// Package logx provides the bracketed-component logger used throughout the
// runtime. It wraps the standard log package the same way every component
// in this codebase prefixes its own log lines (e.g. "[scheduler]", "[runtime]")
// instead of pulling in a structured logging library.
package logx

import "log"

// Logger prefixes every line with a component tag.
type Logger struct {
	tag string
}

// New returns a Logger that prefixes lines with "[tag] ".
func New(tag string) *Logger {
	return &Logger{tag: tag}
}

// Infof logs an informational line.
func (l *Logger) Infof(format string, args ...interface{}) {
	log.Printf("[%s] "+format, prepend(l.tag, args)...)
}

// Warnf logs a warning line.
func (l *Logger) Warnf(format string, args ...interface{}) {
	log.Printf("[%s] WARNING: "+format, prepend(l.tag, args)...)
}

// Errorf logs an error line.
func (l *Logger) Errorf(format string, args ...interface{}) {
	log.Printf("[%s] ERROR: "+format, prepend(l.tag, args)...)
}

func prepend(tag string, args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, tag)
	out = append(out, args...)
	return out
}
