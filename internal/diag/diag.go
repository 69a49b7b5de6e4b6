// Package diag accumulates warnings and errors during a generation run
// for the end-of-run report.
package diag

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Severity classifies a diagnostic entry.
type Severity int

const (
	// Warning marks degraded but completed work.
	Warning Severity = iota
	// Error marks a subsystem that produced no usable data.
	Error
)

// Entry is a single diagnostic record.
type Entry struct {
	Severity Severity
	Message  string
	Time     time.Time
}

// Reporter collects diagnostics from all pipeline stages.
// Entries are append-only and ordered; it is safe for concurrent use.
type Reporter struct {
	mu      sync.Mutex
	entries []Entry
}

// New creates an empty reporter.
func New() *Reporter {
	return &Reporter{}
}

// Warnf records a warning and echoes it to the log.
func (r *Reporter) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warn().Msg(msg)

	r.mu.Lock()
	r.entries = append(r.entries, Entry{Severity: Warning, Message: msg, Time: time.Now()})
	r.mu.Unlock()
}

// Errorf records an error and echoes it to the log.
func (r *Reporter) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Error().Msg(msg)

	r.mu.Lock()
	r.entries = append(r.entries, Entry{Severity: Error, Message: msg, Time: time.Now()})
	r.mu.Unlock()
}

// Warnings returns all warning entries in append order.
func (r *Reporter) Warnings() []Entry {
	return r.filter(Warning)
}

// Errors returns all error entries in append order.
func (r *Reporter) Errors() []Entry {
	return r.filter(Error)
}

func (r *Reporter) filter(sev Severity) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Entry
	for _, e := range r.entries {
		if e.Severity == sev {
			out = append(out, e)
		}
	}
	return out
}

// Summary logs the end-of-run report: warnings first, then errors.
// A run with neither is reported as clean.
func (r *Reporter) Summary() {
	warnings := r.Warnings()
	errors := r.Errors()

	if len(warnings) == 0 && len(errors) == 0 {
		log.Info().Msg("Run completed without warnings or errors")
		return
	}

	log.Info().
		Int("warnings", len(warnings)).
		Int("errors", len(errors)).
		Msg("Run completed with diagnostics")

	for _, e := range warnings {
		log.Warn().Time("at", e.Time).Msg(e.Message)
	}
	for _, e := range errors {
		log.Error().Time("at", e.Time).Msg(e.Message)
	}
}
