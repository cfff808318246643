// Package numbering issues human-readable document numbers of the form
// PREFIX-YEAR-SEQ (EST-2024-0001).
//
// Every number comes from an atomic increment of a per-kind, per-year
// counter. The service never counts existing documents and never retries a
// failed increment: a backend error is surfaced as ErrUnavailable and the
// caller must abort, because a guessed number could duplicate a legal
// document number.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable wraps every backend failure.
var ErrUnavailable = errors.New("salesdoc: numbering backend unavailable")

// Kind is the document type prefix.
type Kind string

const (
	KindEstimate Kind = "EST"
	KindContract Kind = "CTR"
	KindInvoice  Kind = "INV"
)

// Backend atomically increments the counter stored under key and returns
// the new value. The first call for a key returns 1.
type Backend interface {
	Increment(ctx context.Context, key string) (int64, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, key string) (int64, error)

// Increment calls f.
func (f BackendFunc) Increment(ctx context.Context, key string) (int64, error) {
	return f(ctx, key)
}

// Service issues numbers.
type Service struct {
	backend Backend
	now     func() time.Time
	width   int
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used to pick the counter year.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithWidth sets the minimum zero-padded width of the sequence (default 4).
func WithWidth(width int) Option {
	return func(s *Service) {
		if width > 0 {
			s.width = width
		}
	}
}

// New creates a Service on top of backend.
func New(backend Backend, opts ...Option) *Service {
	s := &Service{backend: backend, now: time.Now, width: 4}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key is the counter key for kind in year.
func Key(kind Kind, year int) string {
	return string(kind) + ":" + strconv.Itoa(year)
}

// Issue returns the next number for kind in the current year.
func (s *Service) Issue(ctx context.Context, kind Kind) (string, error) {
	year := s.now().UTC().Year()

	seq, err := s.backend.Increment(ctx, Key(kind, year))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, kind, err)
	}
	if seq < 1 {
		return "", fmt.Errorf("%w: %s: counter returned %d", ErrUnavailable, kind, seq)
	}
	return Format(kind, year, seq, s.width), nil
}

// Format renders a number. Sequences wider than width are not truncated.
func Format(kind Kind, year int, seq int64, width int) string {
	return fmt.Sprintf("%s-%d-%0*d", kind, year, width, seq)
}

// Parse splits a number into its parts.
func Parse(number string) (Kind, int, int64, error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("numbering: malformed number %q", number)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("numbering: bad year in %q: %w", number, err)
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("numbering: bad sequence in %q: %w", number, err)
	}
	return Kind(parts[0]), year, seq, nil
}
