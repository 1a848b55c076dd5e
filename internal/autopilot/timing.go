package autopilot

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// Clock abstracts wall time so pacing can be tested without sleeping.
type Clock interface {
	Now() time.Time
	// Sleep pauses for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SystemClock is the real clock.
var SystemClock Clock = systemClock{}

func isSeparator(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return unicode.IsSpace(r) || unicode.Is(unicode.Zs, r)
}

// NormalizeWhitespace collapses every run of whitespace, space separators and
// zero-width characters to a single ASCII space and trims the ends.
func NormalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if isSeparator(r) {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteRune(r)
	}
	return b.String()
}

// WordCount counts the words of the normalized text.
func WordCount(s string) int {
	return len(strings.Fields(NormalizeWhitespace(s)))
}

// RequiredDwell is the minimum time to spend on a question:
// words × secondsPerWord.
func RequiredDwell(text string, secondsPerWord float64) time.Duration {
	if secondsPerWord <= 0 {
		return 0
	}
	return time.Duration(float64(WordCount(text)) * secondsPerWord * float64(time.Second))
}

// Governor holds answer submission back until a minimum dwell has elapsed
// since Start.
type Governor struct {
	clock    Clock
	required time.Duration
	start    time.Time
}

func NewGovernor(clock Clock, required time.Duration) *Governor {
	return &Governor{clock: clock, required: required}
}

// Start records the reference instant and returns g.
func (g *Governor) Start() *Governor {
	g.start = g.clock.Now()
	return g
}

// Remaining is max(0, required - elapsed).
func (g *Governor) Remaining() time.Duration {
	left := g.required - g.clock.Now().Sub(g.start)
	if left < 0 {
		return 0
	}
	return left
}

// Wait sleeps for the remaining dwell.
func (g *Governor) Wait(ctx context.Context) error {
	left := g.Remaining()
	if left == 0 {
		return nil
	}
	return g.clock.Sleep(ctx, left)
}
