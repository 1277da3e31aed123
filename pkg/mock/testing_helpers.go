package mock

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	gomock "go.uber.org/mock/gomock"
)

// SetupLogger sets up a logger that only outputs if the test fails
func SetupLogger(t *testing.T) *slog.Logger {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	t.Cleanup(func() {
		if t.Failed() {
			os.Stdout.Write(buf.Bytes()) //nolint:errcheck
		}
	})

	return logger
}

// Custom matcher to check a time argument is within the tolerance
type timeMatcher struct {
	want      time.Time
	tolerance time.Duration
}

func (m timeMatcher) Matches(x interface{}) bool {
	got, ok := x.(time.Time)
	if !ok {
		return false
	}
	diff := got.Sub(m.want)
	return diff <= m.tolerance && diff >= -m.tolerance
}

func (m timeMatcher) String() string {
	return "is within " + m.tolerance.String() + " of " + m.want.Format(time.RFC3339)
}

// NewTimeMatcher returns a matcher for a time within tolerance of want
func NewTimeMatcher(want time.Time, tolerance time.Duration) gomock.Matcher {
	return timeMatcher{want: want, tolerance: tolerance}
}
