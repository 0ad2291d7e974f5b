package mcp

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) lines(match string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, line := range strings.Split(b.buf.String(), "\n") {
		if strings.Contains(line, match) {
			out = append(out, line)
		}
	}
	return out
}

func TestTrafficLogging_ScanBatch(t *testing.T) {
	var buf lockedBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newLoggedHarness(t, logger)

	path := h.writeRoster(t, "roster.csv", testRoster)
	res := h.call(t, "load_roster", map[string]any{"path": path}, nil)
	require.False(t, res.IsError)
	ada := h.tokenFor(t, "P123")
	h.call(t, "submit_scans", map[string]any{"scans": []string{ada}}, nil)

	res = h.call(t, "submit_scans", map[string]any{"scans": []string{ada, h.tokenFor(t, "P456"), "bogus"}}, nil)
	require.False(t, res.IsError)

	var requests, responses []string
	for _, line := range buf.lines("tool=submit_scans") {
		if strings.Contains(line, "stage=request") {
			requests = append(requests, line)
		}
		if strings.Contains(line, "stage=response") {
			responses = append(responses, line)
		}
	}
	require.Len(t, requests, 2)
	require.Len(t, responses, 2)
	require.Contains(t, requests[1], "batch_size=3")
	require.Contains(t, responses[1], "is_error=false")
	require.Contains(t, responses[1], "outcomes=ALREADY_CONSUMED:1,NEWLY_CONSUMED:1,UNKNOWN:1")
}

func TestTrafficLogging_ToolError(t *testing.T) {
	var buf lockedBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newLoggedHarness(t, logger)

	h.call(t, "reset_checkins", nil, nil)

	lines := buf.lines("tool=reset_checkins")
	require.NotEmpty(t, lines)
	var sawError bool
	for _, line := range lines {
		if strings.Contains(line, "stage=response") {
			require.Contains(t, line, "is_error=true")
			require.NotContains(t, line, "outcomes=")
			sawError = true
		}
	}
	require.True(t, sawError)
}

func TestTrafficLogging_SilentAboveDebug(t *testing.T) {
	var buf lockedBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := newLoggedHarness(t, logger)

	h.call(t, "checkin_count", nil, nil)
	require.Empty(t, buf.lines("mcp traffic"))
}

func TestTallyOutcomes(t *testing.T) {
	got := tallyOutcomes(SubmitScansResult{Results: []ScanResultResponse{
		{Outcome: "UNKNOWN"}, {Outcome: "NEWLY_CONSUMED"}, {Outcome: "UNKNOWN"},
	}})
	require.Equal(t, "NEWLY_CONSUMED:1,UNKNOWN:2", got)
	require.Empty(t, tallyOutcomes(nil))
}
