package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestEventName(t *testing.T) {
	got := EventName(PrefixStreakManager, SuffixCalculateStreakSuccess)
	if want := "StreakMan_CalculateStreak_Success"; got != want {
		t.Errorf("EventName() = %q, want %q", got, want)
	}
}

func TestIsFailSuffix(t *testing.T) {
	if !isFailSuffix(SuffixRemoteListenerFail) {
		t.Error("expected RemoteListener_Fail to be a fail suffix")
	}
	if isFailSuffix(SuffixRemoteListenerSuccess) {
		t.Error("did not expect RemoteListener_Success to be a fail suffix")
	}
	if isFailSuffix(SuffixCalculateStreakSkipped) {
		t.Error("did not expect CalculateStreak_Skipped to be a fail suffix")
	}
}

func TestSlogSinkSeverityMapping(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := NewSlogSink(logger)

	sink.Log(context.Background(), PrefixStreakManager, SuffixCalculateStreakFail, ErrorParams(errSample))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %v", len(lines), lines)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR for a _Fail suffix", entry["level"])
	}
	if entry["event"] != "StreakMan_CalculateStreak_Fail" {
		t.Errorf("event = %v, want StreakMan_CalculateStreak_Fail", entry["event"])
	}
}

func TestSlogSinkInfoSeverity(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := NewSlogSink(logger)

	sink.Log(context.Background(), PrefixXPManager, SuffixCalculateXPSuccess, nil)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
}

var errSample = sampleErr{}

type sampleErr struct{}

func (sampleErr) Error() string { return "remote write failed" }
