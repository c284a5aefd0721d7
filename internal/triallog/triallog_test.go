package triallog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wordbench/wordbench/internal/models"
)

func okTrial(target, index, actual int) models.Trial {
	deviation := actual - target
	if deviation < 0 {
		deviation = -deviation
	}
	return models.Trial{
		TrialIndex:  index,
		Target:      target,
		Topic:       "the ocean",
		Status:      models.StatusOK,
		ActualWords: actual,
		Deviation:   deviation,
		Text:        "some generated words",
		DurationMs:  90,
	}
}

func failedTrial(target, index int, msg string) models.Trial {
	return models.Trial{
		TrialIndex: index,
		Target:     target,
		Topic:      "city life",
		Status:     models.StatusError,
		ErrorMsg:   msg,
		DurationMs: 10,
	}
}

func TestNewEvent(t *testing.T) {
	data := map[string]any{"key": "value"}
	ev := NewEvent(EventRunStart, data)

	if ev.Type != EventRunStart {
		t.Errorf("Type = %q, want %q", ev.Type, EventRunStart)
	}
	if ev.Data["key"] != "value" {
		t.Errorf("Data[key] = %v, want %q", ev.Data["key"], "value")
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
}

func TestEventJSON(t *testing.T) {
	ts := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	ev := Event{
		Timestamp: ts,
		Type:      EventTrial,
		Data:      TrialData("llama3.2", "ollama", "Write exactly 25 words", okTrial(25, 1, 25), false),
	}

	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Type != EventTrial {
		t.Errorf("decoded.Type = %q, want %q", decoded.Type, EventTrial)
	}
	if !decoded.Timestamp.Equal(ts) {
		t.Errorf("decoded.Timestamp = %v, want %v", decoded.Timestamp, ts)
	}
	if decoded.Data["model"] != "llama3.2" {
		t.Errorf("model = %v, want %q", decoded.Data["model"], "llama3.2")
	}
}

func TestRunStartData(t *testing.T) {
	d := RunStartData("run-20260310-091500", "nightly", []string{"llama3.2", "mistral"}, 12)
	if d["run_id"] != "run-20260310-091500" {
		t.Errorf("run_id = %v", d["run_id"])
	}
	if d["total_trials"] != 12 {
		t.Errorf("total_trials = %v", d["total_trials"])
	}
}

func TestTrialData_Success(t *testing.T) {
	d := TrialData("llama3.2", "ollama", "prompt text", okTrial(25, 2, 27), true)
	if d["model"] != "llama3.2" {
		t.Errorf("model = %v", d["model"])
	}
	if d["actual_words"] != 27 {
		t.Errorf("actual_words = %v", d["actual_words"])
	}
	if d["deviation"] != 2 {
		t.Errorf("deviation = %v", d["deviation"])
	}
	if d["cached"] != true {
		t.Errorf("cached = %v", d["cached"])
	}
	if _, present := d["error"]; present {
		t.Error("successful trial should not carry an error field")
	}
}

func TestTrialData_Failure(t *testing.T) {
	d := TrialData("gpt-4o", "openai", "prompt text", failedTrial(50, 1, "rate limited"), false)
	if d["error"] != "rate limited" {
		t.Errorf("error = %v", d["error"])
	}
	if _, present := d["actual_words"]; present {
		t.Error("failed trial should not carry word counts")
	}
	if _, present := d["cached"]; present {
		t.Error("uncached trial should not carry the cached flag")
	}
}

func TestErrorData(t *testing.T) {
	d := ErrorData("engine unreachable", map[string]any{"provider": "ollama"})
	if d["message"] != "engine unreachable" {
		t.Errorf("message = %v", d["message"])
	}
	if d["provider"] != "ollama" {
		t.Errorf("provider = %v", d["provider"])
	}
}

func TestJSONLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-trials.jsonl")

	logger, err := NewJSONLogger(path)
	if err != nil {
		t.Fatalf("NewJSONLogger: %v", err)
	}

	events := []Event{
		NewEvent(EventRunStart, RunStartData("run-1", "nightly", []string{"llama3.2"}, 2)),
		NewEvent(EventTrial, TrialData("llama3.2", "ollama", "p", okTrial(10, 1, 10), false)),
		NewEvent(EventTrial, TrialData("llama3.2", "ollama", "p", failedTrial(10, 2, "boom"), false)),
		NewEvent(EventRunEnd, RunCompleteData("run-1", 2, 1, false, 150)),
	}

	for _, ev := range events {
		if err := logger.Log(ev); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Verify the file was written with one JSON object per line
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}

	var first Event
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("Unmarshal line 0: %v", err)
	}
	if first.Type != EventRunStart {
		t.Errorf("first event type = %q, want %q", first.Type, EventRunStart)
	}
}

func TestJSONLoggerPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "test.jsonl")

	logger, err := NewJSONLogger(path)
	if err != nil {
		t.Fatalf("NewJSONLogger with subdirectory: %v", err)
	}
	defer logger.Close() //nolint:errcheck

	if logger.Path() != path {
		t.Errorf("Path() = %q, want %q", logger.Path(), path)
	}
}

func TestNopLogger(t *testing.T) {
	var logger Logger = NopLogger{}
	if err := logger.Log(NewEvent(EventRunStart, nil)); err != nil {
		t.Errorf("NopLogger.Log should not error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("NopLogger.Close should not error: %v", err)
	}
}

func TestDefaultLogPath(t *testing.T) {
	p := DefaultLogPath("/tmp/trials")
	if filepath.Dir(p) != "/tmp/trials" {
		t.Errorf("dir = %q, want /tmp/trials", filepath.Dir(p))
	}
	if ext := filepath.Ext(p); ext != ".jsonl" {
		t.Errorf("ext = %q, want .jsonl", ext)
	}
}

func TestListLogs(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{
		"20260310T100000Z-trials.jsonl",
		"20260311T100000Z-trials.jsonl",
		"not-a-trial-log.txt",
	} {
		os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0644) //nolint:errcheck
	}

	files, err := ListLogs(dir)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
}

func TestListLogsNoDir(t *testing.T) {
	_, err := ListLogs("/nonexistent/dir")
	if err == nil {
		t.Error("expected error for nonexistent directory")
	}
}

func TestReadEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-trials.jsonl")

	logger, err := NewJSONLogger(path)
	if err != nil {
		t.Fatalf("NewJSONLogger: %v", err)
	}
	logger.Log(NewEvent(EventRunStart, RunStartData("run-1", "n", []string{"m"}, 1)))   //nolint:errcheck
	logger.Log(NewEvent(EventTrial, TrialData("m", "mock", "p", okTrial(10, 1, 10), false))) //nolint:errcheck
	logger.Log(NewEvent(EventRunEnd, RunCompleteData("run-1", 1, 1, false, 10)))        //nolint:errcheck
	logger.Close()                                                                      //nolint:errcheck

	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Type != EventRunStart {
		t.Errorf("events[0].Type = %q", events[0].Type)
	}
	if events[2].Type != EventRunEnd {
		t.Errorf("events[2].Type = %q", events[2].Type)
	}
}

func TestReadEventsSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-trials.jsonl")

	content := `{"timestamp":"2026-03-10T10:00:00Z","type":"run_start","data":{}}
not valid json
{"timestamp":"2026-03-10T10:00:01Z","type":"run_complete","data":{}}
`
	os.WriteFile(path, []byte(content), 0644) //nolint:errcheck

	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (malformed line skipped)", len(events))
	}
}

func TestRenderTimeline(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, Type: EventRunStart, Data: RunStartData("run-1", "nightly", []string{"llama3.2"}, 2)},
		{Timestamp: base.Add(100 * time.Millisecond), Type: EventTrial, Data: TrialData("llama3.2", "ollama", "p", okTrial(25, 1, 25), false)},
		{Timestamp: base.Add(200 * time.Millisecond), Type: EventTrial, Data: TrialData("llama3.2", "ollama", "p", failedTrial(25, 2, "connection reset"), false)},
		{Timestamp: base.Add(300 * time.Millisecond), Type: EventError, Data: ErrorData("something broke", nil)},
		{Timestamp: base.Add(400 * time.Millisecond), Type: EventRunEnd, Data: RunCompleteData("run-1", 2, 1, false, 400)},
	}

	var buf bytes.Buffer
	RenderTimeline(&buf, events)

	output := buf.String()
	if !bytes.Contains([]byte(output), []byte("TRIAL TIMELINE")) {
		t.Error("output should contain TRIAL TIMELINE header")
	}
	if !bytes.Contains([]byte(output), []byte("llama3.2")) {
		t.Error("output should contain model name")
	}
	if !bytes.Contains([]byte(output), []byte("connection reset")) {
		t.Error("output should contain trial error message")
	}
	if !bytes.Contains([]byte(output), []byte("something broke")) {
		t.Error("output should contain error message")
	}
	if !bytes.Contains([]byte(output), []byte("Run complete")) {
		t.Error("output should contain run completion line")
	}
}

func TestRenderTimelineEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderTimeline(&buf, nil)
	if !bytes.Contains(buf.Bytes(), []byte("No events found.")) {
		t.Error("empty events should print 'No events found.'")
	}
}

func TestRenderTimelineLatencySummary(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	fast := okTrial(10, 1, 10)
	fast.DurationMs = 100
	mid := okTrial(10, 2, 12)
	mid.DurationMs = 200
	slow := okTrial(10, 3, 10)
	slow.DurationMs = 900

	events := []Event{
		{Timestamp: base, Type: EventTrial, Data: TrialData("llama3.2", "ollama", "p", fast, false)},
		{Timestamp: base.Add(time.Second), Type: EventTrial, Data: TrialData("llama3.2", "ollama", "p", mid, false)},
		{Timestamp: base.Add(2 * time.Second), Type: EventTrial, Data: TrialData("llama3.2", "ollama", "p", slow, false)},
		{Timestamp: base.Add(3 * time.Second), Type: EventTrial, Data: TrialData("llama3.2", "ollama", "p", failedTrial(10, 4, "timeout"), false)},
	}

	var buf bytes.Buffer
	RenderTimeline(&buf, events)

	// Failed trials are excluded, so the quantiles run over 100/200/900.
	want := "Trial latency: p50 200ms  p90 760ms  max 900ms"
	if !bytes.Contains(buf.Bytes(), []byte(want)) {
		t.Errorf("output should contain %q, got:\n%s", want, buf.String())
	}
}
