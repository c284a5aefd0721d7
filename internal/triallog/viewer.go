package triallog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wordbench/wordbench/internal/statistics"
)

// LogFile represents a trial log file on disk.
type LogFile struct {
	Path      string
	Name      string
	Size      int64
	ModTime   time.Time
	NumEvents int
}

// ListLogs finds .jsonl trial log files in dir.
func ListLogs(dir string) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading trial log directory: %w", err)
	}

	var files []LogFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), "-trials.jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, e.Name())
		n, _ := countLines(path) //nolint:errcheck
		files = append(files, LogFile{
			Path:      path,
			Name:      e.Name(),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			NumEvents: n,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck
	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// ReadEvents parses all events from a trial log file.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trial log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var events []Event
	scanner := bufio.NewScanner(f)
	// Increase buffer for large lines; responses can run to hundreds of words.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue // skip malformed lines
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trial log: %w", err)
	}
	return events, nil
}

// RenderTimeline writes a human-readable trial timeline to w.
//
//nolint:errcheck // display-only writes; errors are not actionable
func RenderTimeline(w io.Writer, events []Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w, " TRIAL TIMELINE")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	start := events[0].Timestamp
	for _, ev := range events {
		elapsed := ev.Timestamp.Sub(start)
		ts := formatDuration(elapsed)

		switch ev.Type {
		case EventRunStart:
			runID, _ := ev.Data["run_id"].(string)       //nolint:errcheck
			specName, _ := ev.Data["spec_name"].(string) //nolint:errcheck
			total := jsonNumber(ev.Data["total_trials"])
			fmt.Fprintf(w, "[%s] 🚀 Run started  id=%s  spec=%s  trials=%d\n", ts, runID, specName, total)

		case EventTrial:
			model, _ := ev.Data["model"].(string)   //nolint:errcheck
			topic, _ := ev.Data["topic"].(string)   //nolint:errcheck
			status, _ := ev.Data["status"].(string) //nolint:errcheck
			target := jsonNumber(ev.Data["target"])
			trialIndex := jsonNumber(ev.Data["trial_index"])
			dur := jsonNumber(ev.Data["duration_ms"])

			if status != "ok" {
				msg, _ := ev.Data["error"].(string) //nolint:errcheck
				fmt.Fprintf(w, "[%s] ✗  %s target=%d trial=%d: %s\n", ts, model, target, trialIndex, msg)
				continue
			}

			actual := jsonNumber(ev.Data["actual_words"])
			deviation := jsonNumber(ev.Data["deviation"])
			icon := "~"
			if deviation == 0 {
				icon = "✓"
			}
			cached := ""
			if c, ok := ev.Data["cached"].(bool); ok && c {
				cached = " (cached)"
			}
			fmt.Fprintf(w, "[%s] %s  %s target=%d trial=%d words=%d dev=%d topic=%q (%dms)%s\n",
				ts, icon, model, target, trialIndex, actual, deviation, topic, dur, cached)

		case EventError:
			msg, _ := ev.Data["message"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ❌ Error: %s\n", ts, msg)

		case EventRunEnd:
			total := jsonNumber(ev.Data["total_trials"])
			exact := jsonNumber(ev.Data["exact_matches"])
			dur := jsonNumber(ev.Data["duration_ms"])
			note := ""
			if interrupted, ok := ev.Data["interrupted"].(bool); ok && interrupted {
				note = "  [interrupted]"
			}
			fmt.Fprintf(w, "[%s] 🏁 Run complete  %d/%d exact  (%dms)%s\n", ts, exact, total, dur, note)

		default:
			fmt.Fprintf(w, "[%s] %s %v\n", ts, ev.Type, ev.Data)
		}
	}

	if durations := completedTrialDurations(events); len(durations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Trial latency: p50 %.0fms  p90 %.0fms  max %.0fms\n",
			statistics.Quantile(durations, 0.5),
			statistics.Quantile(durations, 0.9),
			statistics.Quantile(durations, 1.0))
	}
	fmt.Fprintln(w)
}

// completedTrialDurations collects duration_ms from every successful trial
// event for the latency summary under the timeline.
func completedTrialDurations(events []Event) []float64 {
	var out []float64
	for _, ev := range events {
		if ev.Type != EventTrial {
			continue
		}
		status, _ := ev.Data["status"].(string) //nolint:errcheck
		if status != "ok" {
			continue
		}
		out = append(out, float64(jsonNumber(ev.Data["duration_ms"])))
	}
	return out
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%6dms", d.Milliseconds())
	}
	return fmt.Sprintf("%6.1fs", d.Seconds())
}

// jsonNumber extracts a number from event data, either JSON-decoded
// (float64, json.Number) or built in process (int, int64).
func jsonNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		i, _ := n.Int64() //nolint:errcheck
		return int(i)
	}
	return 0
}
