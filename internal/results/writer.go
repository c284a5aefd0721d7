// Package results persists benchmark reports: JSON files on disk, with
// optional gzip compression, and optional publication to Azure Blob
// Storage for sharing runs across a team.
package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/wordbench/wordbench/internal/models"
)

// DefaultReportPath returns the conventional report location for a run.
func DefaultReportPath(dir, runID string, compressed bool) string {
	name := runID + ".json"
	if compressed {
		name += ".gz"
	}
	return filepath.Join(dir, name)
}

// WriteReport writes a report as indented JSON. A path ending in .gz is
// gzip compressed; parent directories are created as needed.
func WriteReport(report *models.BenchmarkReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}

	if strings.HasSuffix(path, ".gz") {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("compressing report: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compressing report: %w", err)
		}
		data = buf.Bytes()
	}

	return os.WriteFile(path, data, 0644)
}

// LoadReport reads a report written by WriteReport, decompressing .gz
// files transparently.
func LoadReport(path string) (*models.BenchmarkReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decompressing report: %w", err)
		}
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompressing report: %w", err)
		}
		if err := zr.Close(); err != nil {
			return nil, fmt.Errorf("decompressing report: %w", err)
		}
	}

	var report models.BenchmarkReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &report, nil
}

// ReportFile describes one stored report.
type ReportFile struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// ListReports returns the reports in a directory, newest first. Both plain
// and compressed reports are listed.
func ListReports(dir string) ([]ReportFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading results directory: %w", err)
	}

	var reports []ReportFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".json.gz") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, ReportFile{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ModTime.After(reports[j].ModTime)
	})
	return reports, nil
}
