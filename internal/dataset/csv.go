// Package dataset loads topic pools from CSV files. A topics file replaces
// the built-in pool so a benchmark can control the subject matter its
// prompts ask about.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// TopicColumn is the header the topic pool is read from.
const TopicColumn = "topic"

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// LoadCSV reads a CSV file and returns rows as maps of column to value.
// The first row is treated as headers (column names).
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("csv: row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// LoadTopics reads the topic pool from a CSV file. The file must carry a
// "topic" column (matched case-insensitively); blank cells are skipped and
// values keep their row order.
func LoadTopics(path string) ([]string, error) {
	rows, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("topics: %s has no data rows", path)
	}

	column := ""
	for header := range rows[0] {
		if strings.EqualFold(header, TopicColumn) {
			column = header
			break
		}
	}
	if column == "" {
		return nil, fmt.Errorf("topics: %s has no %q column", path, TopicColumn)
	}

	var topics []string
	for _, row := range rows {
		topic := strings.TrimSpace(row[column])
		if topic == "" {
			continue
		}
		topics = append(topics, topic)
	}

	if len(topics) == 0 {
		return nil, fmt.Errorf("topics: %s has no non-empty topics", path)
	}

	return topics, nil
}
