// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package annotation

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	// VersionMagic is the expected file format version token.
	VersionMagic = "csv_v1.0.0"

	// headerLine is the column header that precedes data rows.
	headerLine = "channel,start_time,stop_time,label,confidence"

	// dataFieldCount is the exact field count of a data row.
	dataFieldCount = 5
)

var (
	// ErrMissingVersion indicates the metadata block carries no version key.
	ErrMissingVersion = errors.New("annotation file missing version metadata")

	// ErrVersionMismatch indicates an unsupported format version.
	ErrVersionMismatch = errors.New("unsupported annotation file version")
)

// -----------------------------------------------------------------------------
// Parser
// -----------------------------------------------------------------------------

// Parser reads csv_bi annotation files.
//
// The format is line-oriented: `# key = value` metadata comments, one
// column-header line, then comma-separated data rows with exactly five
// fields. Malformed data rows are skipped with a warning; parsing never
// aborts on a bad row.
//
// Thread Safety: Parser is stateless; safe for concurrent use.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a Parser. A nil logger falls back to slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseFile reads and parses the annotation file at path.
//
// Outputs:
//   - *AnnotationFile: The parsed track. Nil on error.
//   - error: Non-nil on I/O failure or version mismatch. Malformed data
//     rows are not errors; they are skipped with a warning.
func (p *Parser) ParseFile(path string) (*AnnotationFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotation file: %w", err)
	}
	defer f.Close()
	af, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return af, nil
}

// ParseBytes parses an in-memory annotation blob.
func (p *Parser) ParseBytes(data []byte) (*AnnotationFile, error) {
	return p.Parse(bytes.NewReader(data))
}

// Parse reads an annotation track from r.
//
// Metadata keys recognised: version, bname, patient, duration,
// montage_file. Unknown keys are ignored. The duration value accepts an
// optional trailing "secs" unit.
func (p *Parser) Parse(r io.Reader) (*AnnotationFile, error) {
	af := &AnnotationFile{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			p.parseMetadata(af, strings.TrimSpace(strings.TrimPrefix(line, "#")))
		case strings.EqualFold(line, headerLine):
			continue
		default:
			ev, ok := p.parseDataRow(line, lineNo)
			if ok {
				af.Events = append(af.Events, ev)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read annotation stream: %w", err)
	}

	if af.Version == "" {
		return nil, ErrMissingVersion
	}
	if af.Version != VersionMagic {
		return nil, fmt.Errorf("%w: got %q want %q", ErrVersionMismatch, af.Version, VersionMagic)
	}

	af.SortEvents()

	// Duration must cover every event; extend it if the metadata under-reports.
	for _, ev := range af.Events {
		if ev.StopTime > af.Duration {
			p.logger.Warn("event extends past declared duration; extending",
				"stop_time", ev.StopTime, "duration", af.Duration)
			af.Duration = ev.StopTime
		}
	}
	return af, nil
}

// parseMetadata handles one `key = value` comment payload.
func (p *Parser) parseMetadata(af *AnnotationFile, payload string) {
	key, value, found := strings.Cut(payload, "=")
	if !found {
		return
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	switch key {
	case "version":
		af.Version = value
	case "bname":
		af.Session = value
	case "patient":
		af.Patient = value
	case "duration":
		value = strings.TrimSpace(strings.TrimSuffix(value, "secs"))
		if dur, err := strconv.ParseFloat(value, 64); err == nil && dur >= 0 {
			af.Duration = dur
		} else {
			p.logger.Warn("unparseable duration metadata", "value", value)
		}
	case "montage_file":
		// Recorded in the file but unused by the scoring core.
	}
}

// parseDataRow parses one comma-separated data row. Returns ok=false for
// rows that are malformed or fail event validation.
func (p *Parser) parseDataRow(line string, lineNo int) (Event, bool) {
	fields := strings.Split(line, ",")
	if len(fields) != dataFieldCount {
		p.logger.Warn("skipping malformed annotation row",
			"line", lineNo, "fields", len(fields))
		return Event{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	start, err1 := strconv.ParseFloat(fields[1], 64)
	stop, err2 := strconv.ParseFloat(fields[2], 64)
	conf, err3 := strconv.ParseFloat(fields[4], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		p.logger.Warn("skipping annotation row with non-numeric fields", "line", lineNo)
		return Event{}, false
	}

	ev := Event{
		Channel:    fields[0],
		StartTime:  start,
		StopTime:   stop,
		Label:      strings.ToLower(fields[3]),
		Confidence: conf,
	}
	if err := ev.Validate(); err != nil {
		p.logger.Warn("skipping invalid annotation row", "line", lineNo, "error", err)
		return Event{}, false
	}
	return ev, true
}
