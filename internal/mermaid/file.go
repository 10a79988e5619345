package mermaid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/lecture-archive/internal/lecture"
	"github.com/kingrea/lecture-archive/internal/logging"
	"github.com/kingrea/lecture-archive/internal/section"
)

// document is a JSON object that remembers the order of its keys so a
// rewrite only changes what was edited.
type document struct {
	keys   []string
	values map[string]json.RawMessage
}

func parseDocument(data []byte) (*document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("top-level value is not an object")
	}
	doc := &document{values: map[string]json.RawMessage{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if _, seen := doc.values[key]; !seen {
			doc.keys = append(doc.keys, key)
		}
		doc.values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level object")
	}
	return doc, nil
}

func (d *document) stringValue(key string) (string, bool) {
	raw, ok := d.values[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (d *document) setString(key, value string) error {
	raw, err := marshalNoEscape(value)
	if err != nil {
		return err
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = raw
	return nil
}

// encode writes the object with two-space indentation.
func (d *document) encode() ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			compact.WriteByte(',')
		}
		k, err := marshalNoEscape(key)
		if err != nil {
			return nil, err
		}
		compact.Write(k)
		compact.WriteByte(':')
		compact.Write(d.values[key])
	}
	compact.WriteByte('}')
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// marshalNoEscape keeps arrows like --> readable in the rewritten file.
func marshalNoEscape(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FixResult is the outcome of FixFile.
type FixResult struct {
	Path   string
	Fixed  bool
	Reason string
}

const (
	ReasonNoChart  = "no mermaid_chart"
	ReasonNoChange = "no changes needed"
	ReasonFixed    = "fixed parentheses with colons"
)

// FixFile applies Fix to the file's mermaid_chart and rewrites the file when
// the chart changed. Other keys keep their order and values.
func FixFile(path string) (FixResult, error) {
	result := FixResult{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return result, err
	}
	doc, err := parseDocument(data)
	if err != nil {
		return result, fmt.Errorf("mermaid: parse %s: %w", path, err)
	}
	chart, ok := doc.stringValue(Field)
	if !ok || chart == "" {
		result.Reason = ReasonNoChart
		return result, nil
	}
	fixed := Fix(chart)
	if fixed == chart {
		result.Reason = ReasonNoChange
		return result, nil
	}
	if err := doc.setString(Field, fixed); err != nil {
		return result, err
	}
	out, err := doc.encode()
	if err != nil {
		return result, err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return result, fmt.Errorf("mermaid: write %s: %w", path, err)
	}
	result.Fixed, result.Reason = true, ReasonFixed
	return result, nil
}

// Summary totals a FixAll run.
type Summary struct {
	Checked int
	Fixed   []FixResult
	Failed  []FixResult
}

// FixAll runs FixFile over data/<section>/*.json for every catalog section.
// Unreadable files are recorded and skipped.
func FixAll(ctx context.Context, dataDir string, catalog section.Catalog, log *logging.Logger) (Summary, error) {
	var summary Summary
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		return summary, fmt.Errorf("%w: %s", lecture.ErrMissingDataDir, dataDir)
	}
	for _, key := range catalog.Keys() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		dir := filepath.Join(dataDir, string(key))
		files, err := lecture.ListJSON(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return summary, fmt.Errorf("mermaid: list %s: %w", key, err)
		}
		log.Info("checking charts", "section", key, "files", len(files))
		for _, name := range files {
			summary.Checked++
			result, err := FixFile(filepath.Join(dir, name))
			switch {
			case err != nil:
				result.Reason = err.Error()
				summary.Failed = append(summary.Failed, result)
				log.Warn("chart not checked", "section", key, "file", name, "error", err)
			case result.Fixed:
				summary.Fixed = append(summary.Fixed, result)
				log.Info("chart fixed", "section", key, "file", name)
			}
		}
	}
	return summary, nil
}

// DiagnoseFile reads a lecture and diagnoses its chart. The boolean is false
// when the file has no chart.
func DiagnoseFile(path string) (Report, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, false, err
	}
	doc, err := parseDocument(data)
	if err != nil {
		return Report{}, false, fmt.Errorf("mermaid: parse %s: %w", path, err)
	}
	chart, ok := doc.stringValue(Field)
	if !ok || chart == "" {
		return Report{}, false, nil
	}
	return Diagnose(chart), true, nil
}

// ExpectedFields are the keys every lecture should carry.
var ExpectedFields = []string{"id", "title", "primary_verse", "main_theme"}

// ValidateFields checks a decoded lecture for expected keys and a usable
// chart.
func ValidateFields(raw map[string]any) []error {
	var errs []error
	for _, field := range ExpectedFields {
		value, ok := raw[field]
		if !ok || value == nil {
			errs = append(errs, fmt.Errorf("%s is required", field))
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Errorf("%s is empty", field))
		}
	}
	if value, ok := raw[Field]; ok && value != nil {
		if _, isString := value.(string); !isString {
			errs = append(errs, fmt.Errorf("%s must be a string", Field))
		}
	}
	return errs
}

// FileCheck is the result of checking one file.
type FileCheck struct {
	Path        string
	SyntaxErr   error
	HasChart    bool
	Chart       Report
	Problems    []error
	Reformatted bool
}

// Valid reports whether the file parsed as a JSON object.
func (c FileCheck) Valid() bool {
	return c.SyntaxErr == nil
}

// CheckOptions tune Check.
type CheckOptions struct {
	// Reformat rewrites valid files with two-space indentation after saving
	// the original alongside as <name>.backup.
	Reformat bool
}

// BackupSuffix is appended to the original file when reformatting.
const BackupSuffix = ".backup"

// Check walks dir for *.json files and reports syntax, chart shape and
// missing fields. Results are sorted by path.
func Check(ctx context.Context, dir string, opts CheckOptions) ([]FileCheck, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mermaid: walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	checks := make([]FileCheck, 0, len(paths))
	for _, path := range paths {
		check, err := checkFile(path, opts)
		if err != nil {
			return checks, err
		}
		checks = append(checks, check)
	}
	return checks, nil
}

func checkFile(path string, opts CheckOptions) (FileCheck, error) {
	check := FileCheck{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return check, fmt.Errorf("mermaid: read %s: %w", path, err)
	}
	doc, err := parseDocument(data)
	if err != nil {
		check.SyntaxErr = err
		return check, nil
	}
	raw, err := lecture.DecodeObject(data)
	if err != nil {
		check.SyntaxErr = err
		return check, nil
	}
	check.Problems = ValidateFields(raw)
	if chart, ok := doc.stringValue(Field); ok && chart != "" {
		check.HasChart = true
		check.Chart = Diagnose(chart)
	}
	if !opts.Reformat {
		return check, nil
	}
	out, err := doc.encode()
	if err != nil {
		return check, err
	}
	if bytes.Equal(out, data) {
		return check, nil
	}
	if err := os.WriteFile(path+BackupSuffix, data, 0o644); err != nil {
		return check, fmt.Errorf("mermaid: backup %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return check, fmt.Errorf("mermaid: reformat %s: %w", path, err)
	}
	check.Reformatted = true
	return check, nil
}
