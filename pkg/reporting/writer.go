/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: writer.go
Description: Writes analysis reports to the report directory as JSON or YAML files with
timestamped, run-specific names.
*/

package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kleascm/fieldlens/pkg/core"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Supported report formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// timestampLayout prefixes every report file name
const timestampLayout = "2006-01-02_15-04-05"

// Writer persists reports under a directory
type Writer struct {
	dir    string
	format string
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewWriter creates a writer for the given directory and format
func NewWriter(dir, format string, logger logrus.FieldLogger) (*Writer, error) {
	format = strings.ToLower(format)
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Writer{dir: dir, format: format, logger: logger, now: time.Now}, nil
}

// Write stores the report and returns the file path.
// Files are named like 2024-06-11_01-30-00_3f2a9c1d.json.
func (w *Writer) Write(report *core.Report) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	filePath := filepath.Join(w.dir, fileName(w.now(), report.RunID, w.format))
	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := Encode(file, report, w.format); err != nil {
		return "", err
	}

	w.logger.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"fields": len(report.Fields),
		"file":   filePath,
	}).Info("Report written")
	return filePath, nil
}

// Encode writes value to out as indented JSON or YAML. It serves full reports as well
// as the smaller documents printed by the command line.
func Encode(out io.Writer, value interface{}, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(value); err != nil {
			return fmt.Errorf("failed to encode %s output: %w", format, err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return fmt.Errorf("failed to encode %s output: %w", format, err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	return nil
}

func fileName(at time.Time, runID, ext string) string {
	id := runID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return fmt.Sprintf("%s.%s", at.Format(timestampLayout), ext)
	}
	return fmt.Sprintf("%s_%s.%s", at.Format(timestampLayout), id, ext)
}
