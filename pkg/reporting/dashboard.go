/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dashboard.go
Description: HTML dashboard for analysis reports. Renders one page per run with the run
summary, a row per field and the most frequent values of each field histogram.
*/

package reporting

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kleascm/fieldlens/pkg/core"
	"github.com/kleascm/fieldlens/pkg/histogram"
	"github.com/sirupsen/logrus"
)

// DefaultTopValues is the number of histogram buckets shown per field
const DefaultTopValues = 5

// DashboardGenerator renders HTML dashboards
type DashboardGenerator struct {
	outputDir string
	topValues int
	logger    logrus.FieldLogger
	templates *template.Template
	now       func() time.Time
}

// DashboardData is the view model handed to the template
type DashboardData struct {
	Title       string
	GeneratedAt time.Time
	Report      *core.Report
	Fields      []FieldRow
	Failed      int
	Rejected    int64
}

// FieldRow is one table row
type FieldRow struct {
	Path           string
	State          string
	Chain          string
	Interpretation string
	Accepted       int64
	Rejected       int64
	Top            []histogram.Bucket
	Warnings       []string
	Error          string
}

// NewDashboardGenerator creates a generator writing into outputDir
func NewDashboardGenerator(outputDir string, logger logrus.FieldLogger) *DashboardGenerator {
	if logger == nil {
		logger = logrus.New()
	}
	return &DashboardGenerator{
		outputDir: outputDir,
		topValues: DefaultTopValues,
		logger:    logger,
		templates: template.Must(template.New("dashboard").Parse(dashboardTemplate)),
		now:       time.Now,
	}
}

// GenerateDashboard writes the dashboard for report and returns its path
func (dg *DashboardGenerator) GenerateDashboard(report *core.Report) (string, error) {
	if err := os.MkdirAll(dg.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputFile := filepath.Join(dg.outputDir, fileName(dg.now(), report.RunID, "html"))
	file, err := os.Create(outputFile)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := dg.Render(file, report); err != nil {
		return "", err
	}

	dg.logger.Infof("Dashboard generated: %s", outputFile)
	return outputFile, nil
}

// Render executes the dashboard template for report
func (dg *DashboardGenerator) Render(out io.Writer, report *core.Report) error {
	if err := dg.templates.Execute(out, dg.prepare(report)); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

func (dg *DashboardGenerator) prepare(report *core.Report) *DashboardData {
	data := &DashboardData{
		Title:       "FieldLens",
		GeneratedAt: dg.now(),
		Report:      report,
		Failed:      report.Failed(),
	}
	for _, f := range report.Fields {
		row := FieldRow{
			Path:           f.Path,
			State:          f.State,
			Chain:          strings.Join(f.Chain, " → "),
			Interpretation: f.Interpretation,
			Accepted:       f.Accepted,
			Rejected:       f.Rejected,
			Warnings:       f.Warnings,
			Error:          f.Error,
		}
		if f.Metadata != nil {
			row.Top = topBuckets(f.Metadata.ValueHistogram.Values, dg.topValues)
			if overflow := f.Metadata.ValueHistogram.Overflow; overflow > 0 {
				row.Top = append(row.Top, histogram.Bucket{Value: histogram.OverflowKey, Frequency: overflow})
			}
		}
		data.Rejected += f.Rejected
		data.Fields = append(data.Fields, row)
	}
	return data
}

// topBuckets returns the n most frequent buckets, ties broken by value
func topBuckets(buckets []histogram.Bucket, n int) []histogram.Bucket {
	sorted := append([]histogram.Bucket(nil), buckets...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Frequency != sorted[j].Frequency {
			return sorted[i].Frequency > sorted[j].Frequency
		}
		return sorted[i].Value < sorted[j].Value
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
