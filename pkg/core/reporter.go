/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter hooks for analysis events, and the logging reporter the engine
always installs.
*/

package core

import (
	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/logging"
	"github.com/kleascm/fieldlens/pkg/source"
)

// Reporter receives analysis events. Methods may be called from several goroutines.
type Reporter interface {
	// OnChainFixed is called once per field after its chain is fixed
	OnChainFixed(field *Field)
	// OnClassificationWarning is called for each faulting check seen while sampling
	OnClassificationWarning(path string, warning *interpretation.ClassificationError)
	// OnValueRejected is called for each value the fixed chain does not accept
	OnValueRejected(path string, value interface{}, err error)
	// OnRecordSkipped is called for each undecodable record skipped while streaming
	OnRecordSkipped(err *source.RecordError)
	// OnFieldFailed is called once when a field fails
	OnFieldFailed(path string, err error)
	// OnRunFinished is called with the completed report
	OnRunFinished(report *Report)
}

// LoggerReporter forwards events to the structured logger
type LoggerReporter struct {
	logger *logging.Logger
}

// NewLoggerReporter creates a new LoggerReporter
func NewLoggerReporter(logger *logging.Logger) *LoggerReporter {
	return &LoggerReporter{logger: logger}
}

func (r *LoggerReporter) OnChainFixed(field *Field) {
	r.logger.LogChainFixed(field.Path, field.Chain().Names(), field.Votes())
}

func (r *LoggerReporter) OnClassificationWarning(path string, warning *interpretation.ClassificationError) {
	r.logger.LogClassificationWarning(path, warning.Interpretation, warning.Depth, warning.Err)
}

func (r *LoggerReporter) OnValueRejected(path string, value interface{}, err error) {
	r.logger.LogRejectedValue(path, value, err)
}

func (r *LoggerReporter) OnRecordSkipped(err *source.RecordError) {
	r.logger.LogInvalidRecord(err.Source, err.Line, err.Err)
}

func (r *LoggerReporter) OnFieldFailed(path string, err error) {
	r.logger.LogFieldFailed(path, err)
}

func (r *LoggerReporter) OnRunFinished(report *Report) {
	r.logger.LogRunStats(report.RunID, report.Records, len(report.Fields), report.Failed(), report.Duration)
}
