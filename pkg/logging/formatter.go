/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Custom log formatter for fieldlens. Single-line output with optional colors,
a short prefix for analysis events, and structured fields in key order.
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CustomFormatter renders compact, human-oriented log lines
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

// Format formats a log entry
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var output strings.Builder

	if f.Timestamp {
		f.write(&output, 36, entry.Time.Format("2006-01-02 15:04:05.000"))
		output.WriteByte(' ')
	}

	f.write(&output, f.getLevelColor(entry.Level), strings.ToUpper(entry.Level.String()))
	output.WriteByte(' ')

	if prefix := eventPrefix(entry.Message); prefix != "" {
		f.write(&output, 35, "["+prefix+"]")
		output.WriteByte(' ')
	}

	if f.Caller && entry.HasCaller() {
		f.write(&output, 33, fmt.Sprintf("[%s:%d]", entry.Caller.File, entry.Caller.Line))
		output.WriteByte(' ')
	}

	output.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		output.WriteByte(' ')
		output.WriteString(f.formatFields(entry.Data))
	}

	output.WriteByte('\n')
	return []byte(output.String()), nil
}

func (f *CustomFormatter) write(b *strings.Builder, color int, s string) {
	if f.Colors {
		fmt.Fprintf(b, "\033[%dm%s\033[0m", color, s)
		return
	}
	b.WriteString(s)
}

// getLevelColor returns the ANSI color code for a log level
func (f *CustomFormatter) getLevelColor(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return 37 // White
	case logrus.InfoLevel:
		return 32 // Green
	case logrus.WarnLevel:
		return 33 // Yellow
	case logrus.ErrorLevel:
		return 31 // Red
	default:
		return 35 // Magenta
	}
}

// eventPrefix tags the analysis events emitted by the Logger helpers
func eventPrefix(message string) string {
	switch message {
	case "Chain fixed":
		return "CHAIN"
	case "Classification check failed":
		return "CLASSIFY"
	case "Value rejected":
		return "REJECT"
	case "Record skipped":
		return "RECORD"
	case "Field failed":
		return "FIELD"
	case "Analysis finished":
		return "STATS"
	default:
		return ""
	}
}

// formatFields renders fields sorted by key
func (f *CustomFormatter) formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value := formatValue(fields[key])
		if f.Colors {
			parts = append(parts, fmt.Sprintf("\033[34m%s\033[0m=\033[32m%s\033[0m", key, value))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", key, value))
		}
	}
	return strings.Join(parts, " ")
}

// formatValue formats a field value
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("15:04:05.000")
	case error:
		return v.Error()
	case string:
		if len(v) > 80 {
			return v[:80] + "..."
		}
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
