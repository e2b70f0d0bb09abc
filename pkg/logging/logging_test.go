/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logging_test.go
Description: Tests for logger configuration, file output, formatting and the analysis
logging helpers.
*/

package logging_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kleascm/fieldlens/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoggerConfigValidate tests rejection of bad formats, levels and file limits
func TestLoggerConfigValidate(t *testing.T) {
	assert.NoError(t, logging.DefaultLoggerConfig().Validate())

	cfg := logging.DefaultLoggerConfig()
	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = logging.DefaultLoggerConfig()
	cfg.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = logging.DefaultLoggerConfig()
	cfg.OutputDir = t.TempDir()
	cfg.MaxFiles = 0
	assert.Error(t, cfg.Validate())
}

// TestLoggerWritesFile tests that entries land in a timestamped file
func TestLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelDebug,
		Format:    logging.LogFormatJSON,
		OutputDir: dir,
		MaxFiles:  3,
		Timestamp: true,
	})
	require.NoError(t, err)

	logger.LogChainFixed("user.age", []string{"number"}, map[string]int{"number": 3})
	path := logger.LogFilePath()
	require.NotEmpty(t, path)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"field":"user.age"`)
	assert.Contains(t, string(data), "Chain fixed")
}

// TestLoggerPrunesOldFiles tests that Close keeps at most MaxFiles log files
func TestLoggerPrunesOldFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"fieldlens_2020-01-01_00-00-00.000.log", "fieldlens_2020-01-02_00-00-00.000.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelInfo,
		Format:    logging.LogFormatText,
		OutputDir: dir,
		MaxFiles:  1,
	})
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "fieldlens_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.False(t, strings.Contains(files[0], "2020-01-01"))
}

// TestAnalysisHelpers tests the level and fields of each helper
func TestAnalysisHelpers(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	logger := logging.Wrap(base)

	logger.LogRejectedValue("tags[]", 42, errors.New("mismatch"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, "tags[]", hook.LastEntry().Data["field"])

	logger.LogClassificationWarning("a", "date", 1, errors.New("lookup"))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "date", hook.LastEntry().Data["interpretation"])

	logger.LogFieldFailed("b", errors.New("boom"))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "Field failed", hook.LastEntry().Message)

	logger.LogInvalidRecord("in.ndjson", 7, errors.New("bad json"))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 7, hook.LastEntry().Data["line"])
	assert.Equal(t, "in.ndjson", hook.LastEntry().Data["source"])

	logger.LogRunStats("run-1", 10, 4, 1, time.Second)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, int64(10), hook.LastEntry().Data["records"])

	assert.Len(t, hook.AllEntries(), 5)
}

// TestWrapNilDiscards tests that a nil logger is safe to use
func TestWrapNilDiscards(t *testing.T) {
	logger := logging.Wrap(nil)
	assert.NotPanics(t, func() {
		logger.LogFieldFailed("x", errors.New("ignored"))
	})
	assert.NotNil(t, logger.FieldLogger())
	assert.NoError(t, logger.Close())
}

// TestCustomFormatter tests prefixes and sorted fields without colors
func TestCustomFormatter(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logging.CustomFormatter{})

	base.WithFields(logrus.Fields{"field": "a", "chain": "string"}).Info("Chain fixed")
	assert.Equal(t, "INFO [CHAIN] Chain fixed chain=string field=a\n", buf.String())

	buf.Reset()
	base.WithField("line", 3).Warn("Record skipped")
	assert.Equal(t, "WARNING [RECORD] Record skipped line=3\n", buf.String())

	buf.Reset()
	base.Warn("plain")
	assert.Equal(t, "WARNING plain\n", buf.String())
}
