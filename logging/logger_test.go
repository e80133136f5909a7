package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerIsCachedPerComponent(t *testing.T) {
	t.Setenv("CCTV_HOME", t.TempDir())

	first := NewLogger("test-component")
	require.NotNil(t, first)
	assert.Equal(t, "test-component", first.Data["component"])
	assert.Same(t, first, NewLogger("test-component"))
}

func TestBuildWritesToSink(t *testing.T) {
	var buf bytes.Buffer
	entry := Build("scheduler", Config{}, []io.Writer{&buf})

	entry.WithField("frame", "x.jpg").Info("Frame written")

	output := buf.String()
	assert.Contains(t, output, "[INFO]")
	assert.Contains(t, output, "[scheduler]")
	assert.Contains(t, output, "Frame written")
	assert.Contains(t, output, "frame=x.jpg")
}

func TestBuildLevelFromEnvOverridesConfig(t *testing.T) {
	t.Setenv("CCTV_LOG_LEVEL", "error")

	var buf bytes.Buffer
	entry := Build("booster", Config{Level: "debug"}, []io.Writer{&buf})
	entry.Warn("hidden")
	entry.Error("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestBuildJSONPreset(t *testing.T) {
	t.Setenv("CCTV_LOG_LEVEL", "")

	var buf bytes.Buffer
	entry := Build("supervisor", Config{Format: FormatConfig{Preset: "json"}}, []io.Writer{&buf})
	entry.Info("hello")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "supervisor", decoded["component"])
	assert.Equal(t, "hello", decoded["msg"])
}

func TestBuildWithoutSinksDiscards(t *testing.T) {
	entry := Build("quiet", Config{}, nil)
	assert.Equal(t, io.Discard, entry.Logger.Out)
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "test message",
				Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
				Data: logrus.Fields{
					"component": "test-component",
					"key1":      "value1",
				},
			},
			want: []string{"2024-01-02 03:04:05", "[INFO]", "[test-component]", "test message", "key1=value1"},
		},
		{
			name: "simple format",
			config: FormatConfig{
				DisableTimestamp: true,
				DisableComponent: true,
			},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "careful",
				Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
				Data:    logrus.Fields{"component": "hidden"},
			},
			want:    []string{"[WARN]", "careful"},
			notWant: []string{"2024-01-02", "hidden"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &TextFormatter{Config: tt.config}
			out, err := f.Format(tt.entry)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, string(out), w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, string(out), nw)
			}
		})
	}
}

func TestTextFormatterSortsFields(t *testing.T) {
	f := &TextFormatter{Config: FormatConfig{DisableTimestamp: true}}
	out, err := f.Format(&logrus.Entry{
		Level:   logrus.InfoLevel,
		Message: "m",
		Data:    logrus.Fields{"zeta": 1, "alpha": 2},
	})
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(out), "alpha="), strings.Index(string(out), "zeta="))
}

func TestDefaultSinksCreatesLogFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CCTV_HOME", home)

	writers := defaultSinks("cctv", Config{Format: FormatConfig{StructuredToStderr: "never"}})
	require.Len(t, writers, 1)

	matches, err := filepath.Glob(filepath.Join(home, "state", "cctv", "logs", "cctv-*.log"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	if f, ok := writers[0].(*os.File); ok {
		f.Close()
	}
}
