package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"inatscraper/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"disabled", &config.LoggingConfig{Level: "disabled"}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"fatal is not offered", &config.LoggingConfig{Level: "fatal"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewWithOptions(tt.cfg, Options{Console: &bytes.Buffer{}})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewWithOptions() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && l == nil {
				t.Error("NewWithOptions() returned nil logger")
			}
		})
	}
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	var console bytes.Buffer

	l, err := NewWithOptions(&config.LoggingConfig{Level: "info", File: path}, Options{
		Console: &console,
		NoColor: true,
	})
	require.NoError(t, err)

	l.WithField("category", "Boletus_edulis").Info("Category done")
	l.Debug("filtered out")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"category":"Boletus_edulis"`)
	assert.Contains(t, string(data), `"app":"inatscraper"`)
	assert.NotContains(t, string(data), "filtered out")

	assert.Contains(t, console.String(), "Category done")
	assert.NotContains(t, console.String(), "\033[")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	cases := map[string]func(string){
		"debug": l.Debug,
		"info":  l.Info,
		"warn":  l.Warn,
		"error": l.Error,
	}

	for level, logFn := range cases {
		t.Run(level, func(t *testing.T) {
			buf.Reset()
			logFn(level + " message")
			if !strings.Contains(buf.String(), level+" message") {
				t.Errorf("%s message not found in output", level)
			}
			if !strings.Contains(buf.String(), `"level":"`+level+`"`) {
				t.Errorf("level %s not recorded", level)
			}
		})
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := newBufferLogger(&buf)

	child := parent.WithField("category", "Amanita_muscaria")
	child.Info("child")
	parent.Info("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"category":"Amanita_muscaria"`)
	assert.NotContains(t, lines[1], "category")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	if l.WithError(nil) != Logger(l) {
		t.Error("WithError(nil) should return the same logger")
	}

	l.WithError(errors.New("connection reset")).Error("fetch failed")
	assert.Contains(t, buf.String(), "fetch failed")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.WithField("run_id", "abc").InfoWithFields("Category finished", map[string]interface{}{
		"category":   "Boletus_edulis",
		"downloaded": 10,
		"exhausted":  true,
	})

	output := buf.String()
	assert.Contains(t, output, `"run_id":"abc"`)
	assert.Contains(t, output, `"category":"Boletus_edulis"`)
	assert.Contains(t, output, `"downloaded":10`)
	assert.Contains(t, output, `"exhausted":true`)
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.WithFields(map[string]interface{}{
		"string":   "test",
		"int":      123,
		"int64":    int64(456),
		"float":    3.5,
		"time":     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": 5 * time.Second,
		"strings":  []string{"a", "b"},
		"ints":     []int{1, 2},
		"cause":    errors.New("boom"),
		"custom":   struct{ Name string }{Name: "test"},
	}).Info("all types")

	output := buf.String()
	assert.Contains(t, output, `"int64":456`)
	assert.Contains(t, output, `"strings":["a","b"]`)
	assert.Contains(t, output, `"cause":"boom"`)
	assert.Contains(t, output, `"custom":{"Name":"test"}`)
}

func TestGlobalLogger(t *testing.T) {
	previous := GetLogger()
	t.Cleanup(func() { SetLogger(previous) })

	tl := NewTestLogger()
	SetLogger(tl)

	Info("info message")
	WithField("key", "value").Warn("with field")
	WithError(errors.New("bad")).Error("with error")

	assert.True(t, tl.HasMessage("info message"))
	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "value", warns[0].Fields["key"])
	assert.True(t, tl.HasError())
}

func TestLogDownloadHelper(t *testing.T) {
	previous := GetLogger()
	t.Cleanup(func() { SetLogger(previous) })
	global := NewTestLogger()
	SetLogger(global)

	tl := NewTestLogger()
	LogDownload(tl, "Boletus_edulis", 3, "https://example.org/original.jpg", "", nil)
	LogDownload(tl, "Boletus_edulis", 3, "https://example.org/gone.jpg", "status", errors.New("404"))

	assert.Empty(t, global.GetMessages(), "helpers log only on the logger they are given")

	debug := tl.GetMessagesByLevel("DEBUG")
	require.Len(t, debug, 1)
	assert.Equal(t, 3, debug[0].Fields["sequence"])

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "status", warns[0].Fields["kind"])
	assert.EqualError(t, warns[0].Error, "404")
}

func TestTestLoggerChildrenShareSink(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("a", 1).WithFields(map[string]interface{}{"b": 2})
	child.InfoWithFields("hello", map[string]interface{}{"c": 3})

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 2, "c": 3}, msgs[0].Fields)
	assert.Contains(t, tl.String(), "[INFO] hello")

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestLogCategoryProgressHelper(t *testing.T) {
	tl := NewTestLogger()
	LogCategoryProgress(tl.WithField("run_id", "r1"), "Boletus_edulis", 25, 100, 2)

	msgs := tl.GetMessagesByLevel("DEBUG")
	require.Len(t, msgs, 1)
	assert.Equal(t, "25.0%", msgs[0].Fields["percentage"])
	assert.Equal(t, "r1", msgs[0].Fields["run_id"])
}

func TestLogRequestLevels(t *testing.T) {
	tl := NewTestLogger()
	LogRequest(tl, "GET", "https://example.org/a", 200, time.Millisecond)
	LogRequest(tl, "GET", "https://example.org/b", 404, time.Millisecond)
	LogRequest(tl, "GET", "https://example.org/c", 503, time.Millisecond)

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
}
