package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/abitlab/itmo-advisor-go/internal/ctxutil"
)

func TestNewWithWriter_Levels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		level     string
		logsDebug bool
		logsInfo  bool
	}{
		{
			name:      "Debug level logs everything",
			level:     "debug",
			logsDebug: true,
			logsInfo:  true,
		},
		{
			name:      "Info level drops debug",
			level:     "info",
			logsDebug: false,
			logsInfo:  true,
		},
		{
			name:      "Warn level drops info",
			level:     "warn",
			logsDebug: false,
			logsInfo:  false,
		},
		{
			name:      "Error level drops info",
			level:     "error",
			logsDebug: false,
			logsInfo:  false,
		},
		{
			name:      "Invalid level defaults to info",
			level:     "invalid",
			logsDebug: false,
			logsInfo:  true,
		},
		{
			name:      "Empty level defaults to info",
			level:     "",
			logsDebug: false,
			logsInfo:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(tt.level, &buf)
			if log == nil {
				t.Fatal("NewWithWriter() returned nil")
			}

			log.Debug("debug message")
			gotDebug := strings.Contains(buf.String(), "debug message")
			if gotDebug != tt.logsDebug {
				t.Errorf("debug logged = %v, want %v", gotDebug, tt.logsDebug)
			}

			buf.Reset()
			log.Info("info message")
			gotInfo := strings.Contains(buf.String(), "info message")
			if gotInfo != tt.logsInfo {
				t.Errorf("info logged = %v, want %v", gotInfo, tt.logsInfo)
			}
		})
	}
}

func parseLogLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v (raw: %q)", err, buf.String())
	}
	return entry
}

func TestLogger_WithModule(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithModule("qa").Info("test message")

	entry := parseLogLine(t, &buf)
	if module, ok := entry["module"].(string); !ok || module != "qa" {
		t.Errorf("WithModule() module = %v, want %q", entry["module"], "qa")
	}
}

func TestLogger_WithRequestID(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithRequestID("req-123").Info("test message")

	entry := parseLogLine(t, &buf)
	if requestID, ok := entry["request_id"].(string); !ok || requestID != "req-123" {
		t.Errorf("WithRequestID() request_id = %v, want %q", entry["request_id"], "req-123")
	}
}

func TestLogger_WithError(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	testErr := &testError{msg: "test error message"}
	log.WithError(testErr).Error("operation failed")

	entry := parseLogLine(t, &buf)
	if errField, ok := entry["error"].(string); !ok || errField != "test error message" {
		t.Errorf("WithError() error = %v, want %q", entry["error"], "test error message")
	}
}

func TestLogger_WithFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithFields(map[string]any{"program": "AI", "courses": 42}).Info("populated")

	entry := parseLogLine(t, &buf)
	if entry["program"] != "AI" {
		t.Errorf("WithFields() program = %v, want %q", entry["program"], "AI")
	}
	if entry["courses"] != float64(42) {
		t.Errorf("WithFields() courses = %v, want 42", entry["courses"])
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info("test message")

	entry := parseLogLine(t, &buf)
	for _, field := range []string{"timestamp", "level", "message"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("JSON log missing required field %q", field)
		}
	}

	if entry["message"] != "test message" {
		t.Errorf("message = %v, want %q", entry["message"], "test message")
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want %q", entry["level"], "info")
	}
}

func TestLogger_WarnLevelRenamed(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Warn("careful")

	entry := parseLogLine(t, &buf)
	if entry["level"] != "warning" {
		t.Errorf("level = %v, want %q", entry["level"], "warning")
	}
}

func TestLogger_ContextValues(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	ctx := ctxutil.WithRequestID(context.Background(), "ctx-req-456")
	ctx = ctxutil.WithUserID(ctx, 987654321)

	log.InfoContext(ctx, "test message")

	entry := parseLogLine(t, &buf)
	if requestID, ok := entry["request_id"].(string); !ok || requestID != "ctx-req-456" {
		t.Errorf("request_id = %v, want %q", entry["request_id"], "ctx-req-456")
	}
	if userID, ok := entry["user_id"].(string); !ok || userID != "987654321" {
		t.Errorf("user_id = %v, want %q", entry["user_id"], "987654321")
	}
}

func TestLogger_ShutdownWithoutShipping(t *testing.T) {
	t.Parallel()
	log := NewWithWriter("info", &bytes.Buffer{})
	if err := log.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v, want nil", err)
	}
}

// testError is a simple error type for testing
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
