package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		debug         bool
	}{
		{"debug", "text", true},
		{"DEBUG", "json", true},
		{"info", "text", false},
		{"bogus", "text", false},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(tt.level, tt.format, &buf)
			l.Debug("probe", "k", 1)
			if got := buf.Len() > 0; got != tt.debug {
				t.Errorf("expected debug output %v, got %q", tt.debug, buf.String())
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New("info", "json", &buf).Info("compiled", "variables", 2)
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected a JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "compiled" || rec["variables"] != float64(2) {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", "text", &buf)
	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected record through context logger, got %q", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Error("expected a fallback logger")
	}
}
