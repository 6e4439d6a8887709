package shared

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestValidateEmail(t *testing.T) {
	tc := []struct {
		name  string
		email string
		want  bool
	}{
		{name: "basic address", email: "coach@oracle.test", want: true},
		{name: "surrounding whitespace", email: "  coach@oracle.test ", want: true},
		{name: "missing at", email: "coach.oracle.test", want: false},
		{name: "missing domain dot", email: "coach@oracle", want: false},
		{name: "inner space", email: "co ach@oracle.test", want: false},
		{name: "empty", email: "", want: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateEmail(tt.email); got != tt.want {
				t.Errorf("ValidateEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tc := []struct {
		name     string
		password string
		score    int
		valid    bool
	}{
		{name: "all requirements", password: "Jab&Cross1", score: 5, valid: true},
		{name: "no special", password: "JabCross12", score: 4},
		{name: "short lowercase", password: "jab", score: 1},
		{name: "digits only", password: "12345678", score: 2},
		{name: "empty", password: "", score: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			checks := ValidatePassword(tt.password)
			if got := checks.Score(); got != tt.score {
				t.Errorf("Score() = %d, want %d (%+v)", got, tt.score, checks)
			}
			if got := checks.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	t.Run("NewLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("navigated", "route", "dashboard")

		if !strings.Contains(buf.String(), "route=dashboard") {
			t.Errorf("expected key value pair in output, got %q", buf.String())
		}
	})

	t.Run("WithLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "router")
		logger.Warn("rejected")

		if !strings.Contains(buf.String(), "component=router") {
			t.Errorf("expected child logger fields, got %q", buf.String())
		}
	})

	t.Run("SetLogLevel", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.ErrorLevel)
		logger.Info("hidden")

		if buf.Len() != 0 {
			t.Errorf("expected info to be filtered, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "tui.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}
		logger.Info("started")

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(data), "started") {
			t.Errorf("expected log line in file, got %q", string(data))
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected a uuid, got %q: %v", a, err)
	}
}

func TestMarshalJSON(t *testing.T) {
	data := map[string]any{"route": "tasks"}

	t.Run("Compact", func(t *testing.T) {
		out, err := MarshalJSON(data, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(out) != `{"route":"tasks"}` {
			t.Errorf("unexpected output %s", out)
		}
	})

	t.Run("Pretty", func(t *testing.T) {
		out, err := MarshalJSON(data, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(out), "\n  \"route\"") {
			t.Errorf("expected indented output, got %s", out)
		}

		var back map[string]any
		if err := json.Unmarshal(out, &back); err != nil {
			t.Errorf("pretty output should be valid JSON: %v", err)
		}
	})
}
