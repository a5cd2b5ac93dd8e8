package logging

import "testing"

func TestParseLevelDefaults(t *testing.T) {
	lvl, err := parseLevel("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lvl != 0 {
		t.Fatalf("expected info (0), got %v", lvl)
	}
}

func TestParseLevelKnownValues(t *testing.T) {
	for _, v := range []string{"debug", "DEBUG", "warn", "warning", "error", "info"} {
		if _, err := parseLevel(v); err != nil {
			t.Fatalf("parseLevel(%q): unexpected error: %v", v, err)
		}
	}
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	if _, err := parseLevel("trace"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewFromEnvRejectsBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "nonsense")
	if _, err := NewFromEnv(); err == nil {
		t.Fatal("expected error for bad LOG_LEVEL")
	}
}

func TestNewFromEnvRejectsBadFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "xml")
	if _, err := NewFromEnv(); err == nil {
		t.Fatal("expected error for bad LOG_FORMAT")
	}
}

func TestNewFromEnvDefaultsSucceed(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FILE", "")
	logger, err := NewFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}
