package cache

import (
	"strings"
	"testing"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestKey(t *testing.T) {
	a := Key("scores", "gen-1", "course-2")
	if a != Key("scores", "gen-1", "course-2") {
		t.Error("Key() is not deterministic")
	}
	if a == Key("scores", "gen-2", "course-2") {
		t.Error("Key() should change with the generation")
	}
	if a == Key("scores", "gen-1course-2") {
		t.Error("Key() should separate parts")
	}
	if !strings.HasPrefix(a, "planner:scores:") || len(a) != len("planner:scores:")+32 {
		t.Errorf("Key() = %q, want planner:scores: prefix and 32 hex chars", a)
	}
}

func TestETag(t *testing.T) {
	a := ETag([]byte(`{"a":1}`))
	if a != ETag([]byte(`{"a":1}`)) {
		t.Error("ETag() is not deterministic")
	}
	if a == ETag([]byte(`{"a":2}`)) {
		t.Error("ETag() should change with the body")
	}
	if !strings.HasPrefix(a, `"`) || !strings.HasSuffix(a, `"`) {
		t.Errorf("ETag() = %s, want a quoted tag", a)
	}
}
