package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sample struct {
	Name  string        `config:"name"`
	Count int           `config:"limits.count"`
	Small int8          `config:"small"`
	Wait  time.Duration `config:"wait"`
	Plain string
}

func TestManagerUnmarshal(t *testing.T) {
	m := NewManager()
	m.Set("name", "static")
	m.Set("limits.count", float64(42))
	m.Set("wait", float64(1500))
	m.Set("plain", float64(7))

	s := sample{Small: 3}
	if err := m.Unmarshal("", &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Name != "static" || s.Count != 42 {
		t.Errorf("Unexpected result %+v", s)
	}
	if s.Wait != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s, got %s", s.Wait)
	}
	if s.Plain != "7" {
		t.Errorf("Expected plain 7, got %q", s.Plain)
	}
	if s.Small != 3 {
		t.Errorf("Unset field changed to %d", s.Small)
	}
}

func TestManagerUnmarshalErrors(t *testing.T) {
	tests := []struct {
		key   string
		value interface{}
	}{
		{"limits.count", "ten"},
		{"limits.count", 1.5},
		{"small", "300"},
		{"wait", "soon"},
		{"wait", true},
		{"name", []string{"a"}},
	}
	for _, tt := range tests {
		m := NewManager()
		m.Set(tt.key, tt.value)
		var s sample
		if err := m.Unmarshal("", &s); err == nil {
			t.Errorf("%s=%v: expected an error", tt.key, tt.value)
		}
	}

	var ratio struct {
		Value float64 `config:"ratio"`
	}
	m := NewManager()
	m.Set("ratio", 0.5)
	if err := m.Unmarshal("", &ratio); err == nil {
		t.Error("Expected an error for an unsupported field type")
	}

	if err := m.Unmarshal("", sample{}); err == nil {
		t.Error("Expected an error for a non-pointer target")
	}
	n := 0
	if err := m.Unmarshal("", &n); err == nil {
		t.Error("Expected an error for a non-struct target")
	}
}

func TestManagerPrefix(t *testing.T) {
	m := NewManager()
	m.Set("server.name", "a")
	m.Set("name", "b")

	var s sample
	if err := m.Unmarshal("server", &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "a" {
		t.Errorf("Expected prefixed value a, got %q", s.Name)
	}
}

func TestManagerLoadFromEnv(t *testing.T) {
	t.Setenv("FAST_STATIC_MAX_HEADER", "4096")
	t.Setenv("FAST_STATICX", "ignored")
	t.Setenv("OTHER_PORT", "1")

	m := NewManager()
	m.LoadFromEnv("FAST_STATIC")

	if v, ok := m.Get("max.header"); !ok || v != "4096" {
		t.Errorf("Expected max.header=4096, got %v", v)
	}
	for _, k := range []string{"x", "fast.staticx", "staticx", "other.port", "port"} {
		if _, ok := m.Get(k); ok {
			t.Errorf("Unexpected key %q", k)
		}
	}
}

func TestManagerLoadFromJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "c.json")
	data := `{"Name": "n", "limits": {"count": 3}, "flat.key": true}`
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.LoadFromJSON(file); err != nil {
		t.Fatalf("LoadFromJSON: %v", err)
	}
	want := map[string]interface{}{
		"name":         "n",
		"limits.count": float64(3),
		"flat.key":     true,
	}
	for k, v := range want {
		if got, ok := m.Get(k); !ok || got != v {
			t.Errorf("Expected %s=%v, got %v", k, v, got)
		}
	}
	if _, ok := m.Get("limits"); ok {
		t.Error("Nested objects must flatten to dotted keys")
	}

	if err := os.WriteFile(file, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := m.LoadFromJSON(file); err == nil {
		t.Error("Expected a parse error")
	}
}
