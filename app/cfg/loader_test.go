package cfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadArgs_Defaults(t *testing.T) {
	c, err := LoadArgs([]string{})
	if err != nil {
		t.Fatalf("LoadArgs failed: %v", err)
	}

	if c.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", c.Port)
	}
	if c.WorkerCount != 5 {
		t.Errorf("Expected 5 workers, got %d", c.WorkerCount)
	}
	if c.LLMProvider != "anthropic" {
		t.Errorf("Expected anthropic provider, got %s", c.LLMProvider)
	}
	if Get() != c {
		t.Error("Get should return the loaded configuration")
	}
}

func TestLoadArgs_Flags(t *testing.T) {
	c, err := LoadArgs([]string{"--db-path", ":memory:", "--worker-count", "9", "--llm-provider", "ollama", "--debug"})
	if err != nil {
		t.Fatalf("LoadArgs failed: %v", err)
	}

	if c.DBPath != ":memory:" {
		t.Errorf("Expected :memory:, got %s", c.DBPath)
	}
	if c.WorkerCount != 9 {
		t.Errorf("Expected 9 workers, got %d", c.WorkerCount)
	}
	if c.LLMProvider != "ollama" {
		t.Errorf("Expected ollama, got %s", c.LLMProvider)
	}
	if !c.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestLoadArgs_RejectsNonPositive(t *testing.T) {
	_, err := LoadArgs([]string{"--batch-size", "0"})
	if err == nil {
		t.Fatal("Expected error for zero batch size")
	}
	if !strings.Contains(err.Error(), "batch size") {
		t.Errorf("Expected batch size error, got %v", err)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("INTEL_COMB_TEST_VAR=from-file\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("INTEL_COMB_TEST_VAR") })

	loadEnvFiles([]string{path, filepath.Join(t.TempDir(), "missing.env")})

	if got := os.Getenv("INTEL_COMB_TEST_VAR"); got != "from-file" {
		t.Errorf("Expected 'from-file', got '%s'", got)
	}
}
