package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB != "policyaudit.db" || cfg.Addr != ":8080" {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.Embedder.Type != "gemini" || cfg.Embedder.Dim != 768 {
		t.Fatalf("unexpected embedder defaults: %#v", cfg.Embedder)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Fatalf("unexpected top_k default: %d", cfg.Retrieval.TopK)
	}
}

func TestLoadAppliesPartialDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `db: audit.db
embedder:
  type: ollama
  base_url: http://localhost:11434
retrieval:
  top_k: 5
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB != "audit.db" {
		t.Fatalf("db not honored: %q", cfg.DB)
	}
	if cfg.Embedder.Type != "ollama" || cfg.Embedder.Model != "nomic-embed-text" {
		t.Fatalf("ollama model default not applied: %#v", cfg.Embedder)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Fatalf("top_k not honored: %d", cfg.Retrieval.TopK)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr default not applied: %q", cfg.Addr)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("db: [unterminated"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
