package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "domselect.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
max_document_size: 2048
min_text_len: 10
rules:
  - name: blog
    selectors: ["article.post", "main > .content"]
    exclude: [".share"]
    markdown: true
  - name: docs
    selectors: ["#docs"]
    min_text_len: 5
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.MaxDocumentSize != 2048 || cfg.MinTextLen != 10 {
		t.Errorf("limits: got %d/%d", cfg.MaxDocumentSize, cfg.MinTextLen)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("rules: got %d, want 2", len(cfg.Rules))
	}
	blog, ok := cfg.Rule("blog")
	if !ok {
		t.Fatal("rule blog not found")
	}
	if len(blog.Selectors) != 2 || blog.Exclude[0] != ".share" || !blog.Markdown {
		t.Errorf("blog rule: %+v", blog)
	}
	if docs, _ := cfg.Rule("docs"); docs.MinTextLen != 5 {
		t.Errorf("docs min_text_len: got %d", docs.MinTextLen)
	}
	if _, ok := cfg.Rule("missing"); ok {
		t.Error("unexpected rule")
	}
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "rules: [", "parse"},
		{"no name", "rules:\n  - selectors: [p]\n", "rule without name"},
		{"duplicate", "rules:\n  - name: a\n    selectors: [p]\n  - name: a\n    selectors: [div]\n", "duplicate rule"},
		{"no selectors", "rules:\n  - name: a\n", "no selectors"},
		{"bad selector", "rules:\n  - name: a\n    selectors: [\"div[\"]\n", "syntax error"},
		{"bad exclude", "rules:\n  - name: a\n    selectors: [p]\n    exclude: [\">\"]\n", "syntax error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Errorf("got %v, want not-exist", err)
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.defaults()
	if cfg.MaxDocumentSize != 10*1024*1024 || cfg.MinTextLen != 50 || cfg.Logger == nil {
		t.Errorf("defaults: %+v", cfg)
	}
}
