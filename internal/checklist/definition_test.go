package checklist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ListingFlow/internal/domain"
)

func TestDefaultDefinition(t *testing.T) {
	t.Parallel()

	def := Default()
	if def.Version == "" {
		t.Fatalf("default checklist must be versioned")
	}
	item, ok := def.Lookup("host_verified")
	if !ok || !item.Required {
		t.Fatalf("expected required host_verified item, got %+v %v", item, ok)
	}
	if _, ok := def.Lookup("gallery"); !ok {
		t.Fatalf("expected optional gallery item")
	}
}

func TestParseRejectsBrokenDefinitions(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no categories":  "version: x\n",
		"empty category": "categories:\n  - name: A\n    items: []\n",
		"missing id":     "categories:\n  - name: A\n    items:\n      - label: x\n",
		"duplicate id":   "categories:\n  - name: A\n    items:\n      - id: a\n  - name: B\n    items:\n      - id: a\n",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", name, err)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "checklist.yaml")
	raw := "version: v2\ncategories:\n  - name: Only\n    items:\n      - id: one\n        label: One\n        required: true\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	def, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if def.Version != "v2" || len(def.Items()) != 1 {
		t.Fatalf("unexpected definition %+v", def)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	fallback, err := Load("")
	if err != nil || len(fallback.Items()) == 0 {
		t.Fatalf("empty path should return the default checklist: %v", err)
	}
}

func TestParseResult(t *testing.T) {
	t.Parallel()

	result, err := ParseResult([]byte("title:\n  verdict: pass\npricing:\n  verdict: fail\n  note: wrong currency\n"))
	if err != nil {
		t.Fatalf("ParseResult error: %v", err)
	}
	if result["title"].Verdict != domain.VerdictPass || result["pricing"].Note != "wrong currency" {
		t.Fatalf("unexpected result %+v", result)
	}

	empty, err := ParseResult(nil)
	if err != nil || empty == nil {
		t.Fatalf("empty input should give an empty result: %v", err)
	}
}
