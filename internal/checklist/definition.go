package checklist

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ListingFlow/internal/domain"
)

//go:embed default_checklist.yaml
var defaultChecklist []byte

// Default returns the embedded listing review checklist.
func Default() domain.ChecklistDefinition {
	def, err := Parse(defaultChecklist)
	if err != nil {
		panic(fmt.Sprintf("embedded checklist is invalid: %v", err))
	}
	return def
}

// Load reads a definition from path, or returns Default when path is empty.
func Load(path string) (domain.ChecklistDefinition, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.ChecklistDefinition{}, fmt.Errorf("read checklist %s: %w", path, err)
	}
	def, err := Parse(raw)
	if err != nil {
		return domain.ChecklistDefinition{}, fmt.Errorf("checklist %s: %w", path, err)
	}
	return def, nil
}

// Parse decodes and validates a YAML checklist definition.
func Parse(raw []byte) (domain.ChecklistDefinition, error) {
	var def domain.ChecklistDefinition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return domain.ChecklistDefinition{}, fmt.Errorf("parse checklist: %w", err)
	}

	if len(def.Categories) == 0 {
		return domain.ChecklistDefinition{}, fmt.Errorf("%w: checklist has no categories", domain.ErrInvalidInput)
	}

	seen := map[string]struct{}{}
	for _, cat := range def.Categories {
		if len(cat.Items) == 0 {
			return domain.ChecklistDefinition{}, fmt.Errorf("%w: category %q has no items", domain.ErrInvalidInput, cat.Name)
		}
		for _, item := range cat.Items {
			if strings.TrimSpace(item.ID) == "" {
				return domain.ChecklistDefinition{}, fmt.Errorf("%w: category %q has an item without id", domain.ErrInvalidInput, cat.Name)
			}
			if _, dup := seen[item.ID]; dup {
				return domain.ChecklistDefinition{}, fmt.Errorf("%w: duplicate checklist item %q", domain.ErrInvalidInput, item.ID)
			}
			seen[item.ID] = struct{}{}
		}
	}

	return def, nil
}

// ParseResult decodes a YAML map of item id to {verdict, note}.
func ParseResult(raw []byte) (domain.ChecklistResult, error) {
	var result domain.ChecklistResult
	if err := yaml.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse checklist result: %w", err)
	}
	if result == nil {
		result = domain.ChecklistResult{}
	}
	return result, nil
}
