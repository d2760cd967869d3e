package steps

import (
	"fmt"
	"strings"

	"ListingFlow/internal/domain"
)

// Template describes a step seeded into every new workflow instance.
type Template struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
}

// DefaultTemplate is the preparation sequence used when config names none.
func DefaultTemplate() []Template {
	return []Template{
		{ID: "content_review", Name: "Content review", Required: true},
		{ID: "seo", Name: "SEO", Required: false},
		{ID: "media", Name: "Media", Required: true},
		{ID: "technical", Name: "Technical check", Required: false},
		{ID: "final_approval", Name: "Final approval", Required: true},
	}
}

// ValidateTemplate requires at least one step and unique, non-empty ids.
func ValidateTemplate(template []Template) error {
	if len(template) == 0 {
		return fmt.Errorf("%w: step template is empty", domain.ErrInvalidInput)
	}
	seen := map[string]struct{}{}
	for _, tpl := range template {
		id := strings.TrimSpace(tpl.ID)
		if id == "" {
			return fmt.Errorf("%w: step %q has no id", domain.ErrInvalidInput, tpl.Name)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate step id %q", domain.ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
