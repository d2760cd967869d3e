package domain

import "strings"

// Verdict is a reviewer judgment on a single checklist item.
type Verdict string

const (
	VerdictUnset Verdict = ""
	VerdictPass  Verdict = "pass"
	VerdictFail  Verdict = "fail"
	VerdictNA    Verdict = "na"
)

// ParseVerdict accepts pass, fail and na (case-insensitive).
func ParseVerdict(value string) (Verdict, bool) {
	switch v := Verdict(strings.ToLower(strings.TrimSpace(value))); v {
	case VerdictPass, VerdictFail, VerdictNA:
		return v, true
	default:
		return VerdictUnset, false
	}
}

// ChecklistItem is one line of the review checklist.
type ChecklistItem struct {
	ID       string `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	Required bool   `json:"required" yaml:"required"`
}

// ChecklistCategory groups checklist items under a heading.
type ChecklistCategory struct {
	Name  string          `json:"name" yaml:"name"`
	Items []ChecklistItem `json:"items" yaml:"items"`
}

// ChecklistDefinition is the versioned checklist loaded at process start.
type ChecklistDefinition struct {
	Version    string              `json:"version" yaml:"version"`
	Categories []ChecklistCategory `json:"categories" yaml:"categories"`
}

// Items flattens every category in definition order.
func (d ChecklistDefinition) Items() []ChecklistItem {
	var items []ChecklistItem
	for _, cat := range d.Categories {
		items = append(items, cat.Items...)
	}
	return items
}

// Lookup finds an item by id across all categories.
func (d ChecklistDefinition) Lookup(id string) (ChecklistItem, bool) {
	for _, cat := range d.Categories {
		for _, item := range cat.Items {
			if item.ID == id {
				return item, true
			}
		}
	}
	return ChecklistItem{}, false
}

// ChecklistMark is the reviewer's verdict and note for one item.
type ChecklistMark struct {
	Verdict Verdict `json:"verdict" yaml:"verdict"`
	Note    string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// ChecklistResult maps checklist item ids to marks for one review session.
type ChecklistResult map[string]ChecklistMark

// Clone returns an independent copy of the result.
func (r ChecklistResult) Clone() ChecklistResult {
	if r == nil {
		return nil
	}
	cp := make(ChecklistResult, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}
