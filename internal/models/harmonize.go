// Package models defines the request and response types of the harmonizer API.
package models

import (
	"strings"

	"github.com/jenezis/harmonizer/internal/harmonizer"
	"github.com/jenezis/harmonizer/internal/taxonomy"
)

// Request limits.
const (
	MaxBatchSkills = 10000
	MaxSkillLength = 500
)

// HarmonizeRequest is the payload of POST /api/v1/harmonize.
type HarmonizeRequest struct {
	Skills []string `json:"skills"`
}

// Validate checks batch and element sizes. An empty batch is valid.
func (r *HarmonizeRequest) Validate() error {
	if len(r.Skills) > MaxBatchSkills {
		return ErrTooManySkills
	}

	for _, s := range r.Skills {
		if len(s) > MaxSkillLength {
			return ErrFieldTooLong("skill", MaxSkillLength)
		}
	}

	return nil
}

// HarmonizeResponse carries one result per input skill, in input order.
type HarmonizeResponse struct {
	Results []harmonizer.Result `json:"results"`
}

// SuggestRequest is the payload of POST /api/v1/suggest. A zero TopK selects
// the default.
type SuggestRequest struct {
	Skill  string `json:"skill"`
	TopK   int    `json:"top_k"`
	UseLLM bool   `json:"use_llm"`
}

// Validate checks the skill and top_k bounds.
func (r *SuggestRequest) Validate() error {
	if strings.TrimSpace(r.Skill) == "" {
		return ErrMissingSkill
	}

	if len(r.Skill) > MaxSkillLength {
		return ErrFieldTooLong("skill", MaxSkillLength)
	}

	if r.TopK < 0 || r.TopK > harmonizer.MaxTopK {
		return ErrTopKRange
	}

	return nil
}

// SuggestResponse is the ranked answer for one skill.
type SuggestResponse = harmonizer.SuggestResult

// ReloadResponse is returned by POST /api/v1/admin/reload.
type ReloadResponse struct {
	Status       string         `json:"status"`
	Message      string         `json:"message"`
	AliasesCount int            `json:"aliases_count"`
	SkillsCount  int            `json:"skills_count"`
	Cache        taxonomy.Stats `json:"cache"`
}
