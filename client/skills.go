package client

import "context"

// SkillService handles harmonization and suggestion.
type SkillService struct {
	c *Client
}

// Harmonize maps each skill onto its canonical name. Results keep input order.
func (s *SkillService) Harmonize(ctx context.Context, skills []string) ([]HarmonizeResult, error) {
	if skills == nil {
		skills = []string{}
	}
	var resp struct {
		Results []HarmonizeResult `json:"results"`
	}
	if err := s.c.post(ctx, "/api/v1/harmonize", map[string]any{"skills": skills}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Suggest returns ranked canonical candidates for one skill.
func (s *SkillService) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResponse, error) {
	var resp SuggestResponse
	if err := s.c.post(ctx, "/api/v1/suggest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
