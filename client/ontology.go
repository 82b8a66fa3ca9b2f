package client

import "context"

// OntologyService validates extracted entity/relation batches.
type OntologyService struct {
	c *Client
}

// Validate drops records whose type is outside the schema and relations whose
// endpoints are missing.
func (s *OntologyService) Validate(ctx context.Context, req ValidateRequest) (*ValidateResponse, error) {
	var resp ValidateResponse
	if err := s.c.post(ctx, "/api/v1/ontology/validate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
