package service

import (
	"encoding/json"

	"github.com/c360/sonto/errors"
	"github.com/c360/sonto/ontology"
)

// Subject suffixes served under the configured prefix
const (
	SubjectIsA         = "isa"
	SubjectResolve     = "resolve"
	SubjectDiagnostics = "diagnostics"
)

// IsARequest asks whether Child is Parent or one of its descendants
type IsARequest struct {
	Child  string `json:"child"`
	Parent string `json:"parent"`
}

// IsAResponse carries the is-a answer
type IsAResponse struct {
	Result bool `json:"result"`
}

// ResolveRequest looks up a term by description or ID
type ResolveRequest struct {
	Term string `json:"term"`
}

// ResolveResponse describes a resolved term. Only Found is set on a miss.
type ResolveResponse struct {
	Found       bool     `json:"found"`
	ID          string   `json:"id,omitempty"`
	Description string   `json:"description,omitempty"`
	Obsolete    bool     `json:"obsolete,omitempty"`
	Parents     []string `json:"parents,omitempty"`
}

func newResolveResponse(graph *ontology.Graph, t *ontology.Term) ResolveResponse {
	resp := ResolveResponse{
		Found:       true,
		ID:          t.ID,
		Description: t.Description,
		Obsolete:    t.Obsolete,
	}
	for _, p := range graph.ParentsOf(t) {
		resp.Parents = append(resp.Parents, p.ID)
	}
	return resp
}

func decodeRequest(data []byte, v any, operation string) error {
	if len(data) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidData, "OntologyService", operation, "empty request")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.WrapInvalid(err, "OntologyService", operation, "decode request")
	}
	return nil
}
