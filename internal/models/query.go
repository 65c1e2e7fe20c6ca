package models

import "fmt"

// RetrieveRequest is a retrieval query with optional overrides.
type RetrieveRequest struct {
	Query     string  `json:"query"`
	K         int     `json:"k,omitempty"`
	Method    string  `json:"method,omitempty"`
	MinScore  float64 `json:"min_score,omitempty"`
	Threshold float64 `json:"threshold,omitempty"` // sufficiency threshold; 0 means use configured default
}

// Validate checks the request and applies defaults. The method string is
// validated but left as-is; use ParseMethod to obtain the typed value.
func (r *RetrieveRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.K <= 0 {
		r.K = 5
	}
	if r.K > 50 {
		r.K = 50
	}
	if _, err := ParseMethod(r.Method); err != nil {
		return err
	}
	return nil
}
