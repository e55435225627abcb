package search

import "fmt"

// Persona describes the target audience that biases query generation and
// scoring. JobTitles, SeniorityLevels and Industries are required; the rest
// refine the search. A persona is immutable for the lifetime of a session.
type Persona struct {
	JobTitles       []string `json:"jobTitles"`
	SeniorityLevels []string `json:"seniorityLevels"`
	Industries      []string `json:"industries"`
	CompanyTypes    []string `json:"companyTypes,omitempty"`
	Locations       []string `json:"locations,omitempty"`
	Keywords        string   `json:"keywords,omitempty"`
}

// Validate checks that the required persona fields are populated.
func (p *Persona) Validate() error {
	if len(p.JobTitles) == 0 {
		return fmt.Errorf("persona requires at least one job title")
	}
	if len(p.SeniorityLevels) == 0 {
		return fmt.Errorf("persona requires at least one seniority level")
	}
	if len(p.Industries) == 0 {
		return fmt.Errorf("persona requires at least one industry")
	}
	return nil
}

// QueryContext is a previously generated query together with whatever scores
// have been computed for it. Nil score pointers mean "not yet scored".
// Used read-only to bias later generation rounds toward patterns that scored
// well.
type QueryContext struct {
	Query          string   `json:"query"`
	CompositeScore *float64 `json:"compositeScore,omitempty"`
	Pass1Score     *float64 `json:"pass1Score,omitempty"`
	Pass2Score     *float64 `json:"pass2Score,omitempty"`
}
