package pipeline

// Progress is the live progress tuple for the active stage.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// RoundStats summarizes the funnel of a single round.
type RoundStats struct {
	Round         int `json:"round"`
	Generated     int `json:"generated"`
	Pass1Passed   int `json:"pass1Passed"`
	Pass1Rejected int `json:"pass1Rejected"`
	Pass2Passed   int `json:"pass2Passed"`
	Pass2Rejected int `json:"pass2Rejected"`
	Executed      int `json:"executed"`
	RawResults    int `json:"rawResults"`
}

// Stats is the cumulative funnel across all rounds of a session.
type Stats struct {
	Rounds        int `json:"rounds"`
	Generated     int `json:"generated"`
	Pass1Passed   int `json:"pass1Passed"`
	Pass1Rejected int `json:"pass1Rejected"`
	Pass2Passed   int `json:"pass2Passed"`
	Pass2Rejected int `json:"pass2Rejected"`
	Executed      int `json:"executed"`
	RawResults    int `json:"rawResults"`
	UniqueResults int `json:"uniqueResults"`
	TokensUsed    int `json:"tokensUsed"`
}

// add folds one round into the cumulative totals.
func (s *Stats) add(r RoundStats) {
	s.Rounds++
	s.Generated += r.Generated
	s.Pass1Passed += r.Pass1Passed
	s.Pass1Rejected += r.Pass1Rejected
	s.Pass2Passed += r.Pass2Passed
	s.Pass2Rejected += r.Pass2Rejected
	s.Executed += r.Executed
	s.RawResults += r.RawResults
}
