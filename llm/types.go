// Package llm wraps an LLM backend with retry, token accounting, response
// parsing, bounded-concurrency batch scoring, and cooperative cancellation.
package llm

import "fmt"

// GeneratedQuery is one candidate query produced by the generation prompt.
type GeneratedQuery struct {
	Query     string `json:"query"`
	Reasoning string `json:"reasoning"`
}

// Pass1Breakdown itemizes a pass-1 score. The ceilings are 40/35/25.
type Pass1Breakdown struct {
	ExpectedYield    float64 `json:"expectedYield"`
	PersonaRelevance float64 `json:"personaRelevance"`
	QueryUniqueness  float64 `json:"queryUniqueness"`
}

// ScorePass1 is the pre-execution quality score for a query.
type ScorePass1 struct {
	Score     float64        `json:"score"`
	Breakdown Pass1Breakdown `json:"breakdown"`
	Reasoning string         `json:"reasoning"`
}

// Validate checks score bounds. The breakdown summing to something slightly
// off from Score is tolerated; models drift on arithmetic.
func (s *ScorePass1) Validate() error {
	if s.Score < 0 || s.Score > 100 {
		return fmt.Errorf("score %.2f out of range [0,100]", s.Score)
	}
	if s.Breakdown.ExpectedYield < 0 || s.Breakdown.ExpectedYield > 40 {
		return fmt.Errorf("expectedYield %.2f out of range [0,40]", s.Breakdown.ExpectedYield)
	}
	if s.Breakdown.PersonaRelevance < 0 || s.Breakdown.PersonaRelevance > 35 {
		return fmt.Errorf("personaRelevance %.2f out of range [0,35]", s.Breakdown.PersonaRelevance)
	}
	if s.Breakdown.QueryUniqueness < 0 || s.Breakdown.QueryUniqueness > 25 {
		return fmt.Errorf("queryUniqueness %.2f out of range [0,25]", s.Breakdown.QueryUniqueness)
	}
	return nil
}

// Pass2Breakdown itemizes a pass-2 score. The ceilings are 50/30/20.
type Pass2Breakdown struct {
	ResultRelevance float64 `json:"resultRelevance"`
	QualitySignal   float64 `json:"qualitySignal"`
	Diversity       float64 `json:"diversity"`
}

// ScorePass2 is the post-execution score computed from a result sample.
// TopMatches holds 1-based indices into the sampled result list.
type ScorePass2 struct {
	Score         float64        `json:"score"`
	RelevantCount int            `json:"relevantCount"`
	Breakdown     Pass2Breakdown `json:"breakdown"`
	Reasoning     string         `json:"reasoning"`
	TopMatches    []int          `json:"topMatches"`
}

// Validate checks score bounds. sampleSize bounds the TopMatches indices;
// pass 0 to skip that check.
func (s *ScorePass2) Validate(sampleSize int) error {
	if s.Score < 0 || s.Score > 100 {
		return fmt.Errorf("score %.2f out of range [0,100]", s.Score)
	}
	if s.RelevantCount < 0 {
		return fmt.Errorf("relevantCount %d is negative", s.RelevantCount)
	}
	if s.Breakdown.ResultRelevance < 0 || s.Breakdown.ResultRelevance > 50 {
		return fmt.Errorf("resultRelevance %.2f out of range [0,50]", s.Breakdown.ResultRelevance)
	}
	if s.Breakdown.QualitySignal < 0 || s.Breakdown.QualitySignal > 30 {
		return fmt.Errorf("qualitySignal %.2f out of range [0,30]", s.Breakdown.QualitySignal)
	}
	if s.Breakdown.Diversity < 0 || s.Breakdown.Diversity > 20 {
		return fmt.Errorf("diversity %.2f out of range [0,20]", s.Breakdown.Diversity)
	}
	for _, idx := range s.TopMatches {
		if idx < 1 || (sampleSize > 0 && idx > sampleSize) {
			return fmt.Errorf("topMatches index %d out of range [1,%d]", idx, sampleSize)
		}
	}
	return nil
}
