package service

import (
	"strings"

	"github.com/cloo-solutions/vaidya/internal/domain"
)

// ConfidencePolicy holds the constants used to score a generated answer.
type ConfidencePolicy struct {
	EmptyRetrievalBase float64
	MaxRetrievalBase   float64

	ShortAnswerWords  int
	ShortAnswerFactor float64
	LongAnswerWords   int
	LongAnswerFactor  float64

	// ConsultCue is searched case-insensitively in the answer.
	ConsultCue      string
	NoConsultFactor float64

	Floor   float64
	Ceiling float64
}

func DefaultConfidencePolicy() ConfidencePolicy {
	return ConfidencePolicy{
		EmptyRetrievalBase: 0.2,
		MaxRetrievalBase:   0.9,
		ShortAnswerWords:   50,
		ShortAnswerFactor:  0.8,
		LongAnswerWords:    300,
		LongAnswerFactor:   0.9,
		ConsultCue:         "consult",
		NoConsultFactor:    0.95,
		Floor:              0.1,
		Ceiling:            0.95,
	}
}

type ConfidenceScorer struct {
	policy ConfidencePolicy
}

func NewConfidenceScorer(policy ConfidencePolicy) *ConfidenceScorer {
	return &ConfidenceScorer{policy: policy}
}

// Score rates an answer from retrieval quality and the shape of the response text.
func (s *ConfidenceScorer) Score(results []domain.SearchResult, response string) float64 {
	p := s.policy

	base := p.EmptyRetrievalBase
	if len(results) > 0 {
		sum := 0.0
		for _, r := range results {
			sum += domain.ClampUnit(r.Score)
		}
		base = min(sum/float64(len(results)), p.MaxRetrievalBase)
	}

	words := len(strings.Fields(response))
	switch {
	case words < p.ShortAnswerWords:
		base *= p.ShortAnswerFactor
	case words > p.LongAnswerWords:
		base *= p.LongAnswerFactor
	}

	if p.ConsultCue == "" || !strings.Contains(strings.ToLower(response), strings.ToLower(p.ConsultCue)) {
		base *= p.NoConsultFactor
	}

	return domain.Clamp(base, p.Floor, p.Ceiling)
}
