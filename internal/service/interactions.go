package service

import (
	"context"
	"sort"
	"strings"

	"github.com/cloo-solutions/vaidya/internal/domain"
)

// InteractionSource looks up drug-drug interactions and contraindications.
// Implementations need not be exhaustive; a missing entry means "none known".
type InteractionSource interface {
	FindInteraction(ctx context.Context, drugA, drugB string) (*domain.DrugInteraction, error)
	Contraindications(ctx context.Context, medication string) ([]string, error)
}

type interactionEntry struct {
	severity        string
	description     string
	recommendations []string
}

type drugPair struct{ a, b string }

// StaticInteractionSource is a small curated table. It is a placeholder, not a
// clinical reference.
type StaticInteractionSource struct {
	interactions      map[drugPair]interactionEntry
	contraindications map[string][]string
}

const defaultClinicalSignificance = "Monitor closely"

func NewStaticInteractionSource() *StaticInteractionSource {
	return &StaticInteractionSource{
		interactions: map[drugPair]interactionEntry{
			{"warfarin", "aspirin"}: {
				severity:        "major",
				description:     "Increased bleeding risk",
				recommendations: []string{"Monitor INR closely", "Consider dose adjustment"},
			},
			{"metformin", "alcohol"}: {
				severity:        "moderate",
				description:     "Increased risk of lactic acidosis",
				recommendations: []string{"Limit alcohol consumption", "Monitor for symptoms"},
			},
		},
		contraindications: map[string][]string{
			"warfarin":  {"pregnancy", "severe liver disease", "active bleeding"},
			"aspirin":   {"allergy to aspirin", "active bleeding", "severe asthma"},
			"metformin": {"kidney disease", "liver disease", "heart failure"},
		},
	}
}

func (s *StaticInteractionSource) FindInteraction(_ context.Context, drugA, drugB string) (*domain.DrugInteraction, error) {
	a := strings.ToLower(strings.TrimSpace(drugA))
	b := strings.ToLower(strings.TrimSpace(drugB))
	for _, pair := range []drugPair{{a, b}, {b, a}} {
		entry, ok := s.interactions[pair]
		if !ok {
			continue
		}
		return &domain.DrugInteraction{
			Drug1:                a,
			Drug2:                b,
			Severity:             entry.severity,
			Description:          entry.description,
			ClinicalSignificance: defaultClinicalSignificance,
			Recommendations:      append([]string(nil), entry.recommendations...),
		}, nil
	}
	return nil, nil
}

// Contraindications matches every table drug contained in the medication name.
func (s *StaticInteractionSource) Contraindications(_ context.Context, medication string) ([]string, error) {
	med := strings.ToLower(medication)
	seen := map[string]struct{}{}
	var out []string
	for drug, contras := range s.contraindications {
		if !strings.Contains(med, drug) {
			continue
		}
		for _, c := range contras {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

// CheckInteractions tests every unordered pair of medications once.
func CheckInteractions(ctx context.Context, src InteractionSource, medications []string) ([]domain.DrugInteraction, error) {
	meds := normalizeMedications(medications)
	interactions := []domain.DrugInteraction{}
	for i := 0; i < len(meds); i++ {
		for j := i + 1; j < len(meds); j++ {
			hit, err := src.FindInteraction(ctx, meds[i], meds[j])
			if err != nil {
				return nil, err
			}
			if hit != nil {
				interactions = append(interactions, *hit)
			}
		}
	}
	return interactions, nil
}

// CheckContraindications returns contraindications keyed by medication.
func CheckContraindications(ctx context.Context, src InteractionSource, medications []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, med := range normalizeMedications(medications) {
		contras, err := src.Contraindications(ctx, med)
		if err != nil {
			return nil, err
		}
		if len(contras) > 0 {
			out[med] = contras
		}
	}
	return out, nil
}

func normalizeMedications(medications []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range medications {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
