package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/telemetry"
)

const (
	symptomTemperature = 0.2
	symptomMaxTokens   = 800
	advancedAge        = 65
	pediatricAge       = 18
)

// SymptomService produces a structured, rule-based symptom report with an
// optional generated narrative.
type SymptomService struct {
	classifier   *Classifier
	interactions InteractionSource
	retriever    Retriever
	generator    Generator
	cfg          RAGConfig
}

// NewSymptomService wires the analyser. retriever and generator may be nil, in
// which case no narrative is produced.
func NewSymptomService(classifier *Classifier, interactions InteractionSource, retriever Retriever, generator Generator, cfg RAGConfig) *SymptomService {
	if interactions == nil {
		interactions = NewStaticInteractionSource()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultBackendTimeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultRAGConfig().MaxResults
	}
	return &SymptomService{
		classifier:   classifier,
		interactions: interactions,
		retriever:    retriever,
		generator:    generator,
		cfg:          cfg,
	}
}

func (s *SymptomService) AnalyzeSymptoms(ctx context.Context, symptoms []string, userCtx domain.UserContext) (*domain.SymptomReport, error) {
	cleaned := make([]string, 0, len(symptoms))
	for _, sym := range symptoms {
		if sym = strings.TrimSpace(sym); sym != "" {
			cleaned = append(cleaned, sym)
		}
	}
	if len(cleaned) == 0 {
		return nil, domain.ErrEmptySymptoms
	}

	ctx, span := telemetry.StartSpan(ctx, "symptoms.analyze", telemetry.SpanAttributes{Operation: "analyze_symptoms"})
	defer span.End()

	analysis := s.classifier.Classify(ctx, strings.Join(cleaned, ", "))
	analysis.Symptoms = cleaned

	interactions, err := CheckInteractions(ctx, s.interactions, userCtx.Medications)
	if err != nil {
		log.Printf("drug interaction lookup failed: %v", err)
		interactions = []domain.DrugInteraction{}
	}
	contraindications, err := CheckContraindications(ctx, s.interactions, userCtx.Medications)
	if err != nil {
		log.Printf("contraindication lookup failed: %v", err)
		contraindications = nil
	}

	risks := RiskFactors(analysis, userCtx)
	if len(interactions) > 0 {
		analysis.Recommendations = append(analysis.Recommendations,
			"Discuss medication interactions with pharmacist",
			"Review all medications with healthcare provider")
	}
	if len(risks) > 0 {
		analysis.Recommendations = append(analysis.Recommendations,
			"Discuss risk factors with healthcare provider",
			"Consider preventive measures")
	}

	report := &domain.SymptomReport{
		SymptomAnalysis:   analysis,
		DrugInteractions:  interactions,
		Contraindications: contraindications,
		RiskFactors:       risks,
		Confidence:        s.classifier.Confidence(analysis, len(interactions)),
		Sources:           []domain.Source{},
		Disclaimer:        MedicalDisclaimer,
	}
	if analysis.UrgencyLevel == domain.UrgencyEmergency {
		report.UrgencyNotice = emergencyNotice
	}

	s.narrate(ctx, report, userCtx)
	return report, nil
}

// narrate adds the generated analysis and its sources. Failures leave the
// rule-based report intact.
func (s *SymptomService) narrate(ctx context.Context, report *domain.SymptomReport, userCtx domain.UserContext) {
	if s.generator == nil {
		return
	}

	var results []domain.SearchResult
	if s.retriever != nil {
		outcome, err := s.retriever.SearchDocuments(ctx, SearchInput{
			Query: "symptoms: " + strings.Join(report.Symptoms, ", "),
			Limit: s.cfg.MaxResults,
		})
		if err != nil {
			log.Printf("symptom retrieval failed: %v", err)
		} else {
			results = outcome.Results
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	text, err := s.generator.Complete(callCtx, CompletionRequest{
		SystemPrompt: symptomSystemPrompt,
		UserPrompt:   buildSymptomPrompt(report.Symptoms, FormatContext(results), FormatMedicalHistory(userCtx)),
		Temperature:  symptomTemperature,
		MaxTokens:    symptomMaxTokens,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		log.Printf("symptom narrative failed: %v", err)
		report.Analysis = fallbackSymptomAnalysis
		return
	}
	report.Analysis = strings.TrimSpace(text)
	report.Sources = sourcesFromResults(results)
}

// RiskFactors derives risk factors from age, urgency, red flags and history.
func RiskFactors(analysis domain.SymptomAnalysis, userCtx domain.UserContext) []string {
	risks := []string{}
	if userCtx.Age != nil {
		switch {
		case *userCtx.Age > advancedAge:
			risks = append(risks, "Advanced age")
		case *userCtx.Age < pediatricAge:
			risks = append(risks, "Pediatric population")
		}
	}
	if analysis.UrgencyLevel == domain.UrgencyHigh || analysis.UrgencyLevel == domain.UrgencyEmergency {
		risks = append(risks, "High urgency symptoms")
	}
	if len(analysis.RedFlags) > 0 {
		risks = append(risks, "Red flag symptoms present")
	}
	for _, condition := range highRiskConditions {
		for _, history := range userCtx.Conditions {
			if strings.Contains(strings.ToLower(history), condition) {
				risks = append(risks, fmt.Sprintf("History of %s", condition))
				break
			}
		}
	}
	return risks
}
