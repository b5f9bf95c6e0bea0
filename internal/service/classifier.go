package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
)

// ClassifierPolicy holds the heuristic weights of the symptom classifier.
type ClassifierPolicy struct {
	BaseConfidence   float64
	EntityWeight     float64
	EntityCap        float64
	TemporalBonus    float64
	RedFlagBonus     float64
	InteractionBonus float64

	SymptomCountWeight float64
	SymptomCountCap    float64
	RedFlagSeverity    float64

	RuleEntityConfidence float64
	NLPEntityConfidence  float64
	VitalSignConfidence  float64
}

func DefaultClassifierPolicy() ClassifierPolicy {
	return ClassifierPolicy{
		BaseConfidence:   0.7,
		EntityWeight:     0.05,
		EntityCap:        0.2,
		TemporalBonus:    0.1,
		RedFlagBonus:     0.1,
		InteractionBonus: 0.05,

		SymptomCountWeight: 0.05,
		SymptomCountCap:    0.2,
		RedFlagSeverity:    0.2,

		RuleEntityConfidence: 0.7,
		NLPEntityConfidence:  0.8,
		VitalSignConfidence:  0.8,
	}
}

// Classifier maps free-text symptom descriptions to urgency, category and entities.
// It never fails: without an entity backend it runs on the rule tables alone.
type Classifier struct {
	entities EntityBackend
	policy   ClassifierPolicy
	timeout  time.Duration
}

// NewClassifier creates a classifier. entities may be nil.
func NewClassifier(entities EntityBackend, policy ClassifierPolicy, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = defaultBackendTimeout
	}
	return &Classifier{entities: entities, policy: policy, timeout: timeout}
}

// Classify analyses text after sanitising it and expanding abbreviations.
func (c *Classifier) Classify(ctx context.Context, text string) domain.SymptomAnalysis {
	prepared := PrepareClinicalText(text)

	urgency := ClassifyUrgency(prepared)
	category := Categorize(prepared)
	flags := IdentifyRedFlags(prepared)
	symptoms := SplitSymptoms(prepared)

	return domain.SymptomAnalysis{
		Symptoms:             symptoms,
		UrgencyLevel:         urgency,
		Category:             category,
		SeverityScore:        c.severityScore(prepared, urgency, len(symptoms), len(flags)),
		TemporalPatterns:     ExtractTemporalPatterns(prepared),
		AssociatedConditions: FindAssociatedConditions(prepared),
		RedFlags:             flags,
		Recommendations:      SymptomRecommendations(urgency, category, flags),
		DurationMentioned:    DurationMentioned(prepared),
		Entities:             c.extractEntities(ctx, prepared),
	}
}

// Confidence scores how much the analysis can be trusted.
func (c *Classifier) Confidence(a domain.SymptomAnalysis, interactionCount int) float64 {
	p := c.policy
	score := p.BaseConfidence
	score += min(float64(len(a.Entities))*p.EntityWeight, p.EntityCap)
	if len(a.TemporalPatterns) > 0 {
		score += p.TemporalBonus
	}
	if len(a.RedFlags) > 0 {
		score += p.RedFlagBonus
	}
	if interactionCount > 0 {
		score += p.InteractionBonus
	}
	return domain.ClampUnit(score)
}

func (c *Classifier) severityScore(text string, urgency domain.UrgencyLevel, symptomCount, redFlagCount int) float64 {
	lower := strings.ToLower(text)
	score := urgencyBaseSeverity[urgency]
	for _, adj := range severityAdjectives {
		if strings.Contains(lower, adj.keyword) {
			score = max(score, adj.weight)
		}
	}
	score += min(float64(symptomCount)*c.policy.SymptomCountWeight, c.policy.SymptomCountCap)
	score += float64(redFlagCount) * c.policy.RedFlagSeverity
	return domain.ClampUnit(score)
}

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
	controlPattern = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
)

// PrepareClinicalText strips markup and control characters, collapses
// whitespace and expands common clinical abbreviations.
func PrepareClinicalText(text string) string {
	clean := htmlTagPattern.ReplaceAllString(text, " ")
	clean = controlPattern.ReplaceAllString(clean, " ")
	clean = strings.Join(strings.Fields(clean), " ")
	for _, abbr := range medicalAbbreviations {
		clean = abbr.pattern.ReplaceAllString(clean, abbr.expanded)
	}
	return clean
}

// ClassifyUrgency returns the first tier with any matching keyword.
func ClassifyUrgency(text string) domain.UrgencyLevel {
	lower := strings.ToLower(text)
	for _, rule := range urgencyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.level
			}
		}
	}
	return domain.UrgencyLow
}

// Categorize returns the first category with any matching pattern.
func Categorize(text string) domain.SymptomCategory {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, p := range rule.patterns {
			if p.MatchString(lower) {
				return rule.category
			}
		}
	}
	return domain.CategoryGeneral
}

func IdentifyRedFlags(text string) []string {
	lower := strings.ToLower(text)
	flags := []string{}
	for _, flag := range redFlags {
		if strings.Contains(lower, flag) {
			flags = append(flags, flag)
		}
	}
	return flags
}

func ExtractTemporalPatterns(text string) []string {
	lower := strings.ToLower(text)
	patterns := []string{}
	for _, rule := range temporalRules {
		if strings.Contains(lower, rule.keyword) {
			patterns = append(patterns, rule.description)
		}
	}
	for _, m := range durationPattern.FindAllStringSubmatch(text, -1) {
		patterns = append(patterns, fmt.Sprintf("%s %s(s) duration", m[1], strings.ToLower(m[2])))
	}
	return patterns
}

// DurationMentioned reports whether text states how long symptoms have lasted.
func DurationMentioned(text string) bool {
	for _, p := range durationMentionPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// FindAssociatedConditions suggests conditions with enough co-occurring cues.
func FindAssociatedConditions(text string) []string {
	lower := strings.ToLower(text)
	conditions := []string{}
	for _, rule := range conditionRules {
		hits := 0
		for _, cue := range rule.cues {
			if strings.Contains(lower, cue) {
				hits++
			}
		}
		if hits >= minConditionCues {
			conditions = append(conditions, rule.condition)
		}
	}
	return conditions
}

// SplitSymptoms splits on separators and the words and/also/plus, keeping
// pieces longer than two characters.
func SplitSymptoms(text string) []string {
	symptoms := []string{}
	for _, part := range symptomSeparator.Split(text, -1) {
		part = strings.TrimSpace(part)
		if len(part) > 2 {
			symptoms = append(symptoms, part)
		}
	}
	return symptoms
}

// SymptomRecommendations lists urgency advice, then category advice, then red-flag advice.
func SymptomRecommendations(urgency domain.UrgencyLevel, category domain.SymptomCategory, flags []string) []string {
	recs := []string{}
	recs = append(recs, urgencyAdvice[urgency]...)
	recs = append(recs, categoryAdvice[category]...)
	if len(flags) > 0 {
		recs = append(recs, redFlagAdvice...)
	}
	return recs
}
