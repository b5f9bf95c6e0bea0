package service

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/cloo-solutions/vaidya/internal/domain"
)

// EntityBackend is an optional NLP named-entity recogniser.
type EntityBackend interface {
	ExtractEntities(ctx context.Context, text string) ([]domain.RawEntity, error)
}

// extractEntities prefers the NLP backend and falls back to the rule-based
// lexicons when it is missing or fails. Vital signs are always scanned.
func (c *Classifier) extractEntities(ctx context.Context, text string) []domain.MedicalEntity {
	var entities []domain.MedicalEntity

	nlpOK := false
	if c.entities != nil {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		raw, err := c.entities.ExtractEntities(callCtx, text)
		cancel()
		if err != nil {
			log.Printf("entity backend failed, using rule-based extraction: %v", err)
		} else {
			nlpOK = true
			entities = c.nlpEntities(raw)
		}
	}
	if !nlpOK {
		entities = c.ruleBasedEntities(text)
	}
	entities = append(entities, c.vitalSignEntities(text)...)

	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].StartPos < entities[j].StartPos
	})
	return entities
}

func (c *Classifier) nlpEntities(raw []domain.RawEntity) []domain.MedicalEntity {
	out := make([]domain.MedicalEntity, 0, len(raw))
	for _, r := range raw {
		label := strings.ToUpper(strings.TrimSpace(r.Label))
		if !domain.IsEntityLabel(label) {
			continue
		}
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		out = append(out, domain.MedicalEntity{
			Text:       r.Text,
			Label:      label,
			Confidence: c.policy.NLPEntityConfidence,
			StartPos:   r.Start,
			EndPos:     r.End,
			Category:   entityCategory(r.Text),
			Severity:   entitySeverity(r.Text),
		})
	}
	return out
}

func (c *Classifier) ruleBasedEntities(text string) []domain.MedicalEntity {
	var out []domain.MedicalEntity
	for _, rule := range entityRules {
		for _, p := range rule.patterns {
			for _, loc := range p.FindAllStringIndex(text, -1) {
				match := text[loc[0]:loc[1]]
				out = append(out, domain.MedicalEntity{
					Text:       match,
					Label:      rule.label,
					Confidence: c.policy.RuleEntityConfidence,
					StartPos:   loc[0],
					EndPos:     loc[1],
					Category:   entityCategory(match),
				})
			}
		}
	}
	return out
}

func (c *Classifier) vitalSignEntities(text string) []domain.MedicalEntity {
	var out []domain.MedicalEntity
	for _, p := range vitalSignPatterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			out = append(out, domain.MedicalEntity{
				Text:       text[loc[0]:loc[1]],
				Label:      "VITAL_SIGNS",
				Confidence: c.policy.VitalSignConfidence,
				StartPos:   loc[0],
				EndPos:     loc[1],
				Category:   "vital_signs",
			})
		}
	}
	return out
}

func entityCategory(text string) string {
	return firstGroup(entityCategoryGroups, text)
}

func entitySeverity(text string) string {
	return firstGroup(entitySeverityGroups, text)
}

func firstGroup(groups []keywordGroup, text string) string {
	lower := strings.ToLower(text)
	for _, g := range groups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.name
			}
		}
	}
	return ""
}
