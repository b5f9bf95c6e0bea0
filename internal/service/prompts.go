package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/vaidya/internal/domain"
)

// MedicalDisclaimer is attached to every answer, including fallbacks.
const MedicalDisclaimer = "This information is for educational purposes only and should not " +
	"replace professional medical advice, diagnosis, or treatment. " +
	"Always consult with a qualified healthcare provider for medical concerns."

const (
	fallbackAnswer = "I apologize, but I'm unable to process your medical question at the moment. " +
		"Please consult with a healthcare professional for medical advice."
	fallbackSymptomAnalysis = "I'm unable to analyze these symptoms at the moment. " +
		"Please consult with a healthcare professional."
	emergencyNotice = "Your description includes signs of a possible medical emergency. " +
		"Please seek immediate medical care or call your local emergency number now."

	noLiteratureContext = "No specific medical literature found for this query."
	noMedicalHistory    = "No medical history provided."

	assistantSystemPrompt = "You are Vaidya, a knowledgeable and empathetic AI medical assistant."
	symptomSystemPrompt   = "You are a medical AI providing symptom analysis for educational purposes."
	followUpSystemPrompt  = "Generate helpful medical follow-up questions."
)

const medicalPromptTemplate = `You are Vaidya, an AI medical assistant designed to provide accurate, helpful, and empathetic medical information. You have access to authoritative medical literature and guidelines.

MEDICAL CONTEXT:
%s

USER'S MEDICAL HISTORY:
%s

USER'S QUESTION:
%s

INSTRUCTIONS:
1. Provide accurate, evidence-based medical information
2. Use the provided context from medical literature
3. Consider the user's medical history if relevant
4. Be empathetic and supportive
5. Always include appropriate medical disclaimers
6. Suggest when to seek professional medical care
7. Provide clear, understandable explanations
8. Include relevant follow-up questions when appropriate

RESPONSE FORMAT:
- Answer the user's question directly and clearly
- Reference specific medical sources when applicable
- Include confidence level in your response
- Suggest follow-up questions or next steps
- End with an appropriate medical disclaimer

IMPORTANT: This is for educational purposes only. Always recommend consulting with healthcare professionals for medical decisions.

Response:`

const symptomPromptTemplate = `You are analyzing symptoms to provide educational information about possible conditions.

SYMPTOMS REPORTED:
%s

MEDICAL LITERATURE CONTEXT:
%s

USER'S MEDICAL HISTORY:
%s

Provide a structured analysis including:
1. Possible conditions (with confidence levels)
2. Recommended actions
3. Urgency level (low/medium/high/emergency)
4. When to seek immediate care
5. General health recommendations

Remember: This is educational information only, not a medical diagnosis.`

const followUpPromptTemplate = `Based on this medical question and answer, suggest 3 relevant follow-up questions:

Question: %s
Answer: %s

Generate questions that would help the user understand their condition better or provide more specific guidance.`

// FormatContext renders retrieved passages as numbered sources, in relevance order.
func FormatContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return noLiteratureContext
	}
	parts := make([]string, 0, len(results))
	for i, r := range results {
		title := r.Title()
		if title == "" {
			title = "Unknown"
		}
		header := fmt.Sprintf("Source %d: %s", i+1, title)
		if r.Metadata.Source != "" {
			header += fmt.Sprintf(" (%s)", r.Metadata.Source)
		}
		parts = append(parts, fmt.Sprintf("%s\nContent: %s\n", header, r.Content))
	}
	return strings.Join(parts, "\n")
}

// FormatMedicalHistory renders the caller's history for the prompt.
func FormatMedicalHistory(u domain.UserContext) string {
	var parts []string
	if u.Age != nil {
		parts = append(parts, fmt.Sprintf("Age: %d", *u.Age))
	}
	if len(u.Conditions) > 0 {
		parts = append(parts, "Medical conditions: "+strings.Join(u.Conditions, ", "))
	}
	if len(u.Medications) > 0 {
		parts = append(parts, "Current medications: "+strings.Join(u.Medications, ", "))
	}
	if len(u.Allergies) > 0 {
		parts = append(parts, "Known allergies: "+strings.Join(u.Allergies, ", "))
	}
	if len(parts) == 0 {
		return noMedicalHistory
	}
	return strings.Join(parts, "\n")
}

func buildMedicalPrompt(question, context, history string) string {
	return fmt.Sprintf(medicalPromptTemplate, context, history, question)
}

func buildSymptomPrompt(symptoms []string, context, history string) string {
	return fmt.Sprintf(symptomPromptTemplate, strings.Join(symptoms, ", "), context, history)
}

func buildFollowUpPrompt(question, answer string) string {
	return fmt.Sprintf(followUpPromptTemplate, question, answer)
}

// parseFollowUps keeps question lines, stripped of list numbering.
func parseFollowUps(text string, limit int) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		q := strings.Trim(strings.TrimSpace(line), "1234567890.- ")
		if q == "" || !strings.Contains(q, "?") {
			continue
		}
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out
}

func sourcesFromResults(results []domain.SearchResult) []domain.Source {
	sources := make([]domain.Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, domain.Source{
			DocumentID:   r.ID,
			ChunkID:      r.ChunkID,
			Title:        r.Title(),
			Source:       r.Metadata.Source,
			DocumentType: r.Metadata.DocumentType,
			Score:        domain.ClampUnit(r.Score),
		})
	}
	return sources
}
