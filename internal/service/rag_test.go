package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ragFixture struct {
	retriever *MockRetriever
	generator *MockGenerator
	recorder  *MockConversationRecorder
	svc       *RAGService
}

func newRAGFixture(cfg RAGConfig) *ragFixture {
	f := &ragFixture{
		retriever: new(MockRetriever),
		generator: new(MockGenerator),
		recorder:  new(MockConversationRecorder),
	}
	f.svc = NewRAGService(f.retriever, f.generator,
		NewClassifier(nil, DefaultClassifierPolicy(), time.Second),
		NewConfidenceScorer(DefaultConfidencePolicy()),
		f.recorder, cfg)
	return f
}

func answerPrompt() interface{} {
	return mock.MatchedBy(func(r CompletionRequest) bool { return r.SystemPrompt == assistantSystemPrompt })
}

func followUpPrompt() interface{} {
	return mock.MatchedBy(func(r CompletionRequest) bool { return r.SystemPrompt == followUpSystemPrompt })
}

func literature() []domain.SearchResult {
	return []domain.SearchResult{
		{ID: "doc-1", ChunkID: "doc-1_0", Score: 0.9, Content: "Metformin is first line.",
			Metadata: domain.ChunkMetadata{Title: "Diabetes Guideline", Source: "ADA", DocumentType: domain.DocumentTypeGuideline}},
		{ID: "doc-2", ChunkID: "doc-2_4", Score: 0.7, Content: "Check renal function.",
			Metadata: domain.ChunkMetadata{Title: "Metformin Label"}},
	}
}

func TestRAGService_Answer_Success(t *testing.T) {
	f := newRAGFixture(DefaultRAGConfig())
	question := "What is the first-line therapy for type 2 diabetes?"

	f.retriever.On("SearchDocuments", mock.Anything, SearchInput{Query: question, Limit: 5}).
		Return(&SearchOutcome{Results: literature(), Status: SearchStatusOK, Total: 2}, nil)
	f.generator.On("Complete", mock.Anything, mock.MatchedBy(func(r CompletionRequest) bool {
		return r.SystemPrompt == assistantSystemPrompt &&
			strings.Contains(r.UserPrompt, "Source 1: Diabetes Guideline (ADA)") &&
			strings.Contains(r.UserPrompt, question) &&
			r.MaxTokens == 1000
	})).Return("  Metformin is first-line therapy. Please consult your doctor.  ", nil)
	f.generator.On("Complete", mock.Anything, followUpPrompt()).
		Return("1. What dose is typical?\n2. Are there side effects?\nHere you go\n3. When should kidneys be checked?\n4. Anything else?", nil)
	f.recorder.On("RecordExchange", mock.Anything, mock.MatchedBy(func(ex ConversationExchange) bool {
		return ex.Question == question && ex.ConversationID != "" && ex.Answer != nil
	})).Return(nil)

	answer, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "  " + question})

	require.NoError(t, err)
	assert.Equal(t, domain.StageComplete, answer.Stage)
	assert.Equal(t, "Metformin is first-line therapy. Please consult your doctor.", answer.Answer)
	assert.InDelta(t, 0.8*0.8, answer.Confidence, 1e-9)
	assert.Equal(t, MedicalDisclaimer, answer.Disclaimer)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, domain.Source{
		DocumentID: "doc-1", ChunkID: "doc-1_0", Title: "Diabetes Guideline", Source: "ADA",
		DocumentType: domain.DocumentTypeGuideline, Score: 0.9,
	}, answer.Sources[0])
	assert.Equal(t, []string{
		"What dose is typical?", "Are there side effects?", "When should kidneys be checked?",
	}, answer.FollowUpQuestions)
	assert.NotNil(t, answer.MedicalEntities)
	assert.Equal(t, domain.UrgencyLow, answer.UrgencyLevel)
	assert.Empty(t, answer.UrgencyNotice)
	assert.NotEmpty(t, answer.ConversationID)
	f.generator.AssertExpectations(t)
	f.recorder.AssertExpectations(t)
}

func TestRAGService_Answer_NoRetrievalResults(t *testing.T) {
	f := newRAGFixture(DefaultRAGConfig())
	question := "What is the treatment for mild seasonal allergies?"

	f.retriever.On("SearchDocuments", mock.Anything, mock.Anything).
		Return(&SearchOutcome{Results: []domain.SearchResult{}, Status: SearchStatusEmpty}, nil)
	f.generator.On("Complete", mock.Anything, mock.MatchedBy(func(r CompletionRequest) bool {
		return r.SystemPrompt == assistantSystemPrompt && strings.Contains(r.UserPrompt, noLiteratureContext)
	})).Return("Antihistamines usually help. Consult a pharmacist if symptoms persist.", nil)
	f.generator.On("Complete", mock.Anything, followUpPrompt()).Return("", errors.New("rate limited"))
	f.recorder.On("RecordExchange", mock.Anything, mock.Anything).Return(nil)

	answer, err := f.svc.AnswerQuery(context.Background(), question, domain.UserContext{})

	require.NoError(t, err)
	assert.Equal(t, domain.StageComplete, answer.Stage)
	assert.Empty(t, answer.Sources)
	assert.NotNil(t, answer.Sources)
	assert.InDelta(t, 0.2*0.8, answer.Confidence, 1e-9)
	assert.Equal(t, MedicalDisclaimer, answer.Disclaimer)
	assert.Equal(t, []string{}, answer.FollowUpQuestions, "follow-up failure is not fatal")
}

func TestRAGService_Answer_RetrievalFailureStillAnswers(t *testing.T) {
	f := newRAGFixture(DefaultRAGConfig())

	f.retriever.On("SearchDocuments", mock.Anything, mock.Anything).Return(nil, domain.ErrNoRetrievalPath)
	f.generator.On("Complete", mock.Anything, mock.MatchedBy(func(r CompletionRequest) bool {
		return r.SystemPrompt == assistantSystemPrompt && strings.Contains(r.UserPrompt, noLiteratureContext)
	})).Return("Rest and fluids.", nil)
	f.generator.On("Complete", mock.Anything, followUpPrompt()).Return("1. How long does flu last?", nil)
	f.recorder.On("RecordExchange", mock.Anything, mock.Anything).Return(nil)

	answer, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "How do I treat the flu?"})

	require.NoError(t, err)
	assert.Equal(t, domain.StageComplete, answer.Stage)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, []string{"How long does flu last?"}, answer.FollowUpQuestions)
}

func TestRAGService_Answer_GenerationFailureFallsBack(t *testing.T) {
	f := newRAGFixture(DefaultRAGConfig())

	f.retriever.On("SearchDocuments", mock.Anything, mock.Anything).
		Return(&SearchOutcome{Results: literature(), Status: SearchStatusOK}, nil)
	f.generator.On("Complete", mock.Anything, answerPrompt()).Return("", errors.New("503 from upstream"))

	answer, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "I have chest pain, what should I do?"})

	require.NoError(t, err)
	assert.Equal(t, domain.StageFailed, answer.Stage)
	assert.Equal(t, fallbackAnswer, answer.Answer)
	assert.Zero(t, answer.Confidence)
	assert.Equal(t, MedicalDisclaimer, answer.Disclaimer)
	assert.Empty(t, answer.Sources)
	assert.Empty(t, answer.FollowUpQuestions)
	assert.Equal(t, domain.UrgencyEmergency, answer.UrgencyLevel)
	assert.Equal(t, emergencyNotice, answer.UrgencyNotice)
	f.generator.AssertNumberOfCalls(t, "Complete", 1)
	f.recorder.AssertNotCalled(t, "RecordExchange", mock.Anything, mock.Anything)
}

func TestRAGService_Answer_EmptyGenerationFallsBack(t *testing.T) {
	f := newRAGFixture(DefaultRAGConfig())

	f.retriever.On("SearchDocuments", mock.Anything, mock.Anything).
		Return(&SearchOutcome{Status: SearchStatusEmpty}, nil)
	f.generator.On("Complete", mock.Anything, answerPrompt()).Return("   ", nil)

	answer, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "Is a mild rash serious?"})

	require.NoError(t, err)
	assert.Equal(t, domain.StageFailed, answer.Stage)
	assert.Equal(t, domain.UrgencyMedium, answer.UrgencyLevel)
	assert.Empty(t, answer.UrgencyNotice)
}

func TestRAGService_Answer_GenerationTimeout(t *testing.T) {
	cfg := DefaultRAGConfig()
	cfg.Timeout = 10 * time.Millisecond
	f := newRAGFixture(cfg)

	f.retriever.On("SearchDocuments", mock.Anything, mock.Anything).
		Return(&SearchOutcome{Status: SearchStatusEmpty}, nil)
	f.generator.On("Complete", mock.Anything, answerPrompt()).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded)

	answer, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "How long does a cold last?"})

	require.NoError(t, err)
	assert.Equal(t, domain.StageFailed, answer.Stage)
	assert.Equal(t, fallbackAnswer, answer.Answer)
}

func TestRAGService_Answer_CancelledContext(t *testing.T) {
	f := newRAGFixture(DefaultRAGConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	answer, err := f.svc.Answer(ctx, AnswerRequest{Question: "What is a fever?"})

	require.NoError(t, err)
	assert.Equal(t, domain.StageFailed, answer.Stage)
	f.retriever.AssertNotCalled(t, "SearchDocuments", mock.Anything, mock.Anything)
	f.generator.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestRAGService_Answer_EmptyQuestion(t *testing.T) {
	f := newRAGFixture(DefaultRAGConfig())

	answer, err := f.svc.Answer(context.Background(), AnswerRequest{Question: " \t "})

	assert.Nil(t, answer)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestRAGService_Answer_ConversationAndHistory(t *testing.T) {
	f := newRAGFixture(DefaultRAGConfig())
	age := 70

	f.retriever.On("SearchDocuments", mock.Anything, mock.Anything).
		Return(&SearchOutcome{Status: SearchStatusEmpty}, nil)
	f.generator.On("Complete", mock.Anything, mock.MatchedBy(func(r CompletionRequest) bool {
		return r.SystemPrompt == assistantSystemPrompt &&
			strings.Contains(r.UserPrompt, "Age: 70") &&
			strings.Contains(r.UserPrompt, "Current medications: warfarin, aspirin")
	})).Return("Ask your doctor before combining them.", nil)
	f.generator.On("Complete", mock.Anything, followUpPrompt()).Return("none", nil)
	f.recorder.On("RecordExchange", mock.Anything, mock.MatchedBy(func(ex ConversationExchange) bool {
		return ex.ConversationID == "conv-1"
	})).Return(errors.New("db down"))

	answer, err := f.svc.Answer(context.Background(), AnswerRequest{
		Question:       "Can I take ibuprofen?",
		ConversationID: "conv-1",
		UserContext:    domain.UserContext{Age: &age, Medications: []string{"warfarin", "aspirin"}},
	})

	require.NoError(t, err, "recording failures do not fail the answer")
	assert.Equal(t, domain.StageComplete, answer.Stage)
	assert.Equal(t, "conv-1", answer.ConversationID)
	assert.Equal(t, []string{}, answer.FollowUpQuestions)
	f.generator.AssertExpectations(t)
	f.recorder.AssertExpectations(t)
}

func TestRAGService_Answer_WithoutRecorder(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	svc := NewRAGService(retriever, generator,
		NewClassifier(nil, DefaultClassifierPolicy(), time.Second),
		NewConfidenceScorer(DefaultConfidencePolicy()), nil, RAGConfig{})

	retriever.On("SearchDocuments", mock.Anything, SearchInput{Query: "What is asthma?", Limit: 5}).
		Return(&SearchOutcome{Status: SearchStatusEmpty}, nil)
	generator.On("Complete", mock.Anything, mock.Anything).Return("A chronic airway disease.", nil)

	answer, err := svc.Answer(context.Background(), AnswerRequest{Question: "What is asthma?"})

	require.NoError(t, err)
	assert.Empty(t, answer.ConversationID)
	retriever.AssertExpectations(t)
}

func TestParseFollowUps(t *testing.T) {
	text := "1. What dose is typical?\n- Are there side effects?\nThis is not a question\n\n3. When to retest?\n4. Extra?"

	assert.Equal(t, []string{"What dose is typical?", "Are there side effects?", "When to retest?"},
		parseFollowUps(text, 3))
	assert.Equal(t, []string{}, parseFollowUps("no questions here", 3))
}

func TestFormatMedicalHistory(t *testing.T) {
	assert.Equal(t, noMedicalHistory, FormatMedicalHistory(domain.UserContext{}))

	age := 42
	got := FormatMedicalHistory(domain.UserContext{
		Age:        &age,
		Conditions: []string{"asthma"},
		Allergies:  []string{"penicillin", "latex"},
	})
	assert.Equal(t, "Age: 42\nMedical conditions: asthma\nKnown allergies: penicillin, latex", got)
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, noLiteratureContext, FormatContext(nil))

	got := FormatContext([]domain.SearchResult{{Content: "Rest."}})
	assert.Contains(t, got, "Source 1: Unknown")
	assert.Contains(t, got, "Content: Rest.")
}
