package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/telemetry"
	"github.com/google/uuid"
)

// CompletionRequest is one chat completion call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Generator is the generative-text backend.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Retriever is the search side of the pipeline.
type Retriever interface {
	SearchDocuments(ctx context.Context, input SearchInput) (*SearchOutcome, error)
}

// ConversationExchange is a completed question/answer pair.
type ConversationExchange struct {
	ConversationID string
	Question       string
	Answer         *domain.Answer
}

// ConversationRecorder persists completed exchanges.
type ConversationRecorder interface {
	RecordExchange(ctx context.Context, ex ConversationExchange) error
}

type RAGConfig struct {
	MaxResults          int
	Timeout             time.Duration
	Temperature         float32
	MaxTokens           int
	FollowUpTemperature float32
	FollowUpMaxTokens   int
	MaxFollowUps        int
}

func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		MaxResults:          5,
		Timeout:             defaultBackendTimeout,
		Temperature:         0.3,
		MaxTokens:           1000,
		FollowUpTemperature: 0.4,
		FollowUpMaxTokens:   300,
		MaxFollowUps:        3,
	}
}

// RAGService answers medical questions from retrieved literature.
type RAGService struct {
	retriever  Retriever
	generator  Generator
	classifier *Classifier
	scorer     *ConfidenceScorer
	recorder   ConversationRecorder
	cfg        RAGConfig
}

// NewRAGService wires the orchestrator. recorder may be nil.
func NewRAGService(retriever Retriever, generator Generator, classifier *Classifier, scorer *ConfidenceScorer, recorder ConversationRecorder, cfg RAGConfig) *RAGService {
	def := DefaultRAGConfig()
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.FollowUpMaxTokens <= 0 {
		cfg.FollowUpMaxTokens = def.FollowUpMaxTokens
	}
	if cfg.MaxFollowUps <= 0 {
		cfg.MaxFollowUps = def.MaxFollowUps
	}
	return &RAGService{
		retriever:  retriever,
		generator:  generator,
		classifier: classifier,
		scorer:     scorer,
		recorder:   recorder,
		cfg:        cfg,
	}
}

// AnswerRequest is a question plus optional history and conversation.
type AnswerRequest struct {
	Question       string
	UserContext    domain.UserContext
	ConversationID string
}

// AnswerQuery answers a single question outside any conversation.
func (s *RAGService) AnswerQuery(ctx context.Context, question string, userCtx domain.UserContext) (*domain.Answer, error) {
	return s.Answer(ctx, AnswerRequest{Question: question, UserContext: userCtx})
}

// Answer runs the pipeline once. The only error is invalid input; every backend
// failure ends in a fallback answer that still carries the disclaimer.
func (s *RAGService) Answer(ctx context.Context, req AnswerRequest) (*domain.Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "rag.answer", telemetry.SpanAttributes{Operation: "answer"})
	defer span.End()

	run := &ragRun{ctx: ctx, stage: domain.StageReceived}

	var results []domain.SearchResult
	run.step(domain.StageRetrieving, func(ctx context.Context) error {
		results = s.retrieve(ctx, question)
		return nil
	})

	var prompt string
	run.step(domain.StageContextBuilt, func(context.Context) error {
		prompt = buildMedicalPrompt(question, FormatContext(results), FormatMedicalHistory(req.UserContext))
		return nil
	})

	var text string
	run.step(domain.StageGenerating, func(ctx context.Context) error {
		var err error
		text, err = s.complete(ctx, CompletionRequest{
			SystemPrompt: assistantSystemPrompt,
			UserPrompt:   prompt,
			Temperature:  s.cfg.Temperature,
			MaxTokens:    s.cfg.MaxTokens,
		})
		return err
	})

	var analysis domain.SymptomAnalysis
	run.step(domain.StageEntityExtraction, func(ctx context.Context) error {
		analysis = s.classifier.Classify(ctx, question)
		return nil
	})

	var confidence float64
	run.step(domain.StageScoring, func(context.Context) error {
		confidence = s.scorer.Score(results, text)
		return nil
	})

	if run.err != nil {
		span.SetError(run.err)
		log.Printf("answer pipeline failed at %s: %v", run.failedAt, run.err)
		return s.fallbackAnswer(question), nil
	}

	answer := &domain.Answer{
		Answer:            text,
		Confidence:        confidence,
		Sources:           sourcesFromResults(results),
		MedicalEntities:   nonNilEntities(analysis.Entities),
		Disclaimer:        MedicalDisclaimer,
		FollowUpQuestions: s.followUps(ctx, question, text),
		Stage:             domain.StageComplete,
		ConversationID:    req.ConversationID,
	}
	applyUrgency(answer, analysis.UrgencyLevel)
	run.transition(domain.StageComplete)
	span.SetData("sources", len(answer.Sources))
	span.SetData("confidence", answer.Confidence)
	span.SetOK()

	s.record(ctx, question, answer)
	return answer, nil
}

func (s *RAGService) retrieve(ctx context.Context, question string) []domain.SearchResult {
	outcome, err := s.retriever.SearchDocuments(ctx, SearchInput{Query: question, Limit: s.cfg.MaxResults})
	if err != nil {
		log.Printf("retrieval failed, answering without context: %v", err)
		return nil
	}
	if outcome.Degraded() {
		log.Printf("retrieval degraded: semantic=%v keyword=%v", outcome.SemanticErr, outcome.KeywordErr)
	}
	return outcome.Results
}

func (s *RAGService) complete(ctx context.Context, req CompletionRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	text, err := s.generator.Complete(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", domain.NewDomainErrorWithCause(domain.ErrCodeBackendTimeout, "generation timed out", err)
		}
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, domain.ErrGeneration.Message, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewDomainError(domain.ErrCodeGeneration, "generator returned an empty response")
	}
	return text, nil
}

// followUps is best effort; any failure yields no questions.
func (s *RAGService) followUps(ctx context.Context, question, answer string) []string {
	text, err := s.complete(ctx, CompletionRequest{
		SystemPrompt: followUpSystemPrompt,
		UserPrompt:   buildFollowUpPrompt(question, answer),
		Temperature:  s.cfg.FollowUpTemperature,
		MaxTokens:    s.cfg.FollowUpMaxTokens,
	})
	if err != nil {
		log.Printf("follow-up generation failed: %v", err)
		return []string{}
	}
	return parseFollowUps(text, s.cfg.MaxFollowUps)
}

func (s *RAGService) record(ctx context.Context, question string, answer *domain.Answer) {
	if s.recorder == nil {
		return
	}
	if answer.ConversationID == "" {
		answer.ConversationID = uuid.NewString()
	}
	err := s.recorder.RecordExchange(ctx, ConversationExchange{
		ConversationID: answer.ConversationID,
		Question:       question,
		Answer:         answer,
	})
	if err != nil {
		log.Printf("failed to record conversation %s: %v", answer.ConversationID, err)
	}
}

func (s *RAGService) fallbackAnswer(question string) *domain.Answer {
	answer := &domain.Answer{
		Answer:            fallbackAnswer,
		Confidence:        0,
		Sources:           []domain.Source{},
		MedicalEntities:   []domain.MedicalEntity{},
		Disclaimer:        MedicalDisclaimer,
		FollowUpQuestions: []string{},
		Stage:             domain.StageFailed,
	}
	applyUrgency(answer, ClassifyUrgency(PrepareClinicalText(question)))
	return answer
}

func applyUrgency(answer *domain.Answer, level domain.UrgencyLevel) {
	answer.UrgencyLevel = level
	if level == domain.UrgencyEmergency {
		answer.UrgencyNotice = emergencyNotice
	}
}

func nonNilEntities(e []domain.MedicalEntity) []domain.MedicalEntity {
	if e == nil {
		return []domain.MedicalEntity{}
	}
	return e
}

// ragRun tracks the current stage. Once a step fails, later steps are skipped.
type ragRun struct {
	ctx      context.Context
	stage    domain.Stage
	err      error
	failedAt domain.Stage
}

func (r *ragRun) step(stage domain.Stage, fn func(ctx context.Context) error) {
	if r.err != nil {
		return
	}
	if err := r.ctx.Err(); err != nil {
		r.fail(stage, err)
		return
	}
	r.transition(stage)

	ctx, span := telemetry.StartSpan(r.ctx, "rag."+string(stage), telemetry.SpanAttributes{Stage: string(stage)})
	defer span.End()
	if err := fn(ctx); err != nil {
		span.SetError(err)
		r.fail(stage, err)
	}
}

func (r *ragRun) transition(stage domain.Stage) {
	telemetry.AddBreadcrumb(r.ctx, "rag", fmt.Sprintf("%s -> %s", r.stage, stage))
	r.stage = stage
}

func (r *ragRun) fail(stage domain.Stage, err error) {
	r.err = err
	r.failedAt = stage
	r.transition(domain.StageFailed)
}
