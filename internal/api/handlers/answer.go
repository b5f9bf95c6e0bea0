package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/vaidya/internal/api"
	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/service"
)

type AnswerService interface {
	Answer(ctx context.Context, req service.AnswerRequest) (*domain.Answer, error)
}

type SymptomService interface {
	AnalyzeSymptoms(ctx context.Context, symptoms []string, userCtx domain.UserContext) (*domain.SymptomReport, error)
}

// MedicalHandler serves the question-answering and symptom endpoints.
type MedicalHandler struct {
	answers  AnswerService
	symptoms SymptomService
}

func NewMedicalHandler(answers AnswerService, symptoms SymptomService) *MedicalHandler {
	return &MedicalHandler{answers: answers, symptoms: symptoms}
}

type AnswerRequest struct {
	Question       string             `json:"question"`
	UserContext    domain.UserContext `json:"user_context"`
	ConversationID string             `json:"conversation_id,omitempty"`
}

type AnalyzeSymptomsRequest struct {
	Symptoms    []string           `json:"symptoms"`
	UserContext domain.UserContext `json:"user_context"`
}

func (h *MedicalHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.answers.Answer(r.Context(), service.AnswerRequest{
		Question:       req.Question,
		UserContext:    req.UserContext,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, answer)
}

func (h *MedicalHandler) AnalyzeSymptoms(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeSymptomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Symptoms) == 0 {
		api.Error(w, http.StatusBadRequest, "symptoms are required")
		return
	}

	report, err := h.symptoms.AnalyzeSymptoms(r.Context(), req.Symptoms, req.UserContext)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, report)
}
