package domain

// Stage is a step of the answer pipeline.
type Stage string

const (
	StageReceived         Stage = "received"
	StageRetrieving       Stage = "retrieving"
	StageContextBuilt     Stage = "context_built"
	StageGenerating       Stage = "generating"
	StageEntityExtraction Stage = "entity_extraction"
	StageScoring          Stage = "scoring"
	StageComplete         Stage = "complete"
	StageFailed           Stage = "failed"
)

// Source is a retrieved passage cited by an answer.
type Source struct {
	DocumentID   string       `json:"document_id"`
	ChunkID      string       `json:"chunk_id,omitempty"`
	Title        string       `json:"title"`
	Source       string       `json:"source,omitempty"`
	DocumentType DocumentType `json:"document_type,omitempty"`
	Score        float64      `json:"score"`
}

// Answer is the final structured response to a medical question.
type Answer struct {
	Answer            string          `json:"answer"`
	Confidence        float64         `json:"confidence"`
	Sources           []Source        `json:"sources"`
	MedicalEntities   []MedicalEntity `json:"medical_entities"`
	Disclaimer        string          `json:"disclaimer"`
	FollowUpQuestions []string        `json:"follow_up_questions"`
	UrgencyLevel      UrgencyLevel    `json:"urgency_level,omitempty"`
	UrgencyNotice     string          `json:"urgency_notice,omitempty"`
	Stage             Stage           `json:"stage"`
	ConversationID    string          `json:"conversation_id,omitempty"`
}
