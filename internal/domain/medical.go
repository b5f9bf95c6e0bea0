package domain

// UrgencyLevel is the coarse triage tier of reported symptoms
type UrgencyLevel string

const (
	UrgencyLow       UrgencyLevel = "low"
	UrgencyMedium    UrgencyLevel = "medium"
	UrgencyHigh      UrgencyLevel = "high"
	UrgencyEmergency UrgencyLevel = "emergency"
)

// SymptomCategory is the body system a symptom description maps to
type SymptomCategory string

const (
	CategoryCardiovascular   SymptomCategory = "cardiovascular"
	CategoryRespiratory      SymptomCategory = "respiratory"
	CategoryNeurological     SymptomCategory = "neurological"
	CategoryGastrointestinal SymptomCategory = "gastrointestinal"
	CategoryMusculoskeletal  SymptomCategory = "musculoskeletal"
	CategoryDermatological   SymptomCategory = "dermatological"
	CategoryPsychiatric      SymptomCategory = "psychiatric"
	CategoryInfectious       SymptomCategory = "infectious"
	CategoryEndocrine        SymptomCategory = "endocrine"
	CategoryGenitourinary    SymptomCategory = "genitourinary"
	CategoryGeneral          SymptomCategory = "general"
)

// MedicalEntity is a span of text recognised as medically relevant.
type MedicalEntity struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	StartPos   int     `json:"start_pos"`
	EndPos     int     `json:"end_pos"`
	Category   string  `json:"category,omitempty"`
	Severity   string  `json:"severity,omitempty"`
}

// EntityLabels are the labels kept from an NLP backend. Rule-based
// extraction only emits labels from this set.
var EntityLabels = []string{
	"SYMPTOM", "DISEASE", "CONDITION", "MEDICATION", "BODY_PART", "DURATION", "SEVERITY",
}

// IsEntityLabel reports whether label (already upper-cased) is in EntityLabels.
func IsEntityLabel(label string) bool {
	for _, l := range EntityLabels {
		if l == label {
			return true
		}
	}
	return false
}

// RawEntity is what an NLP backend returns before labelling rules are applied.
type RawEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// SymptomAnalysis is the classifier's view of a free-text description.
type SymptomAnalysis struct {
	Symptoms             []string        `json:"symptoms"`
	UrgencyLevel         UrgencyLevel    `json:"urgency_level"`
	Category             SymptomCategory `json:"category"`
	SeverityScore        float64         `json:"severity_score"`
	TemporalPatterns     []string        `json:"temporal_patterns"`
	AssociatedConditions []string        `json:"associated_conditions"`
	RedFlags             []string        `json:"red_flags"`
	Recommendations      []string        `json:"recommendations"`
	DurationMentioned    bool            `json:"duration_mentioned"`
	Entities             []MedicalEntity `json:"entities"`
}

// DrugInteraction describes a known interaction between two medications.
type DrugInteraction struct {
	Drug1                string   `json:"drug1"`
	Drug2                string   `json:"drug2"`
	Severity             string   `json:"severity"`
	Description          string   `json:"description"`
	ClinicalSignificance string   `json:"clinical_significance"`
	Recommendations      []string `json:"recommendations"`
}

// UserContext is the caller-supplied medical history.
type UserContext struct {
	Conditions  []string `json:"conditions,omitempty"`
	Medications []string `json:"medications,omitempty"`
	Allergies   []string `json:"allergies,omitempty"`
	Age         *int     `json:"age,omitempty"`
}

// IsEmpty reports whether no history was supplied.
func (u UserContext) IsEmpty() bool {
	return len(u.Conditions) == 0 && len(u.Medications) == 0 && len(u.Allergies) == 0
}

// SymptomReport is the full result of analysing a symptom list.
type SymptomReport struct {
	SymptomAnalysis
	DrugInteractions  []DrugInteraction   `json:"drug_interactions"`
	Contraindications map[string][]string `json:"contraindications,omitempty"`
	RiskFactors       []string            `json:"risk_factors"`
	Confidence        float64             `json:"confidence"`
	UrgencyNotice     string              `json:"urgency_notice,omitempty"`
	Analysis          string              `json:"analysis,omitempty"`
	Sources           []Source            `json:"sources"`
	Disclaimer        string              `json:"disclaimer"`
}
