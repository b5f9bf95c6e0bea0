package service

import (
	"regexp"

	"github.com/cloo-solutions/vaidya/internal/domain"
)

// Rule tables are evaluated top to bottom; the first matching row wins unless
// the consumer says otherwise. Order is part of the behaviour.

type categoryRule struct {
	category domain.SymptomCategory
	patterns []*regexp.Regexp
}

var categoryRules = []categoryRule{
	{domain.CategoryCardiovascular, compileAll(
		`chest pain|heart attack|palpitations|shortness of breath|dizziness|fainting`,
		`high blood pressure|low blood pressure|irregular heartbeat|chest tightness`,
	)},
	{domain.CategoryRespiratory, compileAll(
		`cough|wheeze|shortness of breath|difficulty breathing|chest congestion`,
		`asthma|bronchitis|pneumonia|sore throat|runny nose`,
	)},
	{domain.CategoryNeurological, compileAll(
		`headache|migraine|seizure|confusion|memory loss|tremor|weakness`,
		`stroke|dizziness|numbness|tingling|vision problems`,
	)},
	{domain.CategoryGastrointestinal, compileAll(
		`nausea|vomiting|diarrhea|constipation|stomach pain|heartburn`,
		`bloating|gas|loss of appetite|weight loss|blood in stool`,
	)},
	{domain.CategoryMusculoskeletal, compileAll(
		`joint pain|muscle pain|back pain|stiffness|swelling|arthritis`,
		`fracture|sprain|strain|weakness|limited mobility`,
	)},
	{domain.CategoryDermatological, compileAll(
		`rash|itching|redness|swelling|skin lesion|moles|acne`,
		`eczema|psoriasis|hives|bruising|wound|burn`,
	)},
	{domain.CategoryPsychiatric, compileAll(
		`anxiety|depression|mood swings|panic attacks|insomnia|stress`,
		`hallucinations|delusions|suicidal thoughts|substance abuse`,
	)},
	{domain.CategoryInfectious, compileAll(
		`fever|chills|sweating|fatigue|malaise|body aches|infection`,
		`flu|cold|viral|bacterial|fungal|parasitic`,
	)},
	{domain.CategoryEndocrine, compileAll(
		`excessive thirst|frequent urination|blood sugar|thyroid|goiter|insulin`,
		`heat intolerance|cold intolerance|unexplained weight gain|hormone`,
	)},
	{domain.CategoryGenitourinary, compileAll(
		`painful urination|burning urination|blood in urine|urinary|incontinence`,
		`kidney stone|pelvic pain|flank pain|testicular|vaginal discharge|erectile`,
	)},
}

type urgencyRule struct {
	level    domain.UrgencyLevel
	keywords []string
}

var urgencyRules = []urgencyRule{
	{domain.UrgencyEmergency, []string{
		"chest pain", "heart attack", "stroke", "unconscious", "severe bleeding",
		"can't breathe", "choking", "severe allergic reaction", "overdose",
	}},
	{domain.UrgencyHigh, []string{
		"severe pain", "high fever", "vomiting blood", "difficulty breathing",
		"severe headache", "sudden weakness", "confusion",
	}},
	{domain.UrgencyMedium, []string{
		"fever", "persistent cough", "moderate pain", "rash", "nausea",
		"dizziness", "fatigue",
	}},
}

var urgencyBaseSeverity = map[domain.UrgencyLevel]float64{
	domain.UrgencyLow:       0.2,
	domain.UrgencyMedium:    0.4,
	domain.UrgencyHigh:      0.7,
	domain.UrgencyEmergency: 1.0,
}

type weightedKeyword struct {
	keyword string
	weight  float64
}

var severityAdjectives = []weightedKeyword{
	{"mild", 0.1},
	{"moderate", 0.3},
	{"severe", 0.7},
	{"excruciating", 0.9},
	{"unbearable", 1.0},
}

var redFlags = []string{
	"chest pain", "difficulty breathing", "severe headache", "sudden weakness",
	"unconscious", "severe bleeding", "suicide", "overdose", "heart attack",
	"stroke", "severe allergic reaction", "choking", "severe burn",
}

type temporalRule struct {
	keyword     string
	description string
}

var temporalRules = []temporalRule{
	{"acute", "sudden onset"},
	{"chronic", "long-term"},
	{"intermittent", "comes and goes"},
	{"persistent", "continuous"},
	{"recurring", "repeated episodes"},
	{"progressive", "worsening over time"},
	{"sudden", "acute onset"},
	{"gradual", "slow progression"},
}

var (
	durationPattern         = regexp.MustCompile(`(?i)(\d+)\s*(minute|hour|day|week|month|year)s?`)
	durationMentionPatterns = compileAll(
		`(?i)\d+\s*(minute|hour|day|week|month|year)s?`,
		`(?i)\b(since|for|lasting|ongoing|chronic|acute)\b`,
	)
	symptomSeparator = regexp.MustCompile(`(?i)[,;]+|\b(?:and|also|plus)\b`)
)

type conditionRule struct {
	condition string
	cues      []string
}

// minConditionCues is how many cues must co-occur before a condition is suggested.
const minConditionCues = 2

var conditionRules = []conditionRule{
	{"hypertension", []string{"high blood pressure", "headache", "dizziness"}},
	{"diabetes", []string{"frequent urination", "excessive thirst", "fatigue"}},
	{"migraine", []string{"severe headache", "nausea", "light sensitivity"}},
	{"asthma", []string{"wheezing", "shortness of breath", "chest tightness"}},
	{"arthritis", []string{"joint pain", "stiffness", "swelling"}},
	{"depression", []string{"sadness", "fatigue", "sleep problems"}},
	{"anxiety", []string{"worry", "panic", "rapid heartbeat"}},
}

var highRiskConditions = []string{
	"diabetes", "hypertension", "heart disease", "stroke",
	"cancer", "kidney disease", "liver disease",
}

type abbreviationRule struct {
	pattern  *regexp.Regexp
	expanded string
}

var medicalAbbreviations = []abbreviationRule{
	{regexp.MustCompile(`(?i)\bbp\b`), "blood pressure"},
	{regexp.MustCompile(`(?i)\bhr\b`), "heart rate"},
	{regexp.MustCompile(`(?i)\btemp\b`), "temperature"},
	{regexp.MustCompile(`(?i)\brr\b`), "respiratory rate"},
	{regexp.MustCompile(`(?i)\bo2\b`), "oxygen"},
	{regexp.MustCompile(`(?i)\bdx\b`), "diagnosis"},
	{regexp.MustCompile(`(?i)\btx\b`), "treatment"},
	{regexp.MustCompile(`(?i)\bhx\b`), "history"},
	{regexp.MustCompile(`(?i)\bsx\b`), "symptoms"},
	{regexp.MustCompile(`(?i)\brx\b`), "prescription"},
}

type entityRule struct {
	label    string
	patterns []*regexp.Regexp
}

var entityRules = []entityRule{
	{"SYMPTOM", compileAll(
		`(?i)\b(?:pain|ache|soreness|discomfort|burning|stinging|throbbing)\b`,
		`(?i)\b(?:fever|chills|sweating|nausea|vomiting|diarrhea|constipation)\b`,
		`(?i)\b(?:headache|dizziness|fatigue|weakness|numbness|tingling)\b`,
		`(?i)\b(?:cough|wheeze|shortness of breath|chest tightness)\b`,
		`(?i)\b(?:rash|itching|swelling|redness|bruising)\b`,
	)},
	{"BODY_PART", compileAll(
		`(?i)\b(?:head|neck|chest|back|stomach|abdomen|arm|leg|hand|foot)\b`,
		`(?i)\b(?:heart|lung|liver|kidney|brain|muscle|joint|skin|eye|ear)\b`,
	)},
	{"DURATION", compileAll(
		`(?i)\b(?:minutes?|hours?|days?|weeks?|months?|years?)\b`,
		`(?i)\b(?:since|for|lasting|ongoing|persistent|chronic|acute)\b`,
	)},
	{"SEVERITY", compileAll(
		`(?i)\b(?:mild|moderate|severe|excruciating|unbearable|slight)\b`,
		`(?i)\b(?:getting worse|improving|constant|intermittent)\b`,
	)},
}

var vitalSignPatterns = compileAll(
	`(?i)blood pressure.*?(\d+)/(\d+)`,
	`(?i)heart rate.*?(\d+)`,
	`(?i)temperature.*?(\d+\.?\d*)`,
	`(?i)weight.*?(\d+\.?\d*)`,
)

type keywordGroup struct {
	name     string
	keywords []string
}

var entityCategoryGroups = []keywordGroup{
	{"symptom", []string{"pain", "ache", "fever", "nausea", "cough"}},
	{"body_part", []string{"head", "chest", "back", "stomach", "arm", "leg"}},
	{"duration", []string{"minute", "hour", "day", "week", "month", "year"}},
	{"severity", []string{"mild", "moderate", "severe", "acute", "chronic"}},
}

var entitySeverityGroups = []keywordGroup{
	{"mild", []string{"mild", "slight", "minor"}},
	{"moderate", []string{"moderate", "medium"}},
	{"severe", []string{"severe", "intense", "extreme", "excruciating"}},
}

var urgencyAdvice = map[domain.UrgencyLevel][]string{
	domain.UrgencyEmergency: {"Seek immediate emergency medical attention", "Call emergency services if symptoms worsen"},
	domain.UrgencyHigh:      {"Consult healthcare provider within 24 hours", "Monitor symptoms closely"},
	domain.UrgencyMedium:    {"Schedule appointment with healthcare provider", "Keep symptom diary"},
	domain.UrgencyLow:       {"Monitor symptoms and consult if they persist"},
}

var categoryAdvice = map[domain.SymptomCategory][]string{
	domain.CategoryCardiovascular: {
		"Monitor blood pressure regularly",
		"Avoid strenuous activity if chest pain",
		"Keep nitroglycerin available if prescribed",
	},
	domain.CategoryRespiratory: {
		"Use inhaler as prescribed",
		"Avoid respiratory irritants",
		"Monitor oxygen levels if available",
	},
	domain.CategoryNeurological: {
		"Avoid driving if dizzy or confused",
		"Keep seizure medications available",
		"Monitor for changes in symptoms",
	},
}

var redFlagAdvice = []string{"Immediate medical attention required", "Do not delay seeking care"}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
