package domain

// InterpretationResult is the decoded analysis payload of a completed job.
// Fields beyond the summary are optional; the backend omits sections it could
// not produce for a given document set.
type InterpretationResult struct {
	Summary             string               `json:"summary"`
	VisualMetrics       *VisualMetrics       `json:"visual_metrics,omitempty"`
	KeyFindings         []string             `json:"key_findings,omitempty"`
	Recommendations     []string             `json:"recommendations,omitempty"`
	ActionPlan          *ActionPlan          `json:"action_plan,omitempty"`
	SmartQuestions      []string             `json:"smart_questions,omitempty"`
	EducationalContent  *EducationalContent  `json:"educational_content,omitempty"`
	EmergencyGuidelines *EmergencyGuidelines `json:"emergency_guidelines,omitempty"`
	MedicalTerms        map[string]string    `json:"medical_terms,omitempty"`
}

type VisualMetrics struct {
	OverallHealthScore int          `json:"overall_health_score"`
	RiskLevel          string       `json:"risk_level"`
	SeverityColor      string       `json:"severity_color"`
	TestResults        []TestResult `json:"test_results"`
}

type TestResult struct {
	Name               string  `json:"name"`
	Value              string  `json:"value"`
	Unit               string  `json:"unit"`
	NormalRange        string  `json:"normal_range"`
	Status             string  `json:"status"`
	Color              string  `json:"color"`
	PercentageOfNormal float64 `json:"percentage_of_normal"`
}

type ActionPlan struct {
	Immediate  []string `json:"immediate,omitempty"`
	ShortTerm  []string `json:"short_term,omitempty"`
	LongTerm   []string `json:"long_term,omitempty"`
	Monitoring []string `json:"monitoring,omitempty"`
}

type EducationalContent struct {
	WhatThisMeans   string `json:"what_this_means"`
	WhyItMatters    string `json:"why_it_matters"`
	LifestyleImpact string `json:"lifestyle_impact"`
}

type EmergencyGuidelines struct {
	WarningSigns      []string `json:"warning_signs,omitempty"`
	WhenToCallDoctor  string   `json:"when_to_call_doctor"`
	EmergencyContacts string   `json:"emergency_contacts"`
}
