package advice

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Schema is a structured-output schema in the provider's OpenAPI subset.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// Response field names, shared by the schema and the parser.
const (
	FieldAnalysis          = "analysis"
	FieldDietaryTips       = "dietaryTips"
	FieldExerciseTips      = "exerciseTips"
	FieldMotivationalQuote = "motivationalQuote"
)

// ResponseSchema returns the four-field schema the provider must fill.
func ResponseSchema() *Schema {
	stringList := func() *Schema {
		return &Schema{Type: "ARRAY", Items: &Schema{Type: "STRING"}}
	}
	return &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			FieldAnalysis:          {Type: "STRING"},
			FieldDietaryTips:       stringList(),
			FieldExerciseTips:      stringList(),
			FieldMotivationalQuote: {Type: "STRING"},
		},
		Required: []string{FieldAnalysis, FieldDietaryTips, FieldExerciseTips, FieldMotivationalQuote},
	}
}

// BuildPrompt renders the instruction text for req.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Act as a professional nutritionist and fitness expert.\n")
	b.WriteString("User Profile:\n")
	fmt.Fprintf(&b, "- Age: %d\n", req.AgeYears)
	fmt.Fprintf(&b, "- Gender: %s\n", req.Gender.DisplayName())
	fmt.Fprintf(&b, "- BMI: %.1f (%s)\n", req.BMI, req.Category)
	fmt.Fprintf(&b, "- BMR (Basal Metabolic Rate): ~%d kcal/day\n", roundHalfUp(req.BMR))
	b.WriteString("\n")
	b.WriteString("Provide a structured JSON response with:\n")
	b.WriteString("1. A professional, empathetic analysis of their current status (max 2 sentences).\n")
	b.WriteString("2. 3 specific, actionable dietary tips. Mention calorie management based on their BMR if relevant.\n")
	b.WriteString("3. 3 specific, actionable exercise tips suitable for their fitness level.\n")
	b.WriteString("4. A short, uplifting motivational quote.\n")
	return b.String()
}

func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

type adviceDocument struct {
	Analysis          *string   `json:"analysis"`
	DietaryTips       *[]string `json:"dietaryTips"`
	ExerciseTips      *[]string `json:"exerciseTips"`
	MotivationalQuote *string   `json:"motivationalQuote"`
}

// ParseAdvice decodes provider text into Advice. All four fields must be
// present and non-null.
func ParseAdvice(text string) (*Advice, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	var doc adviceDocument
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var missing []string
	if doc.Analysis == nil {
		missing = append(missing, FieldAnalysis)
	}
	if doc.DietaryTips == nil {
		missing = append(missing, FieldDietaryTips)
	}
	if doc.ExerciseTips == nil {
		missing = append(missing, FieldExerciseTips)
	}
	if doc.MotivationalQuote == nil {
		missing = append(missing, FieldMotivationalQuote)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	return &Advice{
		Analysis:          *doc.Analysis,
		DietaryTips:       *doc.DietaryTips,
		ExerciseTips:      *doc.ExerciseTips,
		MotivationalQuote: *doc.MotivationalQuote,
		Source:            SourceRemote,
	}, nil
}
