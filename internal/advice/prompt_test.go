package advice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohealth/prohealth/internal/advice"
	"github.com/prohealth/prohealth/internal/bodymetrics"
)

func TestBuildPrompt(t *testing.T) {
	prompt := advice.BuildPrompt(advice.Request{
		BMI:      22.857142,
		AgeYears: 30,
		Gender:   bodymetrics.GenderMale,
		Category: bodymetrics.LabelNormal,
		BMR:      1673.75,
	})

	assert.Contains(t, prompt, "Act as a professional nutritionist and fitness expert.")
	assert.Contains(t, prompt, "- Age: 30\n")
	assert.Contains(t, prompt, "- Gender: Male\n")
	assert.Contains(t, prompt, "- BMI: 22.9 (Normal Weight)\n")
	assert.Contains(t, prompt, "- BMR (Basal Metabolic Rate): ~1674 kcal/day\n")
	assert.Contains(t, prompt, "4. A short, uplifting motivational quote.")
}

func TestBuildPrompt_RoundsBMRHalfUp(t *testing.T) {
	prompt := advice.BuildPrompt(advice.Request{
		BMI:      30,
		AgeYears: 41,
		Gender:   bodymetrics.GenderFemale,
		Category: bodymetrics.LabelObesity,
		BMR:      1507.5,
	})

	assert.Contains(t, prompt, "- Gender: Female\n")
	assert.Contains(t, prompt, "~1508 kcal/day")
}

func TestResponseSchema(t *testing.T) {
	schema := advice.ResponseSchema()

	assert.Equal(t, "OBJECT", schema.Type)
	assert.ElementsMatch(t, []string{"analysis", "dietaryTips", "exerciseTips", "motivationalQuote"}, schema.Required)
	require.Len(t, schema.Properties, 4)
	assert.Equal(t, "STRING", schema.Properties["analysis"].Type)
	assert.Equal(t, "ARRAY", schema.Properties["dietaryTips"].Type)
	assert.Equal(t, "STRING", schema.Properties["exerciseTips"].Items.Type)
	assert.Equal(t, "STRING", schema.Properties["motivationalQuote"].Type)
}

func TestParseAdvice(t *testing.T) {
	got, err := advice.ParseAdvice(`{
		"analysis": "You are in a healthy range.",
		"dietaryTips": ["a", "b", "c"],
		"exerciseTips": ["d", "e", "f"],
		"motivationalQuote": "Keep going."
	}`)
	require.NoError(t, err)

	assert.Equal(t, "You are in a healthy range.", got.Analysis)
	assert.Equal(t, []string{"a", "b", "c"}, got.DietaryTips)
	assert.Equal(t, []string{"d", "e", "f"}, got.ExerciseTips)
	assert.Equal(t, "Keep going.", got.MotivationalQuote)
	assert.Equal(t, advice.SourceRemote, got.Source)
}

func TestParseAdvice_Errors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"empty", "", advice.ErrEmptyResponse},
		{"whitespace", "  \n", advice.ErrEmptyResponse},
		{"not json", "Here is your advice!", advice.ErrMalformedResponse},
		{"truncated", `{"analysis": "x"`, advice.ErrMalformedResponse},
		{"missing quote", `{"analysis":"x","dietaryTips":[],"exerciseTips":[]}`, advice.ErrMissingField},
		{"null tips", `{"analysis":"x","dietaryTips":null,"exerciseTips":[],"motivationalQuote":"q"}`, advice.ErrMissingField},
		{"empty object", `{}`, advice.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := advice.ParseAdvice(tt.text)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseAdvice_MissingFieldNamesField(t *testing.T) {
	_, err := advice.ParseAdvice(`{"analysis":"x","dietaryTips":[],"exerciseTips":[]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "motivationalQuote")
}

func TestFallback(t *testing.T) {
	fb := advice.Fallback()

	assert.Equal(t, "We are unable to generate personalized AI insights at the moment. Please consult a healthcare provider.", fb.Analysis)
	assert.Equal(t, []string{"Eat a balanced diet rich in vegetables.", "Stay hydrated.", "Limit processed sugars."}, fb.DietaryTips)
	assert.Equal(t, []string{"Aim for 30 minutes of walking daily.", "Incorporate strength training.", "Stretch regularly."}, fb.ExerciseTips)
	assert.Equal(t, "Health is a journey, not a destination.", fb.MotivationalQuote)
	assert.True(t, fb.IsFallback())

	// Callers may mutate their copy.
	fb.DietaryTips[0] = "changed"
	assert.Equal(t, "Eat a balanced diet rich in vegetables.", advice.Fallback().DietaryTips[0])
}
