package advice

// Fallback returns the fixed advice used whenever remote generation fails.
// Each call returns a fresh value.
func Fallback() *Advice {
	return &Advice{
		Analysis: "We are unable to generate personalized AI insights at the moment. Please consult a healthcare provider.",
		DietaryTips: []string{
			"Eat a balanced diet rich in vegetables.",
			"Stay hydrated.",
			"Limit processed sugars.",
		},
		ExerciseTips: []string{
			"Aim for 30 minutes of walking daily.",
			"Incorporate strength training.",
			"Stretch regularly.",
		},
		MotivationalQuote: "Health is a journey, not a destination.",
		Source:            SourceFallback,
	}
}
