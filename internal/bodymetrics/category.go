package bodymetrics

// Category is one BMI band. LowerBound is inclusive; the band ends where
// the next one starts.
type Category struct {
	LowerBound float64 `json:"lowerBound"`
	Label      string  `json:"label"`
	Color      string  `json:"color"`
	RangeLabel string  `json:"range"`
}

// Category labels.
const (
	LabelUnderweight = "Underweight"
	LabelNormal      = "Normal Weight"
	LabelOverweight  = "Overweight"
	LabelObesity     = "Obesity"
)

// categories is ordered by ascending LowerBound.
var categories = []Category{
	{LowerBound: 0, Label: LabelUnderweight, Color: "#3b82f6", RangeLabel: "< 18.5"},
	{LowerBound: 18.5, Label: LabelNormal, Color: "#22c55e", RangeLabel: "18.5 - 24.9"},
	{LowerBound: 25, Label: LabelOverweight, Color: "#eab308", RangeLabel: "25 - 29.9"},
	{LowerBound: 30, Label: LabelObesity, Color: "#ef4444", RangeLabel: "≥ 30"},
}

// Categories returns the BMI legend in ascending order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Classify returns the category whose half-open interval contains bmi.
func Classify(bmi float64) Category {
	match := categories[0]
	for _, c := range categories[1:] {
		if bmi < c.LowerBound {
			break
		}
		match = c
	}
	return match
}
