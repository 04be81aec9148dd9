package schemas

// Critique is the structured commentary produced for a rendered frame.
type Critique struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Mood        string `json:"mood"`
}

// FallbackCritique is returned whenever the critic cannot produce a reply.
func FallbackCritique() Critique {
	return Critique{
		Title:       "STATIC_VOID",
		Description: "Signal lost. The data stream is silent.",
		Mood:        "Null. Void. Empty.",
	}
}

// IsFallback reports whether c is the fallback critique.
func (c Critique) IsFallback() bool {
	return c == FallbackCritique()
}

// CritiqueFields describes the reply schema requested from the model.
func CritiqueFields() []SchemaField {
	return []SchemaField{
		{Name: "title", Description: "A cryptic, single-word or two-word title."},
		{Name: "description", Description: "A poetic, abstract paragraph describing the form and flow."},
		{Name: "mood", Description: "Three adjectives separated by dots."},
	}
}
