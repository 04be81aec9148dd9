package schemas

import (
	"context"
	"time"
)

// -- LLM Client Schemas & Interface --

// ModelTier allows for selecting a large language model based on a preference
// for speed versus advanced capabilities.
type ModelTier string

const (
	TierFast     ModelTier = "fast"     // Prefers a faster, potentially less capable model.
	TierPowerful ModelTier = "powerful" // Prefers a more capable, potentially slower model.
)

// SchemaField is one string property of a structured reply.
type SchemaField struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// GenerationOptions provides detailed parameters to control the text generation
// process of the LLM, such as creativity (temperature) and output format.
type GenerationOptions struct {
	Temperature     *float32 `json:"temperature,omitempty"` // Controls randomness. Nil keeps the model default.
	ForceJSONFormat bool     `json:"force_json_format"`     // If true, forces the model to output valid JSON.
	// ResponseFields, when set, constrains the reply to a JSON object with
	// exactly these required string properties. Implies ForceJSONFormat.
	ResponseFields []SchemaField `json:"response_fields,omitempty"`
}

// Attachment is inline binary input sent alongside the prompt.
type Attachment struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// GenerationRequest encapsulates a complete request to the LLM, including the
// system and user prompts, any inline media, the desired model tier, and
// generation options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`         // Instructions for the model's persona and task.
	UserPrompt   string            `json:"user_prompt"`           // The specific query or input from the user.
	Attachments  []Attachment      `json:"attachments,omitempty"` // Inline media, in order, before the prompt text.
	Tier         ModelTier         `json:"tier"`                  // The desired model tier (fast or powerful).
	Options      GenerationOptions `json:"options"`               // Advanced generation parameters.
}

// LLMClient defines a standard interface for interacting with a Large Language
// Model, abstracting the specifics of the underlying provider (e.g., Gemini).
type LLMClient interface {
	// Generate produces a text completion based on the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close cleans up any resources held by the client.
	Close() error
}

// -- Critique Store Interface --

// CritiqueStore persists critiques of rendered frames. An implementation is
// optional; callers treat a nil store as "archive disabled".
type CritiqueStore interface {
	// SaveCritique writes one critique record.
	SaveCritique(ctx context.Context, rec CritiqueRecord) error
	// RecentCritiques returns up to limit records, newest first.
	RecentCritiques(ctx context.Context, limit int) ([]CritiqueRecord, error)
}

// CritiqueRecord is an archived critique together with the frame it describes.
type CritiqueRecord struct {
	ID         string    `json:"id"`
	SnapshotID string    `json:"snapshot_id"`
	Source     string    `json:"source"`
	Model      string    `json:"model"`
	Fallback   bool      `json:"fallback"`
	Critique   Critique  `json:"critique"`
	CreatedAt  time.Time `json:"created_at"`
}
