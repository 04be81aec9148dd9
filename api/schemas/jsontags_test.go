package schemas_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/flux-cli/api/schemas"
)

// TestStructJSONTags uses reflection to verify that the `json` tags on struct fields
// are correct. The critique tags are the wire names the model is asked for.
func TestStructJSONTags(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name         string
		structRef    interface{}
		expectedTags map[string]string
	}{
		{
			name:      "Critique",
			structRef: schemas.Critique{},
			expectedTags: map[string]string{
				"Title":       "title",
				"Description": "description",
				"Mood":        "mood",
			},
		},
		{
			name:      "CritiqueRecord",
			structRef: schemas.CritiqueRecord{},
			expectedTags: map[string]string{
				"ID":         "id",
				"SnapshotID": "snapshot_id",
				"Source":     "source",
				"Model":      "model",
				"Fallback":   "fallback",
				"Critique":   "critique",
				"CreatedAt":  "created_at",
			},
		},
		{
			name:      "Attachment",
			structRef: schemas.Attachment{},
			expectedTags: map[string]string{
				"MIMEType": "mime_type",
				"Data":     "-",
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			typ := reflect.TypeOf(tc.structRef)
			for field, want := range tc.expectedTags {
				f, ok := typ.FieldByName(field)
				require.True(t, ok, "field %s missing", field)
				assert.Equal(t, want, f.Tag.Get("json"), "field %s", field)
			}
		})
	}
}

func TestFallbackCritique(t *testing.T) {
	fb := schemas.FallbackCritique()
	assert.Equal(t, "STATIC_VOID", fb.Title)
	assert.Equal(t, "Signal lost. The data stream is silent.", fb.Description)
	assert.Equal(t, "Null. Void. Empty.", fb.Mood)
	assert.True(t, fb.IsFallback())

	fb.Mood = "Loud."
	assert.False(t, fb.IsFallback())
}

func TestCritiqueFields_MatchJSONTags(t *testing.T) {
	raw, err := json.Marshal(schemas.Critique{})
	require.NoError(t, err)
	var keys map[string]string
	require.NoError(t, json.Unmarshal(raw, &keys))

	fields := schemas.CritiqueFields()
	require.Len(t, fields, len(keys))
	for _, f := range fields {
		assert.Contains(t, keys, f.Name)
		assert.NotEmpty(t, f.Description)
	}
}

func TestAttachment_DataNotSerialized(t *testing.T) {
	req := schemas.GenerationRequest{
		UserPrompt:  "hi",
		Attachments: []schemas.Attachment{{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"mime_type":"image/png"`)
	assert.NotContains(t, string(raw), "AQID")
}
