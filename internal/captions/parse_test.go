package captions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

func TestParseJSON(t *testing.T) {
	data := []byte(`[
  {"startMs": 0, "endMs": 900, "timestampMs": 0, "text": "hello", "confidence": 1.0},
  {"startMs": 900, "endMs": 2000, "text": "big world", "words": [
    {"text": "big", "startMs": 900, "endMs": 1300},
    {"text": "world", "startMs": 1300, "endMs": 2000}
  ]}
]`)

	list, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "hello", list[0].Text)
	require.NotNil(t, list[0].Confidence)
	assert.Equal(t, 1.0, *list[0].Confidence)
	assert.False(t, list[0].HasWordTimings())

	assert.True(t, list[1].HasWordTimings())
	assert.Equal(t, "world", list[1].Words[1].Text)
	assert.Equal(t, int64(1100), list[1].DurationMs())
}

func TestParseJSONEmptyArray(t *testing.T) {
	list, err := ParseJSON([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestParseJSONMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"object", `{"startMs": 0}`},
		{"null", `null`},
		{"truncated", `[{"startMs": 0, "endMs": 10`},
		{"wrong type", `[{"startMs": "zero", "endMs": 10, "text": "x"}]`},
		{"reversed range", `[{"startMs": 500, "endMs": 100, "text": "x"}]`},
		{"negative start", `[{"startMs": -5, "endMs": 100, "text": "x"}]`},
		{"reversed word", `[{"startMs": 0, "endMs": 100, "text": "x", "words": [{"text": "x", "startMs": 90, "endMs": 10}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.data))
			assert.ErrorIs(t, err, ErrMalformedCaptions)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedCaptions)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.json")
	list := []models.Caption{
		{StartMs: 0, EndMs: 1000, Text: "one"},
		{StartMs: 1000, EndMs: 2000, Text: "two", Words: []models.Word{{Text: "two", StartMs: 1000, EndMs: 2000}}},
	}

	require.NoError(t, WriteFile(path, list))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, list, loaded)
}

func TestWriteFileNilList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.json")
	require.NoError(t, WriteFile(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
