package props

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

func TestBuildAppliesDefaults(t *testing.T) {
	p := Build(models.RenderOptions{}, nil, MediaURLs{Video: "http://localhost:8000/uploads/abc.mp4"})

	assert.Equal(t, "http://localhost:8000/uploads/abc.mp4", p.Src)
	assert.NotNil(t, p.Subtitles)
	assert.Empty(t, p.Subtitles)
	assert.Equal(t, 60, p.FontSize)
	assert.Equal(t, "#FFFFFF", p.FontColor)
	assert.Equal(t, "#FFE600", p.HighlightColor)
	assert.Equal(t, "#000000", p.OutlineColor)
	assert.Equal(t, 5, p.OutlineSize)
	assert.Equal(t, 80, p.SubtitleY)
	assert.Equal(t, 1.0, p.OriginalVolume)
	assert.False(t, p.SubtitleBgEnabled)
	assert.Equal(t, "#7B8793", p.SubtitleBgColor)
	assert.Equal(t, 25, p.SubtitleBgRadius)
	assert.Equal(t, 10, p.SubtitleBgPadX)
	assert.Equal(t, 5, p.SubtitleBgPadY)
	assert.Equal(t, 0.4, p.SubtitleBgOpacity)
	assert.Nil(t, p.WatermarkURL)
	assert.Equal(t, 0.8, p.WatermarkOpacity)
	assert.Equal(t, 20.0, p.WatermarkSize)
	assert.Equal(t, 10.0, p.WatermarkX)
	assert.Equal(t, 10.0, p.WatermarkY)
}

func TestBuildUsesProvidedOptions(t *testing.T) {
	fontSize, outline, y := 72, 0, 50
	volume, opacity := 0.0, 0.9
	enabled := true
	color := "#FF0000"

	opts := models.RenderOptions{
		Mode:              models.CaptionModeSentence,
		FontSize:          &fontSize,
		FontColor:         &color,
		OutlineSize:       &outline,
		SubtitleY:         &y,
		OriginalVolume:    &volume,
		SubtitleBgEnabled: &enabled,
		WatermarkOpacity:  &opacity,
	}
	captions := []models.Caption{{StartMs: 0, EndMs: 1000, Text: "hello"}}

	p := Build(opts, captions, MediaURLs{
		Video:     "http://localhost:8000/uploads/abc.mp4",
		Watermark: "http://localhost:8000/uploads/abc-watermark.png",
	})

	assert.Equal(t, 72, p.FontSize)
	assert.Equal(t, "#FF0000", p.FontColor)
	assert.Equal(t, 0, p.OutlineSize)
	assert.Equal(t, 50, p.SubtitleY)
	assert.Equal(t, 0.0, p.OriginalVolume)
	assert.True(t, p.SubtitleBgEnabled)
	assert.Equal(t, 0.9, p.WatermarkOpacity)
	require.NotNil(t, p.WatermarkURL)
	assert.Equal(t, "http://localhost:8000/uploads/abc-watermark.png", *p.WatermarkURL)
	assert.Equal(t, captions, p.Subtitles)
}

func TestBuildEmptyColorFallsBack(t *testing.T) {
	empty := ""
	p := Build(models.RenderOptions{HighlightColor: &empty}, nil, MediaURLs{})
	assert.Equal(t, DefaultHighlightColor, p.HighlightColor)
}

func TestMode(t *testing.T) {
	assert.Equal(t, "word", Mode(models.RenderOptions{}))
	assert.Equal(t, "sentence", Mode(models.RenderOptions{Mode: "sentence"}))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.props.json")
	p := Build(models.RenderOptions{}, []models.Caption{{StartMs: 0, EndMs: 500, Text: "hi"}}, MediaURLs{Video: "http://x/v.mp4"})

	require.NoError(t, WriteFile(path, p))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "http://x/v.mp4", raw["src"])
	assert.Contains(t, raw, "watermarkUrl")
	assert.Nil(t, raw["watermarkUrl"])
	assert.Len(t, raw["subtitles"], 1)
}

func TestWriteFileBadPath(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "p.json"), models.RenderProps{})
	assert.Error(t, err)
}
