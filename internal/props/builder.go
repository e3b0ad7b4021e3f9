package props

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

// Defaults applied when a job's render options omit a field
const (
	DefaultMode              = models.CaptionModeWord
	DefaultFontSize          = 60
	DefaultFontColor         = "#FFFFFF"
	DefaultHighlightColor    = "#FFE600"
	DefaultOutlineColor      = "#000000"
	DefaultOutlineSize       = 5
	DefaultSubtitleY         = 80
	DefaultOriginalVolume    = 1.0
	DefaultSubtitleBgEnabled = false
	DefaultSubtitleBgColor   = "#7B8793"
	DefaultSubtitleBgRadius  = 25
	DefaultSubtitleBgPadX    = 10
	DefaultSubtitleBgPadY    = 5
	DefaultSubtitleBgOpacity = 0.4
	DefaultWatermarkOpacity  = 0.8
	DefaultWatermarkSize     = 20.0
	DefaultWatermarkX        = 10.0
	DefaultWatermarkY        = 10.0
)

// MediaURLs are the absolute URLs the renderer fetches media from
type MediaURLs struct {
	Video     string
	Watermark string // empty when the job has no watermark
}

// Mode returns the caption mode of opts, falling back to the default
func Mode(opts models.RenderOptions) string {
	if opts.Mode == "" {
		return DefaultMode
	}
	return opts.Mode
}

// Build assembles render props from a job's options, its captions and media URLs
func Build(opts models.RenderOptions, captions []models.Caption, urls MediaURLs) models.RenderProps {
	if captions == nil {
		captions = []models.Caption{}
	}

	p := models.RenderProps{
		Src:               urls.Video,
		Subtitles:         captions,
		FontSize:          intOr(opts.FontSize, DefaultFontSize),
		FontColor:         stringOr(opts.FontColor, DefaultFontColor),
		HighlightColor:    stringOr(opts.HighlightColor, DefaultHighlightColor),
		OutlineColor:      stringOr(opts.OutlineColor, DefaultOutlineColor),
		OutlineSize:       intOr(opts.OutlineSize, DefaultOutlineSize),
		SubtitleY:         intOr(opts.SubtitleY, DefaultSubtitleY),
		OriginalVolume:    floatOr(opts.OriginalVolume, DefaultOriginalVolume),
		SubtitleBgEnabled: boolOr(opts.SubtitleBgEnabled, DefaultSubtitleBgEnabled),
		SubtitleBgColor:   stringOr(opts.SubtitleBgColor, DefaultSubtitleBgColor),
		SubtitleBgRadius:  intOr(opts.SubtitleBgRadius, DefaultSubtitleBgRadius),
		SubtitleBgPadX:    intOr(opts.SubtitleBgPadX, DefaultSubtitleBgPadX),
		SubtitleBgPadY:    intOr(opts.SubtitleBgPadY, DefaultSubtitleBgPadY),
		SubtitleBgOpacity: floatOr(opts.SubtitleBgOpacity, DefaultSubtitleBgOpacity),
		WatermarkOpacity:  floatOr(opts.WatermarkOpacity, DefaultWatermarkOpacity),
		WatermarkSize:     floatOr(opts.WatermarkSize, DefaultWatermarkSize),
		WatermarkX:        floatOr(opts.WatermarkX, DefaultWatermarkX),
		WatermarkY:        floatOr(opts.WatermarkY, DefaultWatermarkY),
	}

	if urls.Watermark != "" {
		wm := urls.Watermark
		p.WatermarkURL = &wm
	}

	return p
}

// WriteFile serializes props to path for the renderer
func WriteFile(path string, p models.RenderProps) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal render props: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write render props: %w", err)
	}
	return nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
