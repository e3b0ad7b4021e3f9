package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

// parseRenderOptions reads the recognized render options from the multipart form.
// Absent or empty fields stay nil so the props builder applies its defaults.
func parseRenderOptions(c *gin.Context) (models.RenderOptions, error) {
	var opts models.RenderOptions
	var err error

	if mode := strings.TrimSpace(c.PostForm("mode")); mode != "" {
		if !models.IsValidCaptionMode(mode) {
			return opts, fmt.Errorf("%w: mode must be %q or %q", models.ErrUploadRejected,
				models.CaptionModeWord, models.CaptionModeSentence)
		}
		opts.Mode = mode
	}

	ints := map[string]**int{
		"fontSize":         &opts.FontSize,
		"outlineSize":      &opts.OutlineSize,
		"subtitleY":        &opts.SubtitleY,
		"subtitleBgRadius": &opts.SubtitleBgRadius,
		"subtitleBgPadX":   &opts.SubtitleBgPadX,
		"subtitleBgPadY":   &opts.SubtitleBgPadY,
	}
	for field, dst := range ints {
		if *dst, err = formInt(c, field); err != nil {
			return opts, err
		}
	}

	floats := map[string]**float64{
		"originalVolume":    &opts.OriginalVolume,
		"subtitleBgOpacity": &opts.SubtitleBgOpacity,
		"watermarkOpacity":  &opts.WatermarkOpacity,
		"watermarkSize":     &opts.WatermarkSize,
		"watermarkX":        &opts.WatermarkX,
		"watermarkY":        &opts.WatermarkY,
	}
	for field, dst := range floats {
		if *dst, err = formFloat(c, field); err != nil {
			return opts, err
		}
	}

	strs := map[string]**string{
		"fontColor":       &opts.FontColor,
		"highlightColor":  &opts.HighlightColor,
		"outlineColor":    &opts.OutlineColor,
		"subtitleBgColor": &opts.SubtitleBgColor,
	}
	for field, dst := range strs {
		*dst = formString(c, field)
	}

	if opts.SubtitleBgEnabled, err = formBool(c, "subtitleBgEnabled"); err != nil {
		return opts, err
	}

	return opts, nil
}

func formString(c *gin.Context, field string) *string {
	v := strings.TrimSpace(c.PostForm(field))
	if v == "" {
		return nil
	}
	return &v
}

func formInt(c *gin.Context, field string) (*int, error) {
	raw := formString(c, field)
	if raw == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(*raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", models.ErrUploadRejected, field)
	}
	return &n, nil
}

func formFloat(c *gin.Context, field string) (*float64, error) {
	raw := formString(c, field)
	if raw == nil {
		return nil, nil
	}
	f, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", models.ErrUploadRejected, field)
	}
	return &f, nil
}

func formBool(c *gin.Context, field string) (*bool, error) {
	raw := formString(c, field)
	if raw == nil {
		return nil, nil
	}
	b, err := strconv.ParseBool(*raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", models.ErrUploadRejected, field)
	}
	return &b, nil
}
