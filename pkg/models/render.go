package models

// RenderOptions is the render configuration captured when a job is submitted.
// Nil fields fall back to their documented defaults when render props are built.
type RenderOptions struct {
	Mode              string   `json:"mode,omitempty"`
	FontSize          *int     `json:"fontSize,omitempty"`
	FontColor         *string  `json:"fontColor,omitempty"`
	HighlightColor    *string  `json:"highlightColor,omitempty"`
	OutlineColor      *string  `json:"outlineColor,omitempty"`
	OutlineSize       *int     `json:"outlineSize,omitempty"`
	SubtitleY         *int     `json:"subtitleY,omitempty"`
	OriginalVolume    *float64 `json:"originalVolume,omitempty"`
	SubtitleBgEnabled *bool    `json:"subtitleBgEnabled,omitempty"`
	SubtitleBgColor   *string  `json:"subtitleBgColor,omitempty"`
	SubtitleBgRadius  *int     `json:"subtitleBgRadius,omitempty"`
	SubtitleBgPadX    *int     `json:"subtitleBgPadX,omitempty"`
	SubtitleBgPadY    *int     `json:"subtitleBgPadY,omitempty"`
	SubtitleBgOpacity *float64 `json:"subtitleBgOpacity,omitempty"`
	WatermarkPath     string   `json:"watermarkPath,omitempty"`
	WatermarkOpacity  *float64 `json:"watermarkOpacity,omitempty"`
	WatermarkSize     *float64 `json:"watermarkSize,omitempty"`
	WatermarkX        *float64 `json:"watermarkX,omitempty"`
	WatermarkY        *float64 `json:"watermarkY,omitempty"`
}

// RenderProps is the document handed to the renderer. It is written once per job.
type RenderProps struct {
	Src               string    `json:"src"`
	Subtitles         []Caption `json:"subtitles"`
	FontSize          int       `json:"fontSize"`
	FontColor         string    `json:"fontColor"`
	HighlightColor    string    `json:"highlightColor"`
	OutlineColor      string    `json:"outlineColor"`
	OutlineSize       int       `json:"outlineSize"`
	SubtitleY         int       `json:"subtitleY"`
	OriginalVolume    float64   `json:"originalVolume"`
	SubtitleBgEnabled bool      `json:"subtitleBgEnabled"`
	SubtitleBgColor   string    `json:"subtitleBgColor"`
	SubtitleBgRadius  int       `json:"subtitleBgRadius"`
	SubtitleBgPadX    int       `json:"subtitleBgPadX"`
	SubtitleBgPadY    int       `json:"subtitleBgPadY"`
	SubtitleBgOpacity float64   `json:"subtitleBgOpacity"`
	WatermarkURL      *string   `json:"watermarkUrl"`
	WatermarkOpacity  float64   `json:"watermarkOpacity"`
	WatermarkSize     float64   `json:"watermarkSize"`
	WatermarkX        float64   `json:"watermarkX"`
	WatermarkY        float64   `json:"watermarkY"`
}
