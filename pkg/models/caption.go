package models

// Caption is one transcribed segment. Offsets are absolute milliseconds into the source video.
type Caption struct {
	StartMs     int64    `json:"startMs"`
	EndMs       int64    `json:"endMs"`
	Text        string   `json:"text"`
	TimestampMs *int64   `json:"timestampMs,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Words       []Word   `json:"words,omitempty"`
}

// Word carries per-word timing used for karaoke highlighting
type Word struct {
	Text    string `json:"text"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
}

// HasWordTimings reports whether the caption can be highlighted word by word
func (c Caption) HasWordTimings() bool {
	return len(c.Words) > 0
}

// DurationMs returns the nominal length of the caption
func (c Caption) DurationMs() int64 {
	return c.EndMs - c.StartMs
}

// Caption modes accepted by the transcription tool
const (
	CaptionModeWord     = "word"
	CaptionModeSentence = "sentence"
)

// IsValidCaptionMode reports whether mode is a known caption mode
func IsValidCaptionMode(mode string) bool {
	return mode == CaptionModeWord || mode == CaptionModeSentence
}
