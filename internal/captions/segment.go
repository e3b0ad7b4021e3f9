package captions

import (
	"math"

	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

// Window is the frame range during which one caption is on screen
type Window struct {
	Index      int
	Caption    models.Caption
	StartFrame int64
	EndFrame   int64
}

// DurationInFrames returns the number of frames the window covers
func (w Window) DurationInFrames() int64 {
	return w.EndFrame - w.StartFrame
}

// MsToFrame converts a millisecond offset to the nearest frame
func MsToFrame(ms int64, fps float64) int64 {
	return int64(math.Round(float64(ms) / 1000 * fps))
}

// Windows converts an ordered caption list into non-overlapping display windows.
//
// A caption ends at the earlier of its own end and the next caption's start, so two captions
// are never on screen together. Windows that end up with zero or negative length are dropped,
// which hides a caption whose successor starts at or before its own start.
func Windows(captions []models.Caption, fps float64) []Window {
	if fps <= 0 {
		return nil
	}

	windows := make([]Window, 0, len(captions))
	for i, c := range captions {
		endMs := c.EndMs
		if i+1 < len(captions) && captions[i+1].StartMs < endMs {
			endMs = captions[i+1].StartMs
		}

		w := Window{
			Index:      i,
			Caption:    c,
			StartFrame: MsToFrame(c.StartMs, fps),
			EndFrame:   MsToFrame(endMs, fps),
		}
		if w.DurationInFrames() <= 0 {
			continue
		}
		windows = append(windows, w)
	}

	return windows
}

// ActiveWord returns the index of the word being spoken at absolute time tMs.
// Bounds are inclusive on both ends; when word intervals overlap the last match wins.
// It returns -1 when no word is active or the caption has no word timings.
func ActiveWord(words []models.Word, tMs float64) int {
	active := -1
	for i, w := range words {
		if tMs >= float64(w.StartMs) && tMs <= float64(w.EndMs) {
			active = i
		}
	}
	return active
}

// ActiveWordAtFrame resolves the highlighted word for a frame counted from the window start
func ActiveWordAtFrame(w Window, frame int64, fps float64) int {
	if fps <= 0 || !w.Caption.HasWordTimings() {
		return -1
	}
	t := float64(w.Caption.StartMs) + float64(frame)/fps*1000
	return ActiveWord(w.Caption.Words, t)
}

// WindowAt returns the window visible at an absolute frame, if any
func WindowAt(windows []Window, frame int64) (Window, bool) {
	for _, w := range windows {
		if frame >= w.StartFrame && frame < w.EndFrame {
			return w, true
		}
	}
	return Window{}, false
}
