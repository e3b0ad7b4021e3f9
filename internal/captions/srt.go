package captions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

var blockSeparator = regexp.MustCompile(`\n\s*\n`)

// ParseSRT converts SRT text into captions. Blocks with fewer than three lines or an
// unreadable time line are skipped.
func ParseSRT(content string) []models.Caption {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return []models.Caption{}
	}

	list := make([]models.Caption, 0)
	for _, block := range blockSeparator.Split(content, -1) {
		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			continue
		}

		parts := strings.Split(lines[1], "-->")
		if len(parts) != 2 {
			continue
		}
		startMs, err := parseSRTTimestamp(parts[0])
		if err != nil {
			continue
		}
		endMs, err := parseSRTTimestamp(parts[1])
		if err != nil {
			continue
		}

		ts := startMs
		confidence := 1.0
		list = append(list, models.Caption{
			StartMs:     startMs,
			EndMs:       endMs,
			TimestampMs: &ts,
			Text:        strings.TrimSpace(strings.Join(lines[2:], "\n")),
			Confidence:  &confidence,
		})
	}

	return list
}

// FormatSRT renders captions as SRT text
func FormatSRT(list []models.Caption) string {
	var b strings.Builder
	for i, c := range list {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, formatSRTTimestamp(c.StartMs), formatSRTTimestamp(c.EndMs), c.Text)
	}
	return b.String()
}

func parseSRTTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return int64(hours)*3600000 + int64(minutes)*60000 + int64(seconds)*1000 + int64(millis), nil
}

func formatSRTTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	m := ms % 3600000 / 60000
	s := ms % 60000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
