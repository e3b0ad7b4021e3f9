package captions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

// ErrMalformedCaptions is returned when caption data does not match the caption schema
var ErrMalformedCaptions = errors.New("malformed captions")

// ParseJSON decodes and validates a caption JSON array
func ParseJSON(data []byte) ([]models.Caption, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedCaptions)
	}

	var list []models.Caption
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCaptions, err)
	}

	if err := Validate(list); err != nil {
		return nil, err
	}

	return list, nil
}

// LoadFile reads and parses a caption JSON file
func LoadFile(path string) ([]models.Caption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read captions: %w", err)
	}
	return ParseJSON(data)
}

// WriteFile writes captions as an indented JSON array
func WriteFile(path string, list []models.Caption) error {
	if list == nil {
		list = []models.Caption{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal captions: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write captions: %w", err)
	}
	return nil
}

// Validate checks caption and word time ranges
func Validate(list []models.Caption) error {
	for i, c := range list {
		if c.StartMs < 0 || c.EndMs < c.StartMs {
			return fmt.Errorf("%w: caption %d has invalid range [%d, %d]", ErrMalformedCaptions, i, c.StartMs, c.EndMs)
		}
		for j, w := range c.Words {
			if w.StartMs < 0 || w.EndMs < w.StartMs {
				return fmt.Errorf("%w: caption %d word %d has invalid range [%d, %d]",
					ErrMalformedCaptions, i, j, w.StartMs, w.EndMs)
			}
		}
	}
	return nil
}
