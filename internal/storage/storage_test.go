package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetContentType(t *testing.T) {
	tests := map[string]string{
		"/out/abc.mp4":         "video/mp4",
		"clip.mov":             "video/quicktime",
		"public/abc.json":      "application/json",
		"uploads/logo.png":     "image/png",
		"uploads/logo.jpeg":    "image/jpeg",
		"captions.srt":         "application/x-subrip",
		"something.unknownext": "application/octet-stream",
	}

	for path, want := range tests {
		assert.Equal(t, want, getContentType(path), path)
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "jobs/abc/abc.mp4", ObjectKey("abc", "/srv/out/abc.mp4"))
	assert.Equal(t, "jobs/abc/abc.props.json", ObjectKey("abc", "server/uploads/abc.props.json"))
}
