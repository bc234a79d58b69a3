package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePosterFileType(t *testing.T) {
	tests := []struct {
		contentType string
		filename    string
		want        bool
	}{
		{"image/png", "poster.png", true},
		{"IMAGE/JPEG", "poster", true},
		{"", "poster.WEBP", true},
		{"application/pdf", "poster.pdf", false},
		{"video/mp4", "clip.mp4", false},
		{"", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidatePosterFileType(tt.contentType, tt.filename), "%s %s", tt.contentType, tt.filename)
	}
}

func TestPosterKey(t *testing.T) {
	key := PosterKey("My Poster.PNG")
	assert.True(t, strings.HasPrefix(key, FolderPosters+"/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, PosterKey("My Poster.PNG"))
}

func TestContentTypeForFilename(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeForFilename("a.jpeg"))
	assert.Equal(t, "application/octet-stream", ContentTypeForFilename("a.txt"))
}
