package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/backend/internal/config"
)

func TestLocationRoundTrip(t *testing.T) {
	tests := []struct {
		base string
		key  string
		want string
	}{
		{"https://cdn.example.com/media", "videos/a.mp4", "https://cdn.example.com/media/videos/a.mp4"},
		{"", "images/b.png", "images/b.png"},
	}

	for _, tt := range tests {
		location := locationFor(tt.base, tt.key)
		assert.Equal(t, tt.want, location)
		assert.Equal(t, tt.key, keyFor(tt.base, location))
	}
}

func TestKeyForForeignLocationKeepsPath(t *testing.T) {
	assert.Equal(t, "videos/a.mp4", keyFor("", "/videos/a.mp4"))
	assert.Equal(t, "", keyFor("https://cdn.example.com", "https://cdn.example.com/"))
}

func TestNewS3StorageRequiresBucket(t *testing.T) {
	_, err := NewS3Storage(context.Background(), config.ObjectStoreConfig{Region: "us-east-1"})
	require.Error(t, err)
}
