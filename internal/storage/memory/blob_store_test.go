package memory

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	payload := []byte("\x89PNG")
	uri, err := s.PutObject(context.Background(), "screenshots/example.fr/desktop.png", "image/png", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "memory://screenshots/example.fr/desktop.png", uri)

	payload[0] = 'X'
	obj, ok := s.Get("screenshots/example.fr/desktop.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, "\x89PNG", string(obj.Data))
	assert.Equal(t, 1, s.Len())
}

func TestBlobStoreRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewBlobStore().PutObject(context.Background(), " ", "image/png", strings.NewReader("x"))
	require.Error(t, err)
}
