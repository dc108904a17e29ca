package cards

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Upload(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memStore) PublicURL(key string) string { return "https://cdn.example.com/" + key }

func fixedPublisher(store ObjectStore) *Publisher {
	p := NewPublisher(store, nil)
	p.now = func() time.Time { return time.UnixMilli(1717200000123) }
	return p
}

func TestPublishStored(t *testing.T) {
	store := newMemStore()
	img := imaging.New(4, 4, color.White)

	got, err := fixedPublisher(store).Publish(context.Background(), img, "evt-1", "g-42")
	require.NoError(t, err)

	assert.Equal(t, KindStored, got.Kind)
	assert.Equal(t, "cards/evt-1/g-42_1717200000123.png", got.Key)
	assert.Equal(t, "https://cdn.example.com/cards/evt-1/g-42_1717200000123.png", got.Source)
	assert.Equal(t, "image/png", store.types[got.Key])

	decoded, err := png.Decode(bytes.NewReader(store.objects[got.Key]))
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Bounds().Dx())
}

func TestPublishFallsBackToDataURI(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("quota exceeded")
	img := imaging.New(2, 3, color.Black)

	got, err := fixedPublisher(store).Publish(context.Background(), img, "evt-1", "g-42")
	require.NoError(t, err)

	assert.Equal(t, KindInlined, got.Kind)
	assert.NotEmpty(t, got.Source)
	require.True(t, strings.HasPrefix(got.Source, DataURIPrefix))
	assert.True(t, IsDataURI(got.Source))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got.Source, DataURIPrefix))
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 3, decoded.Bounds().Dy())
}

func TestPublishWithoutStoreInlines(t *testing.T) {
	got, err := NewPublisher(nil, nil).Publish(context.Background(), imaging.New(1, 1, color.White), "e", "g")
	require.NoError(t, err)
	assert.Equal(t, KindInlined, got.Kind)
	assert.Equal(t, "inlined", got.Kind.String())
}
