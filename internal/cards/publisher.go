package cards

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/nialike/backend/pkg/storage"
)

// ObjectStore is the durable storage a published card goes to.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error
	PublicURL(key string) string
}

// SourceKind tells how a published card can be reached.
type SourceKind int

const (
	// KindStored means Source is a public object URL.
	KindStored SourceKind = iota
	// KindInlined means storage failed and Source is a data URI.
	KindInlined
)

func (k SourceKind) String() string {
	if k == KindInlined {
		return "inlined"
	}
	return "stored"
}

// Published is an image source for a card: either a stored object URL or an inline data URI.
type Published struct {
	Kind   SourceKind
	Source string
	Key    string
}

// Publisher uploads rendered cards, degrading to inline data URIs when storage is unavailable.
type Publisher struct {
	store  ObjectStore
	now    func() time.Time
	logger *zap.Logger
}

// NewPublisher returns a publisher. store may be nil, in which case every card is inlined.
func NewPublisher(store ObjectStore, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{store: store, now: time.Now, logger: logger}
}

// Publish encodes img as PNG and stores it under cards/{event}/{guest}_{millis}.png.
// Only encoding errors are returned; storage errors yield a KindInlined result.
func (p *Publisher) Publish(ctx context.Context, img image.Image, eventID, guestID string) (Published, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return Published{}, err
	}
	return p.PublishPNG(ctx, data, eventID, guestID), nil
}

// PublishPNG stores already-encoded PNG bytes.
func (p *Publisher) PublishPNG(ctx context.Context, data []byte, eventID, guestID string) Published {
	if p.store == nil {
		return inline(data)
	}
	key := storage.CardKey(eventID, guestID, p.now().UnixMilli())
	if err := p.store.Upload(ctx, key, "image/png", bytes.NewReader(data), int64(len(data))); err != nil {
		p.logger.Warn("card upload failed, falling back to inline image",
			zap.String("event_id", eventID), zap.String("guest_id", guestID), zap.String("key", key), zap.Error(err))
		return inline(data)
	}
	return Published{Kind: KindStored, Source: p.store.PublicURL(key), Key: key}
}

func inline(data []byte) Published {
	return Published{Kind: KindInlined, Source: DataURIPrefix + base64.StdEncoding.EncodeToString(data)}
}
