package cards

import (
	"context"

	"github.com/nialike/backend/internal/models"
)

// Generator renders a design for one guest and publishes the result.
type Generator struct {
	renderer  *Renderer
	publisher *Publisher
}

// NewGenerator joins a renderer and a publisher.
func NewGenerator(renderer *Renderer, publisher *Publisher) *Generator {
	return &Generator{renderer: renderer, publisher: publisher}
}

// Generate renders design for guest and returns where the image can be found.
func (g *Generator) Generate(ctx context.Context, design models.CardDesign, guest models.Guest, event models.Event, attrs []models.EventAttribute) (Published, error) {
	img, err := g.renderer.Render(ctx, design, guest, event, attrs)
	if err != nil {
		return Published{}, err
	}
	return g.publisher.Publish(ctx, img, event.ID.String(), guest.ID.String())
}

// Preview renders design for guest as PNG bytes without publishing.
func (g *Generator) Preview(ctx context.Context, design models.CardDesign, guest models.Guest, event models.Event, attrs []models.EventAttribute) ([]byte, error) {
	img, err := g.renderer.Render(ctx, design, guest, event, attrs)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}
