package cards

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nialike/backend/internal/models"
)

type stubLoader struct {
	img image.Image
	err error
}

func (s stubLoader) Load(context.Context, string) (image.Image, error) { return s.img, s.err }

func testDesign() models.CardDesign {
	return models.CardDesign{
		Name:            "classic",
		BackgroundImage: "https://example.com/bg.png",
		CanvasWidth:     200,
		CanvasHeight:    120,
		TextElements: []models.TextElement{
			{ID: "t1", Type: models.ElementText, Text: "Dear {{guest_name}}", X: 10, Y: 10, FontSize: 14, Color: "#cc0000", FontWeight: "bold", TextAlign: "left", TextDecoration: "underline"},
			{ID: "t2", Type: models.ElementText, Text: "{{event_name}}\n{{event_date}}", X: 10, Y: 50, FontSize: 12, FontFamily: "monospace", FontStyle: "italic", TextAlign: "center"},
			{ID: "qr", Type: models.ElementQRCode, X: 140, Y: 60, Width: 50, Height: 50},
		},
	}
}

func TestRenderDimensions(t *testing.T) {
	r := NewRenderer(nil, nil)
	img, err := r.Render(context.Background(), testDesign(), sampleGuest(), sampleEvent(), nil)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 600, 360), img.Bounds())
}

func TestRenderIsDeterministic(t *testing.T) {
	r := NewRenderer(stubLoader{img: imaging.New(40, 40, color.NRGBA{0, 0, 255, 255})}, nil)
	first, err := r.Render(context.Background(), testDesign(), sampleGuest(), sampleEvent(), nil)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), testDesign(), sampleGuest(), sampleEvent(), nil)
	require.NoError(t, err)

	a, err := EncodePNG(first)
	require.NoError(t, err)
	b, err := EncodePNG(second)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestRenderBackgroundFailureIsBlank(t *testing.T) {
	r := NewRenderer(stubLoader{err: errors.New("404")}, nil)
	img, err := r.Render(context.Background(), testDesign(), sampleGuest(), sampleEvent(), nil)
	require.NoError(t, err)
	assertColor(t, color.NRGBA{255, 255, 255, 255}, img.At(599, 0))
}

func TestRenderBackgroundCovers(t *testing.T) {
	r := NewRenderer(stubLoader{img: imaging.New(10, 30, color.NRGBA{0, 0, 255, 255})}, nil)
	img, err := r.Render(context.Background(), testDesign(), sampleGuest(), sampleEvent(), nil)
	require.NoError(t, err)
	assertColor(t, color.NRGBA{0, 0, 255, 255}, img.At(0, 0))
	assertColor(t, color.NRGBA{0, 0, 255, 255}, img.At(599, 359))
}

func TestRenderQRCodeCorner(t *testing.T) {
	r := NewRenderer(nil, nil)
	img, err := r.Render(context.Background(), testDesign(), sampleGuest(), sampleEvent(), nil)
	require.NoError(t, err)
	// Borderless QR codes start with the dark finder pattern.
	assertColor(t, color.NRGBA{0, 0, 0, 255}, img.At(140*3, 60*3))
	assertColor(t, color.NRGBA{0, 0, 0, 255}, img.At(140*3+149, 60*3))
}

func TestRenderQRDefaultSize(t *testing.T) {
	design := models.CardDesign{
		CanvasWidth:  150,
		CanvasHeight: 150,
		TextElements: []models.TextElement{{ID: "qr", Type: models.ElementQRCode, X: 0, Y: 0}},
	}
	img, err := NewRenderer(nil, nil).Render(context.Background(), design, sampleGuest(), sampleEvent(), nil)
	require.NoError(t, err)
	assertColor(t, color.NRGBA{0, 0, 0, 255}, img.At(299, 0))
	assertColor(t, color.NRGBA{255, 255, 255, 255}, img.At(300, 0))
}

func TestRenderDrawsTextInColor(t *testing.T) {
	r := NewRenderer(nil, nil)
	img, err := r.Render(context.Background(), testDesign(), sampleGuest(), sampleEvent(), nil)
	require.NoError(t, err)

	reddish := 0
	box := image.Rect(30, 30, 600, 120)
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R > 150 && c.G < 100 && c.B < 100 {
				reddish++
			}
		}
	}
	assert.Greater(t, reddish, 50)
}

func TestRenderRejectsEmptyCanvas(t *testing.T) {
	_, err := NewRenderer(nil, nil).Render(context.Background(), models.CardDesign{}, sampleGuest(), sampleEvent(), nil)
	assert.Error(t, err)
}

func TestHTTPBackgroundLoaderDataURI(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(3, 2, color.NRGBA{1, 2, 3, 255})))
	uri := DataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())

	img, err := NewHTTPBackgroundLoader(0).Load(context.Background(), uri)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	_, err = NewHTTPBackgroundLoader(0).Load(context.Background(), "ftp://nope")
	assert.Error(t, err)
}

func assertColor(t *testing.T, want color.NRGBA, got color.Color) {
	t.Helper()
	assert.Equal(t, want, color.NRGBAModel.Convert(got).(color.NRGBA))
}
