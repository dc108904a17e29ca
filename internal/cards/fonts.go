package cards

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type fontKey struct {
	mono   bool
	bold   bool
	italic bool
}

var fontData = map[fontKey][]byte{
	{false, false, false}: goregular.TTF,
	{false, true, false}:  gobold.TTF,
	{false, false, true}:  goitalic.TTF,
	{false, true, true}:   gobolditalic.TTF,
	{true, false, false}:  gomono.TTF,
	{true, true, false}:   gomonobold.TTF,
	{true, false, true}:   gomonoitalic.TTF,
	{true, true, true}:    gomonobolditalic.TTF,
}

// fontSet holds parsed fonts, shared across renders. Faces are not safe for concurrent
// use, so each render opens its own through a faceSet.
type fontSet struct {
	mu    sync.Mutex
	fonts map[fontKey]*opentype.Font
}

func newFontSet() *fontSet {
	return &fontSet{fonts: make(map[fontKey]*opentype.Font)}
}

func (s *fontSet) font(k fontKey) (*opentype.Font, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.fonts[k]; ok {
		return f, nil
	}
	f, err := opentype.Parse(fontData[k])
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	s.fonts[k] = f
	return f, nil
}

type faceKey struct {
	fontKey
	size float64
}

// faceSet caches faces for the duration of one render.
type faceSet struct {
	fonts *fontSet
	faces map[faceKey]font.Face
}

func (s *fontSet) faces() *faceSet {
	return &faceSet{fonts: s, faces: make(map[faceKey]font.Face)}
}

func (fs *faceSet) face(k fontKey, size float64) (font.Face, error) {
	key := faceKey{fontKey: k, size: size}
	if f, ok := fs.faces[key]; ok {
		return f, nil
	}
	f, err := fs.fonts.font(k)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	fs.faces[key] = face
	return face, nil
}

func (fs *faceSet) Close() {
	for _, f := range fs.faces {
		_ = f.Close()
	}
}

// fontKeyFor maps CSS-like family, weight and style onto the bundled Go fonts.
func fontKeyFor(family, weight, style string) fontKey {
	family = strings.ToLower(family)
	mono := strings.Contains(family, "mono") || strings.Contains(family, "courier") || strings.Contains(family, "consolas")
	return fontKey{mono: mono, bold: isBold(weight), italic: isItalic(style)}
}

func isBold(weight string) bool {
	w := strings.ToLower(strings.TrimSpace(weight))
	switch w {
	case "bold", "bolder":
		return true
	}
	if n, err := strconv.Atoi(w); err == nil {
		return n >= 600
	}
	return false
}

func isItalic(style string) bool {
	s := strings.ToLower(strings.TrimSpace(style))
	return s == "italic" || s == "oblique"
}
