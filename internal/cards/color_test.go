package cards

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#000000":                 {0, 0, 0, 255},
		"#fff":                    {255, 255, 255, 255},
		"#FF8800":                 {255, 136, 0, 255},
		"#11223380":               {0x11, 0x22, 0x33, 0x80},
		"gold":                    {255, 215, 0, 255},
		" Red ":                   {255, 0, 0, 255},
		"rgb(10, 20, 30)":         {10, 20, 30, 255},
		"rgba(10,20,30,0.5)":      {10, 20, 30, 128},
		"rgb(300, -5, 0)":         {255, 0, 0, 255},
		"darkgreen":               {0, 100, 0, 255},
		"WhiteSmoke":              {245, 245, 245, 255},
		"rebeccapurple":           {0x66, 0x33, 0x99, 255},
		"hsl(120, 100%, 25%)":     {0, 128, 0, 255},
		"hsla(0, 100%, 50%, 0.5)": {255, 0, 0, 128},
		"":                        {0, 0, 0, 255},
		"#zzzzzz":                 {0, 0, 0, 255},
		"not-a-color":             {0, 0, 0, 255},
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseColor(in), in)
	}
}
