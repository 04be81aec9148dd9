// File: internal/ramp/css.go
package ramp

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var named = map[string]color.NRGBA{
	"black":       {0, 0, 0, 255},
	"white":       {255, 255, 255, 255},
	"transparent": {0, 0, 0, 0},
}

// ParseColor understands the colour notations the configuration accepts:
// #rgb, #rrggbb, #rrggbbaa, rgb(), rgba(), hsl(), hsla() and a few names.
func ParseColor(s string) (color.NRGBA, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if c, ok := named[in]; ok {
		return c, nil
	}

	if strings.HasPrefix(in, "#") {
		return parseHex(in)
	}

	fn, args, ok := splitFunc(in)
	if !ok {
		return color.NRGBA{}, fmt.Errorf("unrecognised colour %q", s)
	}
	switch fn {
	case "rgb", "rgba":
		if len(args) != 3 && len(args) != 4 {
			return color.NRGBA{}, fmt.Errorf("colour %q: %s() takes 3 or 4 arguments", s, fn)
		}
		var ch [3]uint8
		for i := 0; i < 3; i++ {
			v, err := parseChannel(args[i])
			if err != nil {
				return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, err)
			}
			ch[i] = v
		}
		a, err := parseAlpha(args, 3)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, err)
		}
		return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: a}, nil

	case "hsl", "hsla":
		if len(args) != 3 && len(args) != 4 {
			return color.NRGBA{}, fmt.Errorf("colour %q: %s() takes 3 or 4 arguments", s, fn)
		}
		h, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "deg"), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: bad hue: %w", s, err)
		}
		sat, err := parsePercent(args[1])
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, err)
		}
		light, err := parsePercent(args[2])
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, err)
		}
		a, err := parseAlpha(args, 3)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, err)
		}
		return HSLA(h, sat, light, float64(a)/255), nil
	}
	return color.NRGBA{}, fmt.Errorf("unrecognised colour function %q", fn)
}

// MustParseColor is ParseColor for literals known to be valid.
func MustParseColor(s string) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// HSLA builds a colour from hue in degrees, saturation and lightness in
// [0, 1] and alpha in [0, 1]. Out-of-range inputs are clamped.
func HSLA(h, s, l, a float64) color.NRGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := colorful.Hsl(h, clamp01(s), clamp01(l)).Clamped()
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha8(a)}
}

// CSS renders c as an rgba() string.
func CSS(c color.NRGBA) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B,
		strconv.FormatFloat(float64(c.A)/255, 'f', -1, 32))
}

// Hex renders the opaque part of c as #rrggbb.
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func parseHex(in string) (color.NRGBA, error) {
	var alpha uint8 = 255
	switch len(in) {
	case 4: // #rgb
		in = "#" + strings.Repeat(in[1:2], 2) + strings.Repeat(in[2:3], 2) + strings.Repeat(in[3:4], 2)
	case 9: // #rrggbbaa
		a, err := strconv.ParseUint(in[7:9], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: bad alpha: %w", in, err)
		}
		alpha = uint8(a)
		in = in[:7]
	}
	c, err := colorful.Hex(in)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("colour %q: %w", in, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

func splitFunc(in string) (string, []string, bool) {
	open := strings.IndexByte(in, '(')
	if open <= 0 || !strings.HasSuffix(in, ")") {
		return "", nil, false
	}
	body := in[open+1 : len(in)-1]
	var args []string
	// Accept both comma and space separated forms.
	for _, part := range strings.FieldsFunc(body, func(r rune) bool { return r == ',' || r == ' ' || r == '/' }) {
		args = append(args, strings.TrimSpace(part))
	}
	return strings.TrimSpace(in[:open]), args, true
}

func parseChannel(s string) (uint8, error) {
	if strings.HasSuffix(s, "%") {
		p, err := parsePercent(s)
		if err != nil {
			return 0, err
		}
		return uint8(math.Round(p * 255)), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad channel %q", s)
	}
	return uint8(math.Round(math.Max(0, math.Min(255, v)))), nil
}

func parsePercent(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("bad percentage %q", s)
	}
	return clamp01(v / 100), nil
}

func parseAlpha(args []string, i int) (uint8, error) {
	if len(args) <= i {
		return 255, nil
	}
	s := args[i]
	if strings.HasSuffix(s, "%") {
		p, err := parsePercent(s)
		if err != nil {
			return 0, err
		}
		return alpha8(p), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad alpha %q", s)
	}
	return alpha8(v), nil
}

func alpha8(a float64) uint8 {
	return uint8(math.Round(clamp01(a) * 255))
}

func clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
