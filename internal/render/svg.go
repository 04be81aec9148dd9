// File: internal/render/svg.go
package render

import (
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/flux-cli/internal/ramp"
)

const (
	svgNS         = "http://www.w3.org/2000/svg"
	spectralID    = "spectral"
	backlightID   = "backlight"
	svgPrecision  = 2
	svgIndentSize = 2
)

// EncodeSVG writes f as a standalone SVG document. The backlight glow is
// included when withBacklight is set; the raster source hint is omitted.
func EncodeSVG(w io.Writer, f *Frame, withBacklight bool) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("svg")
	root.CreateAttr("xmlns", svgNS)
	root.CreateAttr("width", strconv.Itoa(f.Width))
	root.CreateAttr("height", strconv.Itoa(f.Height))
	root.CreateAttr("viewBox", "0 0 "+strconv.Itoa(f.Width)+" "+strconv.Itoa(f.Height))

	defs := root.CreateElement("defs")
	if f.Spectral != nil {
		writeGradient(defs, spectralID, f.Spectral)
	}
	drawGlow := withBacklight && f.Glow != nil
	if drawGlow {
		writeGradient(defs, backlightID, f.Glow)
	}

	bg := root.CreateElement("rect")
	bg.CreateAttr("width", "100%")
	bg.CreateAttr("height", "100%")
	setPaint(bg, "fill", f.Background)

	if drawGlow {
		glow := root.CreateElement("circle")
		glow.CreateAttr("cx", num(f.Glow.X))
		glow.CreateAttr("cy", num(f.Glow.Y))
		glow.CreateAttr("r", num(f.Glow.Radius))
		glow.CreateAttr("fill", "url(#"+backlightID+")")
		glow.CreateAttr("style", "mix-blend-mode:plus-lighter")
	}

	lines := root.CreateElement("g")
	lines.CreateAttr("fill", "none")
	lines.CreateAttr("stroke-linecap", "butt")
	lines.CreateAttr("stroke-linejoin", "round")
	for i := range f.Rows {
		row := &f.Rows[i]
		if len(row.Segments) == 0 {
			continue
		}
		path := lines.CreateElement("path")
		path.CreateAttr("d", pathData(row.Segments))
		if row.Spectral && f.Spectral != nil {
			path.CreateAttr("stroke", "url(#"+spectralID+")")
		} else {
			setPaint(path, "stroke", f.LineColor)
		}
		path.CreateAttr("stroke-width", num(row.Width))
		path.CreateAttr("opacity", num(row.Opacity))
	}

	doc.Indent(svgIndentSize)
	_, err := doc.WriteTo(w)
	return err
}

func writeGradient(defs *etree.Element, id string, g *ramp.Radial) {
	el := defs.CreateElement("radialGradient")
	el.CreateAttr("id", id)
	el.CreateAttr("gradientUnits", "userSpaceOnUse")
	el.CreateAttr("cx", num(g.X))
	el.CreateAttr("cy", num(g.Y))
	el.CreateAttr("r", num(g.Radius))
	for _, s := range g.Stops {
		stop := el.CreateElement("stop")
		stop.CreateAttr("offset", num(s.Offset))
		stop.CreateAttr("stop-color", ramp.Hex(s.Color))
		stop.CreateAttr("stop-opacity", num(float64(s.Color.A)/255))
	}
}

func setPaint(el *etree.Element, attr string, c color.NRGBA) {
	el.CreateAttr(attr, ramp.Hex(c))
	if c.A != 255 {
		el.CreateAttr(attr+"-opacity", num(float64(c.A)/255))
	}
}

func pathData(segs []Segment) string {
	var b strings.Builder
	for i, s := range segs {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch s.Kind {
		case MoveTo:
			b.WriteString("M")
		case LineTo:
			b.WriteString("L")
		case QuadTo:
			b.WriteString("Q")
			b.WriteString(num(s.Ctrl.X))
			b.WriteByte(',')
			b.WriteString(num(s.Ctrl.Y))
			b.WriteByte(' ')
		}
		b.WriteString(num(s.To.X))
		b.WriteByte(',')
		b.WriteString(num(s.To.Y))
	}
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', svgPrecision, 64)
}
