// Package export renders a board snapshot to PDF so a room's drawing
// can be taken out of the realtime layer.
package export

import (
	"io"

	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/models"
	"github.com/jung-kurt/gofpdf"
)

// Canvas coordinates are pixels; A4 landscape is ~842x595pt, so a
// fixed down-scale keeps a typical 1080p board on the page.
const scale = 0.5

// PDF writes the elements of one snapshot to w as a single-page PDF.
// Image elements are drawn as placeholder frames: their bytes live in
// external storage and are not fetched here.
func PDF(w io.Writer, elements models.Elements) error {
	p := gofpdf.New("L", "pt", "A4", "")
	p.AddPage()
	p.SetFont("Helvetica", "", 12)

	for _, el := range elements {
		switch el := el.(type) {
		case *models.Line:
			r, g, b := parseColor(el.Color)
			p.SetDrawColor(r, g, b)
			width := el.StrokeWidth * scale
			if width <= 0 {
				width = 1
			}
			p.SetLineWidth(width)
			for i := 3; i < len(el.Points); i += 2 {
				p.Line(
					el.Points[i-3]*scale, el.Points[i-2]*scale,
					el.Points[i-1]*scale, el.Points[i]*scale,
				)
			}

		case *models.Shape:
			r, g, b := parseColor(el.Color)
			p.SetDrawColor(r, g, b)
			p.SetLineWidth(1)
			x, y, w, h := normalizeBox(el.X, el.Y, el.Width, el.Height)
			switch el.ShapeType {
			case models.ShapeEllipse:
				p.Ellipse((x+w/2)*scale, (y+h/2)*scale, w/2*scale, h/2*scale, 0, "D")
			default:
				p.Rect(x*scale, y*scale, w*scale, h*scale, "D")
			}

		case *models.Text:
			r, g, b := parseColor(el.Color)
			p.SetTextColor(r, g, b)
			size := el.FontSize * scale
			if size <= 0 {
				size = 12
			}
			p.SetFontSize(size)
			p.Text(el.X*scale, el.Y*scale, el.Content)

		case *models.Image:
			p.SetDrawColor(128, 128, 128)
			p.SetLineWidth(1)
			x, y, w, h := normalizeBox(el.X, el.Y, el.Width, el.Height)
			p.Rect(x*scale, y*scale, w*scale, h*scale, "D")
		}
	}

	return p.Output(w)
}

// normalizeBox folds the negative-extent drag convention into a
// top-left anchored box for rendering.
func normalizeBox(x, y, w, h float64) (float64, float64, float64, float64) {
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	return x, y, w, h
}

// parseColor understands the few CSS color names the clients use plus
// #rrggbb. Anything else renders black.
func parseColor(c string) (int, int, int) {
	switch c {
	case "red":
		return 255, 0, 0
	case "green":
		return 0, 128, 0
	case "blue":
		return 0, 0, 255
	case "black", "":
		return 0, 0, 0
	}
	if len(c) == 7 && c[0] == '#' {
		return hexByte(c[1:3]), hexByte(c[3:5]), hexByte(c[5:7])
	}
	return 0, 0, 0
}

func hexByte(s string) int {
	v := 0
	for i := 0; i < len(s); i++ {
		v <<= 4
		switch ch := s[i]; {
		case ch >= '0' && ch <= '9':
			v |= int(ch - '0')
		case ch >= 'a' && ch <= 'f':
			v |= int(ch-'a') + 10
		case ch >= 'A' && ch <= 'F':
			v |= int(ch-'A') + 10
		}
	}
	return v
}
