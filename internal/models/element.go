package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// ElementKind discriminates the variants of a drawable element.
type ElementKind string

const (
	KindLine  ElementKind = "line"
	KindShape ElementKind = "shape"
	KindText  ElementKind = "text"
	KindImage ElementKind = "image"
)

// ShapeType enumerates the supported shape primitives.
type ShapeType string

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeEllipse   ShapeType = "ellipse"
)

// DrawableElement is one item on a board. Concrete variants are Line,
// Shape, Text and Image. Element ids are generated client-side at
// creation time and are never reused within a room.
type DrawableElement interface {
	ElementID() string
	ElementKind() ElementKind
	Validate() error
}

// Line is a freehand stroke. Points is a flat sequence of x,y pairs in
// the order they were drawn.
type Line struct {
	ID          string      `json:"id"`
	Kind        ElementKind `json:"kind"`
	Points      []float64   `json:"points"`
	Tool        string      `json:"tool,omitempty"`
	Color       string      `json:"color,omitempty"`
	StrokeWidth float64     `json:"strokeWidth,omitempty"`
}

func (l *Line) ElementID() string        { return l.ID }
func (l *Line) ElementKind() ElementKind { return KindLine }

func (l *Line) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("line: missing id")
	}
	if len(l.Points)%2 != 0 {
		return fmt.Errorf("line %s: points must be x,y pairs, got %d values", l.ID, len(l.Points))
	}
	for _, v := range l.Points {
		if !isFinite(v) {
			return fmt.Errorf("line %s: non-finite coordinate", l.ID)
		}
	}
	if !isFinite(l.StrokeWidth) || l.StrokeWidth < 0 {
		return fmt.Errorf("line %s: invalid stroke width", l.ID)
	}
	return nil
}

// Shape is an axis-aligned primitive described by its bounding box.
// Negative Width or Height is legal and means the drag went toward the
// origin; renderers normalize the box, the service stores it verbatim.
type Shape struct {
	ID        string      `json:"id"`
	Kind      ElementKind `json:"kind"`
	ShapeType ShapeType   `json:"shapeType"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Width     float64     `json:"width"`
	Height    float64     `json:"height"`
	Color     string      `json:"color,omitempty"`
}

func (s *Shape) ElementID() string        { return s.ID }
func (s *Shape) ElementKind() ElementKind { return KindShape }

func (s *Shape) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("shape: missing id")
	}
	switch s.ShapeType {
	case ShapeRectangle, ShapeEllipse:
	default:
		return fmt.Errorf("shape %s: unknown shapeType %q", s.ID, s.ShapeType)
	}
	for _, v := range []float64{s.X, s.Y, s.Width, s.Height} {
		if !isFinite(v) {
			return fmt.Errorf("shape %s: non-finite geometry", s.ID)
		}
	}
	return nil
}

// Text is a positioned text label.
type Text struct {
	ID       string      `json:"id"`
	Kind     ElementKind `json:"kind"`
	Content  string      `json:"content"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	FontSize float64     `json:"fontSize,omitempty"`
	Color    string      `json:"color,omitempty"`
}

func (t *Text) ElementID() string        { return t.ID }
func (t *Text) ElementKind() ElementKind { return KindText }

func (t *Text) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("text: missing id")
	}
	if t.Content == "" {
		return fmt.Errorf("text %s: missing content", t.ID)
	}
	if !isFinite(t.X) || !isFinite(t.Y) {
		return fmt.Errorf("text %s: non-finite position", t.ID)
	}
	if !isFinite(t.FontSize) || t.FontSize < 0 {
		return fmt.Errorf("text %s: invalid font size", t.ID)
	}
	return nil
}

// Image references an externally stored picture by URL or storage key.
// Negative Width/Height follows the same normalize-on-render convention
// as Shape.
type Image struct {
	ID     string      `json:"id"`
	Kind   ElementKind `json:"kind"`
	Source string      `json:"source"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
}

func (i *Image) ElementID() string        { return i.ID }
func (i *Image) ElementKind() ElementKind { return KindImage }

func (i *Image) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("image: missing id")
	}
	if i.Source == "" {
		return fmt.Errorf("image %s: missing source", i.ID)
	}
	for _, v := range []float64{i.X, i.Y, i.Width, i.Height} {
		if !isFinite(v) {
			return fmt.Errorf("image %s: non-finite geometry", i.ID)
		}
	}
	return nil
}

// Elements is a render-ordered element collection. It decodes the
// tagged union by peeking at each element's kind before choosing the
// concrete type.
type Elements []DrawableElement

func (e *Elements) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Elements, 0, len(raw))
	for i, item := range raw {
		var tag struct {
			Kind ElementKind `json:"kind"`
		}
		if err := json.Unmarshal(item, &tag); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}

		var el DrawableElement
		switch tag.Kind {
		case KindLine:
			el = &Line{}
		case KindShape:
			el = &Shape{}
		case KindText:
			el = &Text{}
		case KindImage:
			el = &Image{}
		default:
			return fmt.Errorf("element %d: unknown kind %q", i, tag.Kind)
		}
		if err := json.Unmarshal(item, el); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, el)
	}

	*e = out
	return nil
}

// Validate checks every element and rejects duplicate ids within the
// collection.
func (e Elements) Validate() error {
	seen := make(map[string]struct{}, len(e))
	for _, el := range e {
		if err := el.Validate(); err != nil {
			return err
		}
		if _, dup := seen[el.ElementID()]; dup {
			return fmt.Errorf("duplicate element id %q", el.ElementID())
		}
		seen[el.ElementID()] = struct{}{}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
