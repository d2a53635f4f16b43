// Package certificate places text fields on an uploaded PDF template and
// renders per-student certificates from it.
//
// Stored coordinates are authored top-left (the way an admin clicks on a
// rendered preview) and independent of the preview's zoom level. The
// renderer flips y into PDF space, where the origin is bottom-left.
package certificate

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Defaults applied when a placement omits font size or color.
const (
	DefaultFontSize = 24.0
	DefaultColor    = "#000000"
)

var (
	ErrUnknownField = errors.New("unknown certificate field")
	ErrInvalidScale = errors.New("zoom scale must be greater than zero")
)

// FieldKey names one of the three stampable fields.
type FieldKey string

const (
	FieldName      FieldKey = "name"
	FieldEventName FieldKey = "event_name"
	FieldDate      FieldKey = "date"
)

// FieldKeys lists every field in draw order.
var FieldKeys = []FieldKey{FieldName, FieldEventName, FieldDate}

// ParseFieldKey accepts the snake_case key as well as the camelCase form older clients send.
func ParseFieldKey(s string) (FieldKey, error) {
	switch strings.TrimSpace(s) {
	case "name":
		return FieldName, nil
	case "event_name", "eventName":
		return FieldEventName, nil
	case "date":
		return FieldDate, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Placement is the position and style of one field, in unscaled template points.
type Placement struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"font_size"`
	Color    string  `json:"color"`
}

// Fields holds the three fixed placements. A nil placement has not been set.
type Fields struct {
	Name      *Placement `json:"name"`
	EventName *Placement `json:"event_name"`
	Date      *Placement `json:"date"`
}

// Get returns the placement for key (nil when unset).
func (f Fields) Get(key FieldKey) *Placement {
	switch key {
	case FieldName:
		return f.Name
	case FieldEventName:
		return f.EventName
	case FieldDate:
		return f.Date
	}
	return nil
}

// Set replaces the placement for key. Passing nil clears it.
func (f *Fields) Set(key FieldKey, p *Placement) error {
	switch key {
	case FieldName:
		f.Name = p
	case FieldEventName:
		f.EventName = p
	case FieldDate:
		f.Date = p
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	return nil
}

// Placed reports whether at least one field has a placement.
func (f Fields) Placed() bool {
	return f.Name != nil || f.EventName != nil || f.Date != nil
}

// Validate checks the colors of every set placement and that sizes are not negative.
func (f Fields) Validate() error {
	for _, key := range FieldKeys {
		p := f.Get(key)
		if p == nil {
			continue
		}
		if p.FontSize < 0 {
			return fmt.Errorf("%s: font size must not be negative", key)
		}
		if p.Color != "" {
			if _, err := ParseHexColor(p.Color); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

// PlaceFromClick converts a click on a zoomed preview into template coordinates.
func PlaceFromClick(clickX, clickY, scale float64) (x, y float64, err error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return 0, 0, ErrInvalidScale
	}
	return round2(clickX / scale), round2(clickY / scale), nil
}

// NewPlacement builds a placement from a click, filling style defaults.
func NewPlacement(clickX, clickY, scale, fontSize float64, color string) (*Placement, error) {
	x, y, err := PlaceFromClick(clickX, clickY, scale)
	if err != nil {
		return nil, err
	}
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	if color == "" {
		color = DefaultColor
	}
	if _, err := ParseHexColor(color); err != nil {
		return nil, err
	}
	return &Placement{X: x, Y: y, FontSize: fontSize, Color: color}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
