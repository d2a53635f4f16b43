package certificate

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the long-form date printed on certificates.
const DateLayout = "January 2, 2006"

// ErrTemplate is matched (errors.Is) by every TemplateError.
var ErrTemplate = errors.New("certificate template could not be parsed")

// TemplateError reports a template that could not be loaded as a PDF.
type TemplateError struct {
	Err error
}

func (e *TemplateError) Error() string {
	return "certificate template: " + e.Err.Error()
}

func (e *TemplateError) Unwrap() error { return e.Err }

func (e *TemplateError) Is(target error) bool { return target == ErrTemplate }

// PageSize is a page's MediaBox size in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TemplateInfo describes an uploaded template.
type TemplateInfo struct {
	Pages int      `json:"pages"`
	Size  PageSize `json:"size"`
}

// Data is the per-student content stamped onto the template.
type Data struct {
	StudentName string
	EventTitle  string
	EventEnd    time.Time
}

// Text returns the string drawn for a field.
func (d Data) Text(key FieldKey) string {
	switch key {
	case FieldName:
		return d.StudentName
	case FieldEventName:
		return d.EventTitle
	case FieldDate:
		if d.EventEnd.IsZero() {
			return ""
		}
		return d.EventEnd.Format(DateLayout)
	}
	return ""
}

// canvas is a single loaded template page that accepts text draws.
// Coordinates passed to DrawText are PDF user space: origin bottom-left, y is the baseline.
type canvas interface {
	PageSize() PageSize
	DrawText(text string, x, baseline, fontSize float64, color RGB) error
	Bytes() ([]byte, error)
}

type openFunc func(template []byte) (canvas, error)
type inspectFunc func(template []byte) (TemplateInfo, error)

// Renderer stamps certificate fields onto a PDF template. It does no I/O.
type Renderer struct {
	open    openFunc
	inspect inspectFunc
}

// NewRenderer returns a renderer backed by gopdf/gofpdi.
func NewRenderer() *Renderer {
	return &Renderer{open: openGoPDF, inspect: inspectPDF}
}

// Inspect loads the template and reports its page count and first-page size.
func (r *Renderer) Inspect(template []byte) (info TemplateInfo, err error) {
	defer recoverTemplate(&err)
	return r.inspect(template)
}

// Render draws every placed field and returns the finished PDF.
func (r *Renderer) Render(template []byte, fields Fields, data Data) (out []byte, err error) {
	defer recoverTemplate(&err)

	c, err := r.open(template)
	if err != nil {
		return nil, err
	}

	page := c.PageSize()
	for _, key := range FieldKeys {
		p := fields.Get(key)
		if p == nil {
			continue
		}
		text := data.Text(key)
		if text == "" {
			continue
		}

		color := Black
		if p.Color != "" {
			if color, err = ParseHexColor(p.Color); err != nil {
				return nil, fmt.Errorf("field %s: %w", key, err)
			}
		}
		size := p.FontSize
		if size <= 0 {
			size = DefaultFontSize
		}

		if err := c.DrawText(text, p.X, page.Height-p.Y, size, color); err != nil {
			return nil, fmt.Errorf("draw %s: %w", key, err)
		}
	}

	return c.Bytes()
}

// recoverTemplate turns a panic from the PDF libraries into a TemplateError.
func recoverTemplate(err *error) {
	if r := recover(); r != nil {
		*err = &TemplateError{Err: fmt.Errorf("%v", r)}
	}
}
