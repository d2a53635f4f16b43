package certificate

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/phpdave11/gofpdi"
	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
)

const fontFamily = "certificate-bold"

var errNotPDF = errors.New("not a PDF document")

// gopdfCanvas imports page 1 of the template as a background and draws on top of it.
// gopdf measures y from the top edge, so baselines are converted back on draw.
type gopdfCanvas struct {
	pdf  *gopdf.GoPdf
	size PageSize
}

func openGoPDF(template []byte) (canvas, error) {
	info, err := inspectPDF(template)
	if err != nil {
		return nil, err
	}
	size := info.Size

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{
		Unit:     gopdf.UnitPT,
		PageSize: gopdf.Rect{W: size.Width, H: size.Height},
	})
	pdf.AddPage()

	rs := io.ReadSeeker(bytes.NewReader(template))
	tpl := pdf.ImportPageStream(&rs, 1, "/MediaBox")
	pdf.UseImportedTemplate(tpl, 0, 0, size.Width, size.Height)

	if err := pdf.AddTTFFontData(fontFamily, gobold.TTF); err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}

	return &gopdfCanvas{pdf: pdf, size: size}, nil
}

func (c *gopdfCanvas) PageSize() PageSize { return c.size }

func (c *gopdfCanvas) DrawText(text string, x, baseline, fontSize float64, color RGB) error {
	if err := c.pdf.SetFont(fontFamily, "", fontSize); err != nil {
		return err
	}
	r, g, b := color.Bytes()
	c.pdf.SetTextColor(r, g, b)
	c.pdf.SetXY(x, c.size.Height-baseline)
	return c.pdf.Text(text)
}

func (c *gopdfCanvas) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// inspectPDF reads the page count and first-page MediaBox with gofpdi.
// gofpdi panics on malformed input; callers recover via recoverTemplate.
func inspectPDF(template []byte) (TemplateInfo, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(template, " \t\r\n\x00"), []byte("%PDF-")) {
		return TemplateInfo{}, &TemplateError{Err: errNotPDF}
	}

	imp := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(template))
	imp.SetSourceStream(&rs)

	pages := imp.GetNumPages()
	if pages < 1 {
		return TemplateInfo{}, &TemplateError{Err: errors.New("template has no pages")}
	}

	box, ok := imp.GetPageSizes()[1]["/MediaBox"]
	if !ok || box["w"] <= 0 || box["h"] <= 0 {
		return TemplateInfo{}, &TemplateError{Err: errors.New("template page has no MediaBox")}
	}

	return TemplateInfo{
		Pages: pages,
		Size:  PageSize{Width: box["w"], Height: box["h"]},
	}, nil
}
