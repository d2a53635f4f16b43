package certificate

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"

	"github.com/signintech/gopdf"
)

// blankTemplate builds a one-page PDF of the given size with a single rule on it.
func blankTemplate(t *testing.T, w, h float64) []byte {
	t.Helper()

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{Unit: gopdf.UnitPT, PageSize: gopdf.Rect{W: w, H: h}})
	pdf.AddPage()
	pdf.SetLineWidth(2)
	pdf.Line(20, 20, w-20, 20)

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		t.Fatalf("build template: %v", err)
	}
	return buf.Bytes()
}

// pageStreams returns every stream body in doc, inflated when it is Flate encoded.
func pageStreams(doc []byte) [][]byte {
	var out [][]byte
	rest := doc
	for {
		start := bytes.Index(rest, []byte("stream"))
		if start < 0 {
			return out
		}
		body := rest[start+len("stream"):]
		body = bytes.TrimLeft(body, "\r\n")
		end := bytes.Index(body, []byte("endstream"))
		if end < 0 {
			return out
		}
		raw := body[:end]
		rest = body[end+len("endstream"):]

		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			if inflated, err := io.ReadAll(zr); err == nil {
				out = append(out, inflated)
				continue
			}
		}
		out = append(out, raw)
	}
}

func TestRender_RealTemplate(t *testing.T) {
	const width, height = 600.0, 400.0
	tmpl := blankTemplate(t, width, height)

	r := NewRenderer()
	info, err := r.Inspect(tmpl)
	if err != nil {
		t.Fatalf("Inspect template: %v", err)
	}
	if info.Pages != 1 || info.Size.Width != width || info.Size.Height != height {
		t.Fatalf("template info = %+v", info)
	}

	fields := Fields{Name: &Placement{X: 200, Y: 100, FontSize: 24, Color: "#000000"}}
	out, err := r.Render(tmpl, fields, sampleData)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	got, err := r.Inspect(out)
	if err != nil {
		t.Fatalf("Inspect output: %v", err)
	}
	if got.Pages != 1 || got.Size != info.Size {
		t.Errorf("output info = %+v, want one %vx%v page", got, width, height)
	}

	// Placements are measured from the top; the text operator is in PDF space at H-y.
	want := []byte("200.00 300.00 TD")
	found := false
	for _, s := range pageStreams(out) {
		if bytes.Contains(s, want) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no content stream positions text with %q", want)
	}
}
