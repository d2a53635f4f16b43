package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/certificate"
	"github.com/sevahub/sevahub-backend/internal/model"
)

func newTestCertificateService(configured bool) (*CertificateService, *fakeEventStore, *fakeStorage, *fakeRenderer, uuid.UUID) {
	st := newFakeStorage()
	e := &model.Event{ID: uuid.New(), Title: "Tree Planting"}
	if configured {
		e.Certificate.TemplateURL = st.put("certificate-templates/old.pdf", []byte("%PDF-1.4 old"))
		e.Certificate.TemplateID = "certificate-templates/old.pdf"
	}
	events := newFakeEventStore(e)
	r := newFakeRenderer()
	return newCertificateService(events, st, r, 1<<20, zerolog.Nop()), events, st, r, e.ID
}

func TestPlaceField_DividesByScale(t *testing.T) {
	svc, events, _, _, id := newTestCertificateService(true)

	cfg, err := svc.PlaceField(context.Background(), id, model.PlaceFieldRequest{
		Field: "name", ClickX: 300, ClickY: 150, Scale: 1.5,
	})
	if err != nil {
		t.Fatalf("PlaceField: %v", err)
	}
	want := certificate.Placement{X: 200, Y: 100, FontSize: certificate.DefaultFontSize, Color: certificate.DefaultColor}
	if cfg.Fields.Name == nil || *cfg.Fields.Name != want {
		t.Errorf("name = %+v, want %+v", cfg.Fields.Name, want)
	}
	if events.savedFields.Name == nil || *events.savedFields.Name != want {
		t.Error("placement not persisted")
	}
}

func TestPlaceField_KeepsOtherFields(t *testing.T) {
	svc, _, _, _, id := newTestCertificateService(true)
	ctx := context.Background()

	if _, err := svc.PlaceField(ctx, id, model.PlaceFieldRequest{Field: "date", ClickX: 10, ClickY: 20, Scale: 1}); err != nil {
		t.Fatal(err)
	}
	cfg, err := svc.PlaceField(ctx, id, model.PlaceFieldRequest{Field: "eventName", ClickX: 50, ClickY: 60, Scale: 2, FontSize: 18, Color: "#336699"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Fields.Date == nil || cfg.Fields.EventName == nil {
		t.Fatalf("fields = %+v", cfg.Fields)
	}
	if cfg.Fields.EventName.X != 25 || cfg.Fields.EventName.FontSize != 18 || cfg.Fields.EventName.Color != "#336699" {
		t.Errorf("event_name = %+v", cfg.Fields.EventName)
	}
	if cfg.Fields.Name != nil {
		t.Error("unplaced field should stay nil")
	}
}

// staleEventStore serves the event as it was before any placement, the view
// two admins editing the layout at the same time both start from.
type staleEventStore struct {
	*fakeEventStore
	snapshot model.Event
}

func (s *staleEventStore) GetByID(_ context.Context, _ uuid.UUID) (*model.Event, error) {
	cp := s.snapshot
	return &cp, nil
}

func TestPlaceField_ConcurrentEditorsKeepBothFields(t *testing.T) {
	_, events, st, r, id := newTestCertificateService(true)
	stale := &staleEventStore{fakeEventStore: events, snapshot: *events.events[id]}
	svc := newCertificateService(stale, st, r, 1<<20, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.PlaceField(ctx, id, model.PlaceFieldRequest{Field: "name", ClickX: 100, ClickY: 80, Scale: 1}); err != nil {
		t.Fatal(err)
	}
	cfg, err := svc.PlaceField(ctx, id, model.PlaceFieldRequest{Field: "date", ClickX: 40, ClickY: 500, Scale: 1})
	if err != nil {
		t.Fatal(err)
	}

	stored := events.events[id].Certificate.Fields
	if stored.Name == nil || stored.Date == nil {
		t.Fatalf("stored fields = %+v, want name and date", stored)
	}
	if cfg.Fields.Name == nil {
		t.Error("returned layout lost the other editor's field")
	}

	if _, err := svc.ClearField(ctx, id, "date"); err != nil {
		t.Fatal(err)
	}
	if stored := events.events[id].Certificate.Fields; stored.Name == nil || stored.Date != nil {
		t.Errorf("after clear = %+v", stored)
	}
}

func TestPlaceField_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		configured bool
		req        model.PlaceFieldRequest
		want       error
	}{
		{"zero scale", true, model.PlaceFieldRequest{Field: "name", ClickX: 1, ClickY: 1, Scale: 0}, ErrValidation},
		{"negative scale", true, model.PlaceFieldRequest{Field: "name", Scale: -2}, ErrValidation},
		{"unknown field", true, model.PlaceFieldRequest{Field: "signature", Scale: 1}, ErrInvalidField},
		{"bad color", true, model.PlaceFieldRequest{Field: "name", Scale: 1, Color: "blue"}, ErrValidation},
		{"no template", false, model.PlaceFieldRequest{Field: "name", Scale: 1}, ErrTemplateNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, events, _, _, id := newTestCertificateService(tt.configured)
			_, err := svc.PlaceField(context.Background(), id, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if events.savedFields.Placed() {
				t.Error("nothing should be persisted")
			}
		})
	}
}

func TestPlaceField_UnknownEvent(t *testing.T) {
	svc, _, _, _, _ := newTestCertificateService(true)
	_, err := svc.PlaceField(context.Background(), uuid.New(), model.PlaceFieldRequest{Field: "name", Scale: 1})
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestSaveConfig(t *testing.T) {
	svc, events, _, _, id := newTestCertificateService(true)
	ctx := context.Background()

	cfg, err := svc.SaveConfig(ctx, id, model.SaveCertificateConfigRequest{AutoSend: true})
	if err != nil {
		t.Fatalf("empty layout: %v", err)
	}
	if !cfg.AutoSend || cfg.Fields.Placed() {
		t.Errorf("cfg = %+v", cfg)
	}

	cfg, err = svc.SaveConfig(ctx, id, model.SaveCertificateConfigRequest{
		Fields: certificate.Fields{Name: &certificate.Placement{X: 10, Y: 10}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Fields.Name.FontSize != certificate.DefaultFontSize || cfg.Fields.Name.Color != certificate.DefaultColor {
		t.Errorf("defaults not applied: %+v", cfg.Fields.Name)
	}
	if events.events[id].Certificate.AutoSend {
		t.Error("auto_send should be replaced, not merged")
	}

	_, err = svc.SaveConfig(ctx, id, model.SaveCertificateConfigRequest{
		Fields: certificate.Fields{Date: &certificate.Placement{Color: "#12"}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("bad color err = %v", err)
	}
}

func TestClearField(t *testing.T) {
	svc, _, _, _, id := newTestCertificateService(true)
	ctx := context.Background()
	if _, err := svc.PlaceField(ctx, id, model.PlaceFieldRequest{Field: "name", Scale: 1}); err != nil {
		t.Fatal(err)
	}
	cfg, err := svc.ClearField(ctx, id, "name")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Fields.Name != nil {
		t.Error("field not cleared")
	}
}

func TestUploadTemplate(t *testing.T) {
	pdf := []byte("%PDF-1.7 new template")

	t.Run("replaces previous", func(t *testing.T) {
		svc, events, st, _, id := newTestCertificateService(true)
		up, err := svc.UploadTemplate(context.Background(), id, "cert.pdf", pdf)
		if err != nil {
			t.Fatalf("UploadTemplate: %v", err)
		}
		if up.Size.Width != 842 || up.Config.TemplateURL == "" {
			t.Errorf("upload = %+v", up)
		}
		if got := events.events[id].Certificate.TemplateID; got != up.Config.TemplateID {
			t.Errorf("stored id = %q", got)
		}
		if len(st.deleted) != 1 || st.deleted[0] != "certificate-templates/old.pdf" {
			t.Errorf("deleted = %v", st.deleted)
		}
	})

	t.Run("not a pdf", func(t *testing.T) {
		svc, _, _, _, id := newTestCertificateService(false)
		_, err := svc.UploadTemplate(context.Background(), id, "cert.png", []byte("\x89PNG\r\n"))
		if !errors.Is(err, ErrInvalidTemplateFile) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("multi page", func(t *testing.T) {
		svc, _, st, r, id := newTestCertificateService(false)
		r.info.Pages = 2
		_, err := svc.UploadTemplate(context.Background(), id, "cert.pdf", pdf)
		if !errors.Is(err, ErrInvalidTemplateFile) {
			t.Errorf("err = %v", err)
		}
		if len(st.objects) != 0 {
			t.Error("rejected template was stored")
		}
	})

	t.Run("too large", func(t *testing.T) {
		svc, _, _, _, id := newTestCertificateService(false)
		svc.maxBytes = 4
		_, err := svc.UploadTemplate(context.Background(), id, "cert.pdf", pdf)
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestPreview(t *testing.T) {
	svc, _, _, r, id := newTestCertificateService(true)
	out, err := svc.Preview(context.Background(), id)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if string(out) != "%PDF-1.4 Sample Student" || r.renderCalls != 1 {
		t.Errorf("preview = %q", out)
	}

	svc, _, _, _, id = newTestCertificateService(false)
	if _, err := svc.Preview(context.Background(), id); !errors.Is(err, ErrTemplateNotConfigured) {
		t.Errorf("err = %v", err)
	}
}
