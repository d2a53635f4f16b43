package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/certificate"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
	"github.com/sevahub/sevahub-backend/internal/storage"
)

type certificateEventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	SaveCertificateFields(ctx context.Context, id uuid.UUID, fields certificate.Fields, autoSend bool) error
	SetCertificateField(ctx context.Context, id uuid.UUID, key certificate.FieldKey, placement *certificate.Placement) (certificate.Fields, error)
	SetTemplate(ctx context.Context, id uuid.UUID, url, storageID string) error
}

type certificateRenderer interface {
	Inspect(template []byte) (certificate.TemplateInfo, error)
	Render(template []byte, fields certificate.Fields, data certificate.Data) ([]byte, error)
}

// TemplateUpload describes a stored template after upload.
type TemplateUpload struct {
	Config model.CertificateConfig `json:"config"`
	Size   certificate.PageSize    `json:"page_size"`
}

// CertificateService manages an event's certificate template and field layout.
type CertificateService struct {
	events   certificateEventStore
	storage  storage.Storage
	renderer certificateRenderer
	maxBytes int64
	log      zerolog.Logger
}

// NewCertificateService creates a new CertificateService.
func NewCertificateService(events *repository.EventRepository, store storage.Storage, renderer *certificate.Renderer, maxBytes int64, log zerolog.Logger) *CertificateService {
	return newCertificateService(events, store, renderer, maxBytes, log)
}

func newCertificateService(events certificateEventStore, store storage.Storage, renderer certificateRenderer, maxBytes int64, log zerolog.Logger) *CertificateService {
	return &CertificateService{
		events:   events,
		storage:  store,
		renderer: renderer,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "certificate_service").Logger(),
	}
}

func (s *CertificateService) getEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	return e, err
}

// GetConfig returns the event's certificate configuration.
func (s *CertificateService) GetConfig(ctx context.Context, eventID uuid.UUID) (*model.CertificateConfig, error) {
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &e.Certificate, nil
}

// PlaceField stores one field from a click on the zoomed template preview.
// The click is divided by scale so the stored point is zoom independent.
func (s *CertificateService) PlaceField(ctx context.Context, eventID uuid.UUID, req model.PlaceFieldRequest) (*model.CertificateConfig, error) {
	key, err := certificate.ParseFieldKey(req.Field)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidField, err)
	}
	placement, err := certificate.NewPlacement(req.ClickX, req.ClickY, req.Scale, req.FontSize, req.Color)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidField, err)
	}

	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !e.Certificate.Configured() {
		return nil, ErrTemplateNotConfigured
	}

	cfg := e.Certificate
	if cfg.Fields, err = s.setField(ctx, eventID, key, placement); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("event_id", eventID.String()).
		Str("field", string(key)).
		Float64("x", placement.X).
		Float64("y", placement.Y).
		Msg("Certificate field placed")
	return &cfg, nil
}

// ClearField removes one placement.
func (s *CertificateService) ClearField(ctx context.Context, eventID uuid.UUID, field string) (*model.CertificateConfig, error) {
	key, err := certificate.ParseFieldKey(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidField, err)
	}
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	cfg := e.Certificate
	if cfg.Fields, err = s.setField(ctx, eventID, key, nil); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setField updates a single placement in storage so concurrent edits to
// other fields of the same event are kept.
func (s *CertificateService) setField(ctx context.Context, eventID uuid.UUID, key certificate.FieldKey, placement *certificate.Placement) (certificate.Fields, error) {
	fields, err := s.events.SetCertificateField(ctx, eventID, key, placement)
	if errors.Is(err, repository.ErrNotFound) {
		return certificate.Fields{}, ErrEventNotFound
	}
	return fields, err
}

// SaveConfig replaces the whole field layout and the auto-send flag.
// An empty layout is accepted; missing style values get defaults.
func (s *CertificateService) SaveConfig(ctx context.Context, eventID uuid.UUID, req model.SaveCertificateConfigRequest) (*model.CertificateConfig, error) {
	if err := req.Fields.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidField, err)
	}
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	fields := req.Fields
	for _, key := range certificate.FieldKeys {
		p := fields.Get(key)
		if p == nil {
			continue
		}
		filled := *p
		if filled.FontSize == 0 {
			filled.FontSize = certificate.DefaultFontSize
		}
		if filled.Color == "" {
			filled.Color = certificate.DefaultColor
		}
		_ = fields.Set(key, &filled)
	}

	if err := s.events.SaveCertificateFields(ctx, eventID, fields, req.AutoSend); err != nil {
		return nil, err
	}

	cfg := e.Certificate
	cfg.Fields = fields
	cfg.AutoSend = req.AutoSend
	return &cfg, nil
}

// UploadTemplate validates a single-page PDF, stores it and replaces the
// event's previous template. The old object is removed best-effort.
func (s *CertificateService) UploadTemplate(ctx context.Context, eventID uuid.UUID, filename string, data []byte) (*TemplateUpload, error) {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	if !isPDF(data) {
		return nil, ErrInvalidTemplateFile
	}

	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	info, err := s.renderer.Inspect(data)
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID.String()).Str("filename", filename).Msg("Rejected certificate template")
		return nil, ErrInvalidTemplateFile
	}
	if info.Pages != 1 {
		return nil, ErrInvalidTemplateFile
	}

	obj, err := s.storage.Upload(ctx, data, "certificate-templates/"+eventID.String(), "template.pdf")
	if err != nil {
		return nil, external("upload template", err)
	}
	if err := s.events.SetTemplate(ctx, eventID, obj.URL, obj.ID); err != nil {
		s.deleteObject(obj.ID)
		return nil, err
	}

	if old := e.Certificate.TemplateID; old != "" && old != obj.ID {
		s.deleteObject(old)
	}

	s.log.Info().
		Str("event_id", eventID.String()).
		Str("storage_id", obj.ID).
		Float64("width", info.Size.Width).
		Float64("height", info.Size.Height).
		Msg("Certificate template uploaded")

	cfg := e.Certificate
	cfg.TemplateURL = obj.URL
	cfg.TemplateID = obj.ID
	return &TemplateUpload{Config: cfg, Size: info.Size}, nil
}

// RemoveTemplate clears the template. Field placements are kept.
func (s *CertificateService) RemoveTemplate(ctx context.Context, eventID uuid.UUID) error {
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !e.Certificate.Configured() {
		return ErrTemplateNotConfigured
	}
	if err := s.events.SetTemplate(ctx, eventID, "", ""); err != nil {
		return err
	}
	if e.Certificate.TemplateID != "" {
		s.deleteObject(e.Certificate.TemplateID)
	}
	return nil
}

// Preview renders the template with sample data so admins can check placements.
func (s *CertificateService) Preview(ctx context.Context, eventID uuid.UUID) ([]byte, error) {
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !e.Certificate.Configured() {
		return nil, ErrTemplateNotConfigured
	}

	tmpl, err := s.storage.Fetch(ctx, e.Certificate.TemplateURL)
	if err != nil {
		return nil, external("fetch template", err)
	}

	end := e.EndAt
	if end.IsZero() {
		end = time.Now()
	}
	return s.renderer.Render(tmpl, e.Certificate.Fields, certificate.Data{
		StudentName: "Sample Student",
		EventTitle:  e.Title,
		EventEnd:    end,
	})
}

func (s *CertificateService) deleteObject(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.storage.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn().Err(err).Str("storage_id", id).Msg("Failed to delete certificate template")
	}
}

// isPDF reports whether data starts with the PDF magic header.
func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
