package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/aiclient"
	"github.com/sevahub/sevahub-backend/internal/metrics"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
)

const reportSystemPrompt = `You write short, formal volunteering activity reports for a university's student volunteering office.
Write 2-3 paragraphs in the third person, past tense. Use only the facts provided. Do not invent numbers, names or outcomes.`

type reportGenerator interface {
	Generate(ctx context.Context, p aiclient.Prompt) (string, error)
}

type reportParticipationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Participation, error)
	SetReport(ctx context.Context, id uuid.UUID, description, report string, source model.ReportSource) error
}

type reportEventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
}

// ReportService turns a student's own description into a formal report.
type ReportService struct {
	ai             reportGenerator
	participations reportParticipationStore
	events         reportEventStore
	log            zerolog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(ai *aiclient.Client, participations *repository.ParticipationRepository, events *repository.EventRepository, log zerolog.Logger) *ReportService {
	return newReportService(ai, participations, events, log)
}

func newReportService(ai reportGenerator, participations reportParticipationStore, events reportEventStore, log zerolog.Logger) *ReportService {
	return &ReportService{
		ai:             ai,
		participations: participations,
		events:         events,
		log:            log.With().Str("component", "report_service").Logger(),
	}
}

// GenerateReport writes a report for the student's participation. When the
// AI provider fails or is not configured a deterministic template is used.
func (s *ReportService) GenerateReport(ctx context.Context, studentID int, participationID uuid.UUID, description string) (*model.Participation, error) {
	p, err := s.participations.GetByID(ctx, participationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrParticipationNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.StudentID != studentID {
		return nil, ErrParticipationNotFound
	}
	if !statusIn(p.Status, []model.ParticipationStatus{model.ParticipationApproved, model.ParticipationAttended, model.ParticipationCompleted}) {
		return nil, ErrParticipationNotActive
	}

	event, err := s.events.GetByID(ctx, p.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	description = strings.TrimSpace(description)
	source := model.ReportSourceAI
	report, err := s.ai.Generate(ctx, aiclient.Prompt{
		System:    reportSystemPrompt,
		User:      reportFacts(p, event, description),
		MaxTokens: 800,
	})
	if err != nil || strings.TrimSpace(report) == "" {
		if err != nil && !errors.Is(err, aiclient.ErrDisabled) {
			s.log.Warn().Err(err).Str("participation_id", participationID.String()).Msg("AI report failed, using template")
		}
		report = templateReport(p, event, description)
		source = model.ReportSourceTemplate
	}
	metrics.AIReports.WithLabelValues(string(source)).Inc()

	report = strings.TrimSpace(report)
	if err := s.participations.SetReport(ctx, participationID, description, report, source); err != nil {
		return nil, err
	}

	p.Description = description
	p.AIReport = report
	p.ReportSource = source
	return p, nil
}

func reportFacts(p *model.Participation, e *model.Event, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Student: %s (%s)\n", p.StudentName, p.RegistrationNumber)
	fmt.Fprintf(&b, "Event: %s\n", e.Title)
	fmt.Fprintf(&b, "Type: %s\n", strings.ReplaceAll(string(e.Type), "_", " "))
	fmt.Fprintf(&b, "Location: %s\n", e.Location)
	fmt.Fprintf(&b, "Date: %s\n", e.StartAt.Format("January 2, 2006"))
	if e.HoursAwarded > 0 {
		fmt.Fprintf(&b, "Volunteer hours: %g\n", e.HoursAwarded)
	}
	if len(p.Evidence) > 0 {
		names := make([]string, 0, len(p.Evidence))
		for _, ev := range p.Evidence {
			name := ev.Name
			if ev.Caption != "" {
				name += " (" + ev.Caption + ")"
			}
			names = append(names, name)
		}
		fmt.Fprintf(&b, "Evidence submitted: %s\n", strings.Join(names, "; "))
	}
	fmt.Fprintf(&b, "\nStudent's own description:\n%s\n", description)
	return b.String()
}

func templateReport(p *model.Participation, e *model.Event, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) volunteered at %s, held at %s on %s.",
		p.StudentName, p.RegistrationNumber, e.Title, e.Location, e.StartAt.Format("January 2, 2006"))
	if e.HoursAwarded > 0 {
		fmt.Fprintf(&b, " The activity counts for %g volunteer hours.", e.HoursAwarded)
	}
	fmt.Fprintf(&b, "\n\nIn the student's words: %s", description)
	if n := len(p.Evidence); n > 0 {
		fmt.Fprintf(&b, "\n\n%d supporting file(s) were submitted as evidence.", n)
	}
	return b.String()
}
