package service

import (
	"errors"
	"fmt"

	"github.com/sevahub/sevahub-backend/internal/certificate"
	"github.com/sevahub/sevahub-backend/internal/model"
)

// Error taxonomy roots. Every specific error below wraps exactly one of
// them, so callers can branch with errors.Is(err, service.ErrState).
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrState           = errors.New("invalid state")
	ErrExternalService = errors.New("external service failure")
	ErrTemplate        = certificate.ErrTemplate
)

// ─── Not found ──────────────────────────────────────────────────────────
var (
	ErrStudentNotFound       = fmt.Errorf("student %w", ErrNotFound)
	ErrEventNotFound         = fmt.Errorf("event %w", ErrNotFound)
	ErrParticipationNotFound = fmt.Errorf("participation %w", ErrNotFound)
	ErrAdminNotFound         = fmt.Errorf("admin %w", ErrNotFound)
	ErrRoleNotFound          = fmt.Errorf("role %w", ErrNotFound)
	ErrCampaignNotFound      = fmt.Errorf("campaign %w", ErrNotFound)
	ErrNotificationNotFound  = fmt.Errorf("notification %w", ErrNotFound)
	ErrEvidenceNotFound      = fmt.Errorf("evidence %w", ErrNotFound)
)

// ─── Validation ─────────────────────────────────────────────────────────
var (
	ErrNoAttendanceData      = fmt.Errorf("%w: no attendance data recorded", ErrValidation)
	ErrInvalidPercentage     = fmt.Errorf("%w: attendance percentage must be a number", ErrValidation)
	ErrMissingRegNo          = fmt.Errorf("%w: registration number is required", ErrValidation)
	ErrMissingAttendance     = fmt.Errorf("%w: classes_attended and total_classes, or percentage, is required", ErrValidation)
	ErrNegativeCounts        = fmt.Errorf("%w: class counts must not be negative", ErrValidation)
	ErrInvalidPeriod         = fmt.Errorf("%w: month must be 1-12", ErrValidation)
	ErrTemplateNotConfigured = fmt.Errorf("%w: certificate template not configured for this event", ErrValidation)
	ErrInvalidTemplateFile   = fmt.Errorf("%w: certificate template must be a single-page PDF", ErrValidation)
	ErrUnsupportedFileType   = fmt.Errorf("%w: unsupported file type", ErrValidation)
	ErrFileTooLarge          = fmt.Errorf("%w: file too large", ErrValidation)
	ErrInvalidSheet          = fmt.Errorf("%w: attendance sheet could not be read", ErrValidation)
	ErrCapacityBelowCount    = fmt.Errorf("%w: capacity is below the current participant count", ErrValidation)
	ErrNoRecipients          = fmt.Errorf("%w: audience matches no students", ErrValidation)
	ErrInvalidField          = fmt.Errorf("%w: invalid certificate field", ErrValidation)
)

// ─── Conflict ───────────────────────────────────────────────────────────
var (
	ErrDuplicateStudent  = fmt.Errorf("%w: registration number or email already in use", ErrConflict)
	ErrDuplicateAdmin    = fmt.Errorf("%w: email already in use", ErrConflict)
	ErrDuplicateRole     = fmt.Errorf("%w: role name already in use", ErrConflict)
	ErrAlreadyRegistered = fmt.Errorf("%w: already registered for this event", ErrConflict)
	ErrInUse             = fmt.Errorf("%w: still referenced by other records", ErrConflict)
)

// ─── State ──────────────────────────────────────────────────────────────
var (
	ErrNotEligible             = fmt.Errorf("%w: attendance below the 75%% threshold", ErrState)
	ErrRegistrationClosed      = fmt.Errorf("%w: registration is closed", ErrState)
	ErrEventFull               = fmt.Errorf("%w: event is full", ErrState)
	ErrInvalidTransition       = fmt.Errorf("%w: status change not allowed", ErrState)
	ErrEventLocked             = fmt.Errorf("%w: finished events cannot be edited", ErrState)
	ErrParticipationNotActive  = fmt.Errorf("%w: participation is not in a state that allows this", ErrState)
	ErrNotQualified            = fmt.Errorf("%w: only attended or completed participations receive certificates", ErrState)
	ErrCertificatesAlreadySent = fmt.Errorf("%w: certificates have already been sent for this event", ErrState)
	ErrCertificatesNotSent     = fmt.Errorf("%w: certificates have not been sent for this event", ErrState)
	ErrDispatchInProgress      = fmt.Errorf("%w: certificates for this event are already being sent", ErrState)
	ErrSystemRole              = fmt.Errorf("%w: the super admin role cannot be changed", ErrState)
	ErrActionForbidden         = fmt.Errorf("%w: admins cannot delete their own account", ErrState)
)

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// NotEligibleError carries the shortfall of a refused registration.
type NotEligibleError struct {
	Eligibility model.Eligibility
	Percentage  float64
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("attendance %.2f%% is %.2f short of the %.0f%% threshold", e.Percentage, e.Eligibility.ShortBy, e.Eligibility.Threshold)
}

func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible || target == ErrState
}

// external wraps a collaborator failure under ErrExternalService.
func external(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrExternalService, err)
}
