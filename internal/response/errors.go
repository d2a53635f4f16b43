package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrPermissionDenied  ErrCode = "PERMISSION_DENIED"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"
	ErrActionForbidden  ErrCode = "ACTION_FORBIDDEN"

	// ─── Eligibility & registration ────────────────────────────────────
	ErrNotEligible          ErrCode = "ATTENDANCE_BELOW_THRESHOLD"
	ErrNoAttendanceData     ErrCode = "NO_ATTENDANCE_DATA"
	ErrAlreadyRegistered    ErrCode = "ALREADY_REGISTERED"
	ErrEventFull            ErrCode = "EVENT_FULL"
	ErrRegistrationClosed   ErrCode = "REGISTRATION_CLOSED"
	ErrInvalidTransition    ErrCode = "INVALID_STATUS_TRANSITION"
	ErrParticipationPending ErrCode = "PARTICIPATION_NOT_ACTIVE"

	// ─── Certificates ──────────────────────────────────────────────────
	ErrTemplateNotConfigured   ErrCode = "TEMPLATE_NOT_CONFIGURED"
	ErrInvalidTemplate         ErrCode = "INVALID_TEMPLATE"
	ErrCertificatesAlreadySent ErrCode = "CERTIFICATES_ALREADY_SENT"
	ErrCertificatesNotSent     ErrCode = "CERTIFICATES_NOT_SENT"
	ErrDispatchInProgress      ErrCode = "DISPATCH_IN_PROGRESS"
	ErrNotQualified            ErrCode = "NOT_QUALIFIED_FOR_CERTIFICATE"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrExternalService ErrCode = "EXTERNAL_SERVICE_ERROR"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid registration number, email or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrDependencyExists:
		return "This record cannot be deleted because other data still uses it."
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Eligibility & registration ────────────────────────────────────
	case ErrNotEligible:
		return "You need at least 75% attendance to register for volunteering events."
	case ErrNoAttendanceData:
		return "No attendance has been recorded for you yet. At least 75% attendance is required to register."
	case ErrAlreadyRegistered:
		return "You are already registered for this event."
	case ErrEventFull:
		return "This event has reached its capacity."
	case ErrRegistrationClosed:
		return "Registration for this event is closed."
	case ErrInvalidTransition:
		return "This status change is not allowed."
	case ErrParticipationPending:
		return "This participation is not in a state that allows this action."

	// ─── Certificates ──────────────────────────────────────────────────
	case ErrTemplateNotConfigured:
		return "Certificate template not configured for this event."
	case ErrInvalidTemplate:
		return "The certificate template could not be read as a PDF."
	case ErrCertificatesAlreadySent:
		return "Certificates have already been sent for this event."
	case ErrCertificatesNotSent:
		return "Certificates have not been sent for this event yet."
	case ErrDispatchInProgress:
		return "Certificates for this event are already being sent."
	case ErrNotQualified:
		return "Only attended or completed participations receive certificates."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

	// ─── Upstream ──────────────────────────────────────────────────────
	case ErrExternalService:
		return "An external service is unavailable. Please try again later."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
