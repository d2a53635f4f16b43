package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionStudentsRead allows viewing students, their attendance and eligibility.
	PermissionStudentsRead Permission = "students:read"

	// PermissionStudentsWrite allows creating, updating and deleting students.
	PermissionStudentsWrite Permission = "students:write"

	// PermissionAttendanceImport allows importing attendance sheets.
	PermissionAttendanceImport Permission = "attendance:import"

	// PermissionEventsRead allows viewing events and their participations.
	PermissionEventsRead Permission = "events:read"

	// PermissionEventsWrite allows creating, editing and moving events through their lifecycle.
	PermissionEventsWrite Permission = "events:write"

	// PermissionParticipationsReview allows approving, rejecting and marking attendance.
	PermissionParticipationsReview Permission = "participations:review"

	// PermissionCertificatesConfigure allows uploading templates and placing fields.
	PermissionCertificatesConfigure Permission = "certificates:configure"

	// PermissionCertificatesSend allows batch and single certificate dispatch.
	PermissionCertificatesSend Permission = "certificates:send"

	// PermissionEmailsSend allows sending bulk email campaigns.
	PermissionEmailsSend Permission = "emails:send"

	PermissionAdminsRead  Permission = "admins:read"
	PermissionAdminsWrite Permission = "admins:write"
	PermissionRolesRead   Permission = "roles:read"
	PermissionRolesWrite  Permission = "roles:write"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionStudentsRead,
	PermissionStudentsWrite,
	PermissionAttendanceImport,
	PermissionEventsRead,
	PermissionEventsWrite,
	PermissionParticipationsReview,
	PermissionCertificatesConfigure,
	PermissionCertificatesSend,
	PermissionEmailsSend,
	PermissionAdminsRead,
	PermissionAdminsWrite,
	PermissionRolesRead,
	PermissionRolesWrite,
}
