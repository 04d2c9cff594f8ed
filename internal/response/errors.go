package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrFacultyAccessOnly ErrCode = "FACULTY_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Assessment & session protocol ─────────────────────────────────
	ErrAssessmentNotAvailable ErrCode = "ASSESSMENT_NOT_AVAILABLE"
	ErrAssessmentNotDraft     ErrCode = "ASSESSMENT_NOT_DRAFT"
	ErrNotAuthor              ErrCode = "NOT_ASSESSMENT_AUTHOR"
	ErrNoQuestions            ErrCode = "NO_QUESTIONS"
	ErrNoActiveSession        ErrCode = "NO_ACTIVE_SESSION"
	ErrSessionCreationFailed  ErrCode = "SESSION_CREATION_FAILED"
	ErrAlreadySubmitted       ErrCode = "ALREADY_SUBMITTED"
	ErrFinalizationFailed     ErrCode = "FINALIZATION_FAILED"

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
		return "Email or password is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your login session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrFacultyAccessOnly:
		return "This resource is restricted to faculty."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Assessment & session protocol ─────────────────────────────────
	case ErrAssessmentNotAvailable:
		return "This assessment is not currently available."
	case ErrAssessmentNotDraft:
		return "This assessment is not in DRAFT status."
	case ErrNotAuthor:
		return "You are not the author of this assessment."
	case ErrNoQuestions:
		return "This assessment has no questions."
	case ErrNoActiveSession:
		return "You have no active session for this assessment."
	case ErrSessionCreationFailed:
		return "Could not start your session. Please try again."
	case ErrAlreadySubmitted:
		return "This attempt has already been submitted."
	case ErrFinalizationFailed:
		return "Your submission could not be recorded. Please retry or contact support; your attempt has been preserved."

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
