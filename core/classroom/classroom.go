package classroom

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCredentialsMissing means the owner never completed the Google grant;
	// distinct from ErrUnauthorized which means Google rejected a token we hold.
	ErrCredentialsMissing = errors.New("google account not linked")
	ErrUnauthorized       = errors.New("google rejected the access token")
	ErrNotFound           = errors.New("not found on google classroom")
)

// APIError is a business error returned by the Google Classroom API,
// passed through with enough detail to render to an end user.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google classroom: %s (code %d)", e.Message, e.Code)
}

// TransientError wraps a network-level failure talking to Google.
// The core never retries these; the caller may retry the whole operation.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "google classroom: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

type (
	Course struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Section     string `json:"section"`
		Description string `json:"description"`
	}

	NewCourse struct {
		Name        string
		Section     string
		Description string
	}

	// CourseStudent is one roster entry; its profile is resolved separately.
	CourseStudent struct {
		UserID string
	}

	Profile struct {
		ID    string
		Name  string
		Email string
	}
)

// Client lists and mutates courses and rosters on Google Classroom.
// Implementations map the remote error shape onto ErrUnauthorized,
// ErrNotFound, *APIError or *TransientError.
type Client interface {
	ListCourses(ctx context.Context, token string) ([]Course, error)
	GetCourse(ctx context.Context, token, courseID string) (Course, error)
	CreateCourse(ctx context.Context, token string, nc NewCourse) (Course, error)
	ListStudents(ctx context.Context, token, courseID string) ([]CourseStudent, error)
	GetProfile(ctx context.Context, token, userID string) (Profile, error)
	CreateInvitation(ctx context.Context, token, courseID, email string) error
}
