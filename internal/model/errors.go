package model

import (
	"errors"
	"fmt"
)

var (
	ErrTitleRequired      = errors.New("title is required")
	ErrSpaceRequired      = errors.New("space is required")
	ErrNameRequired       = errors.New("name is required")
	ErrContentRequired    = errors.New("content is required")
	ErrAlreadyMember      = errors.New("already a member of this space")
	ErrTimerRunning       = errors.New("timer already running")
	ErrTimerNotRunning    = errors.New("timer not running")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidRole        = errors.New("invalid role")
	ErrSelfBlock          = errors.New("a task cannot block itself")
	ErrOwnerCannotLeave   = errors.New("the owner cannot leave their own space")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAINotConfigured    = errors.New("ai is not configured")
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

type ForbiddenError struct {
	Action string
}

func (e ForbiddenError) Error() string {
	if e.Action == "" {
		return "forbidden"
	}
	return "forbidden: " + e.Action
}

// ConflictError reports a write against a stale version.
type ConflictError struct {
	Kind     string
	ID       int64
	Expected int64
	Actual   int64
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently (expected version %d, found %d)", e.Kind, e.ID, e.Expected, e.Actual)
}

type BlockedError struct {
	TaskID    int64
	BlockedBy int64
}

func (e BlockedError) Error() string {
	return fmt.Sprintf("task %d is blocked by task %d", e.TaskID, e.BlockedBy)
}

func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

func IsForbidden(err error) bool {
	var fe ForbiddenError
	return errors.As(err, &fe)
}

func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}

func IsBlocked(err error) bool {
	var be BlockedError
	return errors.As(err, &be)
}

// Error codes carried in API error bodies.
const (
	CodeNotFound           = "not_found"
	CodeForbidden          = "forbidden"
	CodeConflict           = "conflict"
	CodeBlocked            = "blocked"
	CodeAlreadyMember      = "already_member"
	CodeTimerRunning       = "timer_running"
	CodeTimerNotRunning    = "timer_not_running"
	CodeEmailTaken         = "email_taken"
	CodeInvalidCredentials = "invalid_credentials"
	CodeOwnerCannotLeave   = "owner_cannot_leave"
	CodeInvalid            = "invalid"
	CodeAINotConfigured    = "ai_not_configured"
	CodeAIFailed           = "ai_failed"
	CodeUnauthorized       = "unauthorized"
	CodeSetupRequired      = "setup_required"
	CodeInternal           = "internal"
)

var codeSentinels = map[string]error{
	CodeAlreadyMember:      ErrAlreadyMember,
	CodeTimerRunning:       ErrTimerRunning,
	CodeTimerNotRunning:    ErrTimerNotRunning,
	CodeEmailTaken:         ErrEmailTaken,
	CodeInvalidCredentials: ErrInvalidCredentials,
	CodeOwnerCannotLeave:   ErrOwnerCannotLeave,
	CodeAINotConfigured:    ErrAINotConfigured,
}

// SentinelForCode returns the sentinel error a code stands for, if any.
func SentinelForCode(code string) (error, bool) {
	err, ok := codeSentinels[code]
	return err, ok
}

// CodeOf classifies err for the wire.
func CodeOf(err error) string {
	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsForbidden(err):
		return CodeForbidden
	case IsConflict(err):
		return CodeConflict
	case IsBlocked(err):
		return CodeBlocked
	}
	for code, sentinel := range codeSentinels {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	for _, invalid := range []error{
		ErrTitleRequired, ErrSpaceRequired, ErrNameRequired, ErrContentRequired,
		ErrInvalidStatus, ErrInvalidPriority, ErrInvalidRole, ErrSelfBlock,
	} {
		if errors.Is(err, invalid) {
			return CodeInvalid
		}
	}
	return CodeInternal
}
