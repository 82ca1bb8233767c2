package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorType int

const (
	ErrInvalidFile ErrorType = iota
	ErrNoLanguageSelected
	ErrTranslation
	ErrConfig
	ErrInvalidState
	ErrSessionBusy
	ErrNetwork
	ErrUnknown
)

type Error struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func New(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func Newf(errorType ErrorType, format string, args ...any) *Error {
	return New(errorType, fmt.Sprintf(format, args...))
}

func Wrap(err error, errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   err,
	}
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrInvalidFile:
		return "InvalidFile"
	case ErrNoLanguageSelected:
		return "NoLanguageSelected"
	case ErrTranslation:
		return "Translation"
	case ErrConfig:
		return "Config"
	case ErrInvalidState:
		return "InvalidState"
	case ErrSessionBusy:
		return "SessionBusy"
	case ErrNetwork:
		return "Network"
	default:
		return "Unknown"
	}
}

// IsType reports whether err or any error it wraps is an *Error of errorType.
func IsType(err error, errorType ErrorType) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// UserMessage renders err as text suitable for a chat reply.
func UserMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "Something went wrong, please try again."
	}

	switch appErr.Type {
	case ErrInvalidFile:
		return "Please send a valid subtitle file with the .srt extension."
	case ErrNoLanguageSelected:
		return "You have not selected any language yet."
	case ErrTranslation:
		return "The translation service is unavailable right now."
	case ErrInvalidState:
		return "That action is not available right now. Send /start to begin again."
	case ErrSessionBusy:
		return "A translation is already running. Wait for it to finish or send /cancel."
	case ErrNetwork:
		return "Could not reach the chat service, please try again."
	case ErrConfig:
		return "The bot is misconfigured."
	default:
		return "Something went wrong, please try again."
	}
}

// SafeExecute runs fn and converts a panic into an ErrUnknown error.
func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = New(ErrUnknown, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
