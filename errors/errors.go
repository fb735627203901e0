package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is the closed set of failure classes every rejected operation falls into.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidInput
	KindForbidden
	KindConflict
	KindUnavailable
	// KindUnauthenticated never comes out of the core; only the HTTP and
	// websocket edges use it for a missing or invalid bearer token.
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidInput:
		return "InvalidInput"
	case KindForbidden:
		return "Forbidden"
	case KindConflict:
		return "Conflict"
	case KindUnavailable:
		return "Unavailable"
	case KindUnauthenticated:
		return "Unauthenticated"
	default:
		return "Unknown"
	}
}

// Error is a sentinel carrying its kind and a stable code for clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrUserNotFound    = newError(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrGroupNotFound   = newError(KindNotFound, "GROUP_NOT_FOUND", "group not found")
	ErrRequestNotFound = newError(KindNotFound, "REQUEST_NOT_FOUND", "friend request not found")

	ErrInvalidName      = newError(KindInvalidInput, "INVALID_NAME", "group name is required")
	ErrEmptyMessage     = newError(KindInvalidInput, "EMPTY_MESSAGE", "message or file is required")
	ErrSelfReference    = newError(KindInvalidInput, "SELF_REFERENCE", "cannot target yourself")
	ErrSelfKick         = newError(KindInvalidInput, "SELF_KICK", "cannot kick yourself")
	ErrInvalidRole      = newError(KindInvalidInput, "INVALID_ROLE", "unknown group role")
	ErrInvalidFileKind  = newError(KindInvalidInput, "INVALID_FILE_KIND", "file kind must be image, video or audio")
	ErrUnsupportedMedia = newError(KindInvalidInput, "UNSUPPORTED_MEDIA", "only images, videos and audio files are allowed")
	ErrFileTooLarge     = newError(KindInvalidInput, "FILE_TOO_LARGE", "file exceeds the upload size limit")
	ErrInvalidRequest   = newError(KindInvalidInput, "INVALID_REQUEST", "invalid request")

	ErrForbidden  = newError(KindForbidden, "FORBIDDEN", "only the group leader can do this")
	ErrNotAMember = newError(KindForbidden, "NOT_A_MEMBER", "user is not a member of this group")
	ErrNotCaller  = newError(KindForbidden, "NOT_CALLER", "acting user does not match the authenticated user")

	ErrDuplicatePending  = newError(KindConflict, "DUPLICATE_PENDING", "friend request already exists")
	ErrAlreadyMember     = newError(KindConflict, "ALREADY_MEMBER", "user is already a member of this group")
	ErrNameTaken         = newError(KindConflict, "NAME_TAKEN", "display name belongs to another user")
	ErrLeaderCannotLeave = newError(KindConflict, "LEADER_CANNOT_LEAVE", "group leader cannot leave the group, transfer leadership first")

	ErrUnavailable = newError(KindUnavailable, "UNAVAILABLE", "storage unavailable")

	ErrUnauthenticated = newError(KindUnauthenticated, "UNAUTHENTICATED", "missing or invalid bearer token")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)

// Unavailable wraps a storage failure so callers see ErrUnavailable while the
// cause stays reachable through errors.Unwrap.
func Unavailable(cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, cause)
}

func asError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf resolves the kind of a possibly wrapped error.
func KindOf(err error) Kind {
	if e, ok := asError(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf resolves the stable code of a possibly wrapped error.
func CodeOf(err error) string {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return "INTERNAL"
}

func MapToHTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// MapToGRPCError converts a domain error into a gRPC status carrying the stable code.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	code := codes.Internal
	switch KindOf(err) {
	case KindNotFound:
		code = codes.NotFound
	case KindInvalidInput:
		code = codes.InvalidArgument
	case KindForbidden:
		code = codes.PermissionDenied
	case KindConflict:
		code = codes.FailedPrecondition
	case KindUnavailable:
		code = codes.Unavailable
	case KindUnauthenticated:
		code = codes.Unauthenticated
	default:
		return status.Error(code, "internal error")
	}
	return status.Error(code, CodeOf(err)+": "+err.Error())
}

// Is and As forward to the standard library so callers importing this package
// do not need a second, aliased errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
