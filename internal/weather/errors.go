package weather

import (
	"errors"
	"net/http"
)

// Kind classifies failures across the adapter, the stores and the remote clients.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindNotFound
	KindUpstreamUnavailable
	KindConfiguration
	KindLocationUnavailable
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindNotFound:
		return "not_found"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindConfiguration:
		return "configuration"
	case KindLocationUnavailable:
		return "location_unavailable"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to the status the edge endpoint responds with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// User-facing messages.
const (
	MsgInvalidRequest      = "City or coordinates parameter is required"
	MsgNotFound            = "City not found. Please check the spelling and try again."
	MsgUpstreamUnavailable = "Unable to fetch weather data. Please try again later."
	MsgConfiguration       = "Weather service configuration error"
	MsgInternal            = "Internal server error"
	MsgLocationUnsupported = "Geolocation is not supported by this client."
	MsgLocationDenied      = "Unable to retrieve your location. Please allow location access or search by city."
	MsgPersistence         = "Unable to save your favorites. Please try again."
)

// Error carries a Kind, a message safe to show to a user, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest, Message: MsgInvalidRequest}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: MsgNotFound}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable, Message: MsgUpstreamUnavailable}
	ErrConfiguration       = &Error{Kind: KindConfiguration, Message: MsgConfiguration}
	ErrLocationUnavailable = &Error{Kind: KindLocationUnavailable, Message: MsgLocationDenied}
	ErrPersistence         = &Error{Kind: KindPersistence, Message: MsgPersistence}
	ErrInternal            = &Error{Kind: KindInternal, Message: MsgInternal}
)

// NewError builds an *Error of the given kind with its default message.
func NewError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: defaultMessage(kind), Err: cause}
}

func defaultMessage(k Kind) string {
	switch k {
	case KindInvalidRequest:
		return MsgInvalidRequest
	case KindNotFound:
		return MsgNotFound
	case KindUpstreamUnavailable:
		return MsgUpstreamUnavailable
	case KindConfiguration:
		return MsgConfiguration
	case KindLocationUnavailable:
		return MsgLocationDenied
	case KindPersistence:
		return MsgPersistence
	default:
		return MsgInternal
	}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindInternal
}

// Message returns the user-facing message for err. Errors outside the
// taxonomy get the generic internal message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var we *Error
	if errors.As(err, &we) && we.Message != "" {
		return we.Message
	}
	return MsgInternal
}
