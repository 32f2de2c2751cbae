package wire

import "strconv"

// Status is the fixed set of response codes the server produces.
type Status int

const (
	StatusOK                   Status = 200
	StatusBadRequest           Status = 400
	StatusUnauthorized         Status = 401
	StatusNotFound             Status = 404
	StatusHeaderFieldsTooLarge Status = 431
	StatusInternalError        Status = 500
)

func (s Status) Reason() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusUnauthorized:
		return "Unauthorized"
	case StatusNotFound:
		return "Not Found"
	case StatusHeaderFieldsTooLarge:
		return "Header Fields Too Large"
	case StatusInternalError:
		return "Internal Server Error"
	default:
		return "Internal Server Error"
	}
}

// Error is a classified failure carrying the status it maps to and a
// message safe to echo to the client.
type Error struct {
	Status  Status
	Message string
}

func (e *Error) Error() string {
	return strconv.Itoa(int(e.Status)) + " " + e.Status.Reason() + ": " + e.Message
}

func NewError(status Status, message string) *Error {
	return &Error{Status: status, Message: message}
}
