package submit

import (
	"fmt"
	"net/http"
	"time"
)

// Kind classifies why an upload attempt failed
type Kind int

const (
	// Unreachable means the service could not be contacted at all
	Unreachable Kind = iota + 1
	// HTTP means the service answered with a non-success status
	HTTP
	// MalformedResponse means a success status carried an unusable body
	MalformedResponse
	// Timeout means the configured request timeout elapsed
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case HTTP:
		return "http"
	case MalformedResponse:
		return "malformed_response"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a classified upload failure. Error() is the user-facing message.
type Error struct {
	Kind    Kind
	Status  int
	Body    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func unreachableError(endpoint string, err error) *Error {
	return &Error{
		Kind:    Unreachable,
		Message: fmt.Sprintf("Cannot connect to server. Make sure the OCR service is running at %s and the service URL is configured correctly.", endpoint),
		Err:     err,
	}
}

func timeoutError(endpoint string, timeout time.Duration, err error) *Error {
	return &Error{
		Kind:    Timeout,
		Message: fmt.Sprintf("Cannot reach server in time: no response from %s within %s.", endpoint, timeout),
		Err:     err,
	}
}

func httpError(status int, body string) *Error {
	var msg string
	switch status {
	case http.StatusBadRequest:
		msg = "Bad request: Please check if the uploaded file is a valid image format."
	case http.StatusMethodNotAllowed:
		msg = "Method not allowed: Server method or CORS configuration issue."
	case http.StatusInternalServerError:
		msg = "Server error: There was an issue processing your invoice."
	default:
		if body == "" {
			body = "Unknown error"
		}
		msg = fmt.Sprintf("Server error (%d): %s", status, body)
	}
	return &Error{
		Kind:    HTTP,
		Status:  status,
		Body:    body,
		Message: msg,
	}
}

func malformedError(err error) *Error {
	return &Error{
		Kind:    MalformedResponse,
		Message: fmt.Sprintf("Invalid response from server: %v", err),
		Err:     err,
	}
}
