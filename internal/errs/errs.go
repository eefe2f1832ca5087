package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation indicates bad user input detected before any request.
	ErrValidation = errors.New("validation failed")
	// ErrFetch indicates a failed formats request.
	ErrFetch = errors.New("fetching formats failed")
	// ErrEmptyResult indicates a successful formats response without formats.
	ErrEmptyResult = errors.New("no formats returned")
	// ErrDownload indicates a failed download request.
	ErrDownload = errors.New("download failed")
	// ErrVerificationRequired indicates that the backend asks for human
	// verification before serving the content.
	ErrVerificationRequired = errors.New("verification required")
	// ErrBusy indicates that another request of the session is in flight.
	ErrBusy = errors.New("request already in progress")
	// ErrUnknownFormat indicates a format ID absent from the fetched list.
	ErrUnknownFormat = errors.New("unknown format")
	// ErrStale indicates a response superseded by a clear or a newer request.
	ErrStale = errors.New("stale response")
)

// BackendError carries a message reported by the backend.
type BackendError struct {
	// Kind is one of the sentinel errors above.
	Kind       error
	StatusCode int
	Message    string
	// Err is the underlying transport or decoding error, if any.
	Err error
}

func (e *BackendError) Error() string {
	switch {
	case e.Message != "":
		return e.Kind.Error() + ": " + e.Message
	case e.Err != nil:
		return e.Kind.Error() + ": " + e.Err.Error()
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
	default:
		return e.Kind.Error()
	}
}

func (e *BackendError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

const (
	MessageEmptyURL       = "Paste a video URL first."
	MessageEmptyResult    = "No formats found. The platform may be blocking requests from hosting servers; try another public link."
	MessageFetchFailed    = "Could not fetch formats."
	MessageDownloadFailed = "Download failed."
	MessageVerification   = "This content requires human verification. Complete the check and try again."
	MessageBusy           = "Please wait for the current request to finish."
	MessageUnknownFormat  = "This format is not part of the current list. Fetch formats again."
)

// UserMessage returns the status text shown for err. Messages reported by
// the backend are passed through verbatim.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) && strings.TrimSpace(backendErr.Message) != "" {
		if !errors.Is(backendErr.Kind, ErrVerificationRequired) {
			return backendErr.Message
		}
	}

	switch {
	case errors.Is(err, ErrValidation):
		return MessageEmptyURL
	case errors.Is(err, ErrEmptyResult):
		return MessageEmptyResult
	case errors.Is(err, ErrVerificationRequired):
		return MessageVerification
	case errors.Is(err, ErrBusy):
		return MessageBusy
	case errors.Is(err, ErrUnknownFormat):
		return MessageUnknownFormat
	case errors.Is(err, ErrDownload):
		return MessageDownloadFailed
	default:
		return MessageFetchFailed
	}
}
