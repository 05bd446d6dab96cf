package domain

import "errors"

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrRemoteTransform = errors.New("remote transform failed")
	ErrEmptyResponse   = errors.New("empty response")
	ErrDownload        = errors.New("download failed")
	ErrRead            = errors.New("read failed")
)

// Error carries a user-facing message while still matching one of the
// sentinel kinds above through errors.Is.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ConfigurationError(message string) error {
	return &Error{Kind: ErrConfiguration, Message: message}
}

func RemoteTransformError(err error) error {
	msg := "An unknown error occurred while communicating with the Gemini API."
	if err != nil {
		msg = "Gemini API call failed: " + err.Error()
	}
	return &Error{Kind: ErrRemoteTransform, Message: msg, Err: err}
}

func EmptyResponseError() error {
	return &Error{Kind: ErrEmptyResponse, Message: "No edited image data found in the API response."}
}

func DownloadError(message string, err error) error {
	return &Error{Kind: ErrDownload, Message: message, Err: err}
}

func ReadError(message string, err error) error {
	return &Error{Kind: ErrRead, Message: message, Err: err}
}
