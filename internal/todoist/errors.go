package todoist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingToken means no API token was configured.
	ErrMissingToken = errors.New("todoist: API token is required")
	// ErrFetch covers transport failures and non-success responses.
	ErrFetch = errors.New("todoist: fetch failed")
	// ErrParse means the response body did not match the task schema.
	ErrParse = errors.New("todoist: malformed response")
	// ErrResponseTooLarge means the body exceeded the read limit. It wraps ErrFetch.
	ErrResponseTooLarge = fmt.Errorf("%w: response too large", ErrFetch)
)

// APIError captures a non-2xx response. It matches ErrFetch with errors.Is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	b := strings.Builder{}
	b.WriteString("todoist: API error (status=")
	b.WriteString(strconv.Itoa(e.StatusCode))
	b.WriteString(")")
	if m := strings.TrimSpace(e.Message); m != "" {
		b.WriteString(": ")
		b.WriteString(m)
	}
	return b.String()
}

func (e *APIError) Is(target error) bool {
	return target == ErrFetch
}

// IsAuthError reports whether err is an APIError with status 401 or 403.
func IsAuthError(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == 401 || ae.StatusCode == 403
	}
	return false
}

func buildAPIError(status int, body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	ae := &APIError{StatusCode: status, Message: trimmed}

	if strings.HasPrefix(trimmed, "{") {
		var obj struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &obj); err == nil {
			switch {
			case obj.Error != "":
				ae.Message = obj.Error
			case obj.Message != "":
				ae.Message = obj.Message
			}
		}
	}
	return ae
}
