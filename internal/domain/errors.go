package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrSecretNotFound       = errors.New("secret not found")
	ErrStorageUnavailable   = errors.New("credential storage unavailable")
	ErrIncompleteCredential = errors.New("credential requires both access and refresh tokens")
	ErrInvalidInput         = errors.New("invalid input")

	ErrNetwork          = errors.New("network error")
	ErrAuthExpired      = errors.New("authentication expired")
	ErrValidation       = errors.New("request rejected")
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRefreshFailed and ErrSessionEnded both match ErrNotAuthenticated so
	// callers can treat a lost session exactly like one that never existed.
	ErrRefreshFailed = fmt.Errorf("%w: session refresh failed", ErrNotAuthenticated)
	ErrSessionEnded  = fmt.Errorf("%w: session ended", ErrNotAuthenticated)
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       []byte
	Detail     string
	Fields     map[string][]string
}

func NewAPIError(method, path string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Method:     method,
		Path:       path,
		Body:       body,
	}
	apiErr.Detail, apiErr.Fields = parseErrorBody(body)
	return apiErr
}

func (e *APIError) Error() string {
	msg := e.message()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

func (e *APIError) message() string {
	if e.Detail != "" {
		return e.Detail
	}
	field, msgs := firstFieldError(e.Fields)
	switch field {
	case "":
		return ""
	case "non_field_errors":
		return msgs[0]
	default:
		return field + ": " + msgs[0]
	}
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthExpired:
		return e.StatusCode == http.StatusUnauthorized
	case ErrValidation:
		return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusUnauthorized
	default:
		return false
	}
}

// Message returns the text a front end should show for err.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.message(); msg != "" {
			return msg
		}
	}

	return err.Error()
}

func parseErrorBody(body []byte) (string, map[string][]string) {
	if len(body) == 0 {
		return "", nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", nil
	}

	var detail string
	fields := map[string][]string{}
	for key, value := range raw {
		if key == "detail" || key == "error" {
			var text string
			if err := json.Unmarshal(value, &text); err == nil {
				detail = text
			}
			continue
		}

		var list []string
		if err := json.Unmarshal(value, &list); err == nil && len(list) > 0 {
			fields[key] = list
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err == nil && text != "" {
			fields[key] = []string{text}
		}
	}

	if len(fields) == 0 {
		fields = nil
	}
	return strings.TrimSpace(detail), fields
}

func firstFieldError(fields map[string][]string) (string, []string) {
	if len(fields) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// non_field_errors carries the form-level message and wins over field messages.
	if msgs, ok := fields["non_field_errors"]; ok {
		return "non_field_errors", msgs
	}
	return keys[0], fields[keys[0]]
}
