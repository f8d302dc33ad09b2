package authhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusError is a non-2xx answer from the Member Service.
type StatusError struct {
	StatusCode int
	Code       int
	Message    string
	Body       []byte
	Method     string
	Path       string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
}

// errorBody matches the {code, message} error envelope. Older endpoints send only
// message or error.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newStatusError(req Request, resp *Response) *StatusError {
	e := &StatusError{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Method:     req.Method,
		Path:       req.Path,
	}
	var body errorBody
	if json.Unmarshal(resp.Body, &body) == nil {
		e.Code = body.Code
		e.Message = body.Message
		if e.Message == "" {
			e.Message = body.Error
		}
	} else if text := strings.TrimSpace(string(resp.Body)); len(text) > 0 && len(text) <= 200 {
		e.Message = text
	}
	return e
}

// StatusCode returns the HTTP status carried by err's chain, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsStatus reports whether err carries one of the given HTTP statuses.
func IsStatus(err error, codes ...int) bool {
	got := StatusCode(err)
	if got == 0 {
		return false
	}
	for _, c := range codes {
		if got == c {
			return true
		}
	}
	return false
}
