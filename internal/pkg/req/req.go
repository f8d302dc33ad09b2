/*
Package req provides helper functions for HTTP request parsing and data binding.

It decodes JSON bodies strictly and reads required query parameters, reporting every failure
as an errs.CustomError ready to be sent back to the client.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"harukcal/internal/pkg/errs"
)

// MaxJSONBodySize defines the maximum allowed size (1 MB) of a JSON request body.
const MaxJSONBodySize int64 = 1 << 20

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// Query returns the trimmed, non-empty query parameter key.
func Query(r *http.Request, key string) (string, *errs.CustomError) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return "", errs.NewError(errs.ErrInvalidParams).WithMessage("Missing query parameter: " + key)
	}
	return v, nil
}
