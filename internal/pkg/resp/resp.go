/*
Package resp provides helper functions for sending the development Member Service's JSON responses.

Successful responses carry the payload itself (a profile, {"exists": true}, ...). Errors use a
fixed envelope with a business code and a message.
*/
package resp

import (
	"encoding/json"
	"errors"
	"net/http"

	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Code is the business error code, see the errs package.
	Code int `json:"code"`

	// Message is the client-friendly error message.
	Message string `json:"message"`
}

// RespondJSON is a generic response function used to set the Content-Type and send the JSON payload.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
			"path", r.URL.Path,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondSuccess sends data with HTTP 200 OK.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, data)
}

// RespondCreated sends data with HTTP 201 Created.
func RespondCreated(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusCreated, data)
}

// RespondNoContent sends HTTP 204 No Content.
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// RespondError sends an HTTP response containing custom error information.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	status := customErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	RespondJSON(w, r, status, ErrorResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}

// RespondErr sends err as a CustomError. Errors outside the code table are logged and
// answered with ErrUnknown.
func RespondErr(w http.ResponseWriter, r *http.Request, err error) {
	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		RespondError(w, r, customErr)
		return
	}

	logx.Error(err, "Unhandled error", "method", r.Method, "path", r.URL.Path)
	RespondError(w, r, errs.Wrap(errs.ErrUnknown, err))
}
