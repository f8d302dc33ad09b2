/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template: the user message and the
HTTP status the development Member Service answers with.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrNotFound:              {Code: ErrNotFound, Message: "Resource not found.", Status: http.StatusNotFound},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Member Account Errors
	ErrNicknameExists:  {Code: ErrNicknameExists, Message: "Nickname is already taken.", Status: http.StatusConflict},
	ErrEmailExists:     {Code: ErrEmailExists, Message: "Email is already registered.", Status: http.StatusConflict},
	ErrMemberNotFound:  {Code: ErrMemberNotFound, Message: "Member not found.", Status: http.StatusNotFound},
	ErrInvalidNickname: {Code: ErrInvalidNickname, Message: "Nickname must be 4-12 letters, digits or !@#.", Status: http.StatusBadRequest},
	ErrInvalidPassword: {Code: ErrInvalidPassword, Message: "Password needs an uppercase letter, a digit and one of !@#.", Status: http.StatusBadRequest},
	ErrInvalidEmail:    {Code: ErrInvalidEmail, Message: "Invalid email address.", Status: http.StatusBadRequest},

	// 3xxx: Session and Authentication Errors
	ErrInvalidCredential:  {Code: ErrInvalidCredential, Message: "Incorrect nickname or password.", Status: http.StatusUnauthorized},
	ErrSessionExpired:     {Code: ErrSessionExpired, Message: "Your session has expired. Please sign in again.", Status: http.StatusUnauthorized},
	ErrIncompleteProfile:  {Code: ErrIncompleteProfile, Message: "The member profile is incomplete."},
	ErrNetwork:            {Code: ErrNetwork, Message: "The member service could not be reached."},
	ErrCookieWriteFailure: {Code: ErrCookieWriteFailure, Message: "The session could not be saved on this device."},
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrForbidden:          {Code: ErrForbidden, Message: "You do not have access to this resource.", Status: http.StatusForbidden},
	ErrBearerNotAllowed:   {Code: ErrBearerNotAllowed, Message: "Authorization headers are not used; credentials travel as cookies."},
	ErrNoSession:          {Code: ErrNoSession, Message: "No signed-in member."},

	// 4xxx: Profile Photo Errors
	ErrPhotoTypeUnsupported: {Code: ErrPhotoTypeUnsupported, Message: "Only PNG or JPG files are supported.", Status: http.StatusBadRequest},
	ErrPhotoTooLarge:        {Code: ErrPhotoTooLarge, Message: "Photo is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrFileStorageFailed:    {Code: ErrFileStorageFailed, Message: "Photo upload failed. Please try again.", Status: http.StatusBadGateway},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
