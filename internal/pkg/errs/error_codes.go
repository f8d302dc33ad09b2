/*
Package errs provides custom error types and application-level error code constants.

The codes identify request, member, session and photo failures both inside the client
toolkit and on the wire between the development Member Service and its callers.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrNotFound indicates that the requested resource does not exist.
	ErrNotFound = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Member Account Errors
const (
	// ErrNicknameExists indicates that the nickname is already registered.
	ErrNicknameExists = 2101

	// ErrEmailExists indicates that the email is already registered.
	ErrEmailExists = 2102

	// ErrMemberNotFound indicates that no member matches the request.
	ErrMemberNotFound = 2103

	// ErrInvalidNickname indicates that the nickname does not satisfy the format rules.
	ErrInvalidNickname = 2201

	// ErrInvalidPassword indicates that the password does not satisfy the strength rules.
	ErrInvalidPassword = 2202

	// ErrInvalidEmail indicates that the email address is malformed.
	ErrInvalidEmail = 2203
)

// 3xxx: Session and Authentication Errors
const (
	// ErrInvalidCredential indicates a 401 on login. Never retried automatically.
	ErrInvalidCredential = 3001

	// ErrSessionExpired indicates a 401 on an authenticated call that one refresh could not fix.
	// It is the only kind that logs the user out automatically.
	ErrSessionExpired = 3002

	// ErrIncompleteProfile indicates a successful response whose profile lacks nickname or email.
	ErrIncompleteProfile = 3003

	// ErrNetwork indicates that no response was received at all.
	ErrNetwork = 3004

	// ErrCookieWriteFailure indicates that the session cookie did not round-trip after a write.
	ErrCookieWriteFailure = 3005

	// ErrUnauthorized indicates a request that needs a session but carried none, or a
	// refresh the server refused.
	ErrUnauthorized = 3006

	// ErrForbidden indicates a session that lacks the privilege for the request.
	ErrForbidden = 3007

	// ErrBearerNotAllowed indicates a request that tried to attach an Authorization header.
	ErrBearerNotAllowed = 3008

	// ErrNoSession indicates an update against a store that holds no valid session.
	ErrNoSession = 3009
)

// 4xxx: Profile Photo Errors
const (
	// ErrPhotoTypeUnsupported indicates a photo that is not PNG or JPEG.
	ErrPhotoTypeUnsupported = 4001

	// ErrPhotoTooLarge indicates a photo above the upload limit.
	ErrPhotoTooLarge = 4002

	// ErrFileStorageFailed indicates that the object storage rejected an upload or delete.
	ErrFileStorageFailed = 4003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general internal error.
	ErrUnknown = 5000
)
