/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed (missing or malformed fields).
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the per-IP request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrNotFound indicates that the requested resource does not exist.
	ErrNotFound = 1008

	// ErrFeatureDisabled indicates that the endpoint belongs to a feature switched off in this edition.
	ErrFeatureDisabled = 1009
)

// 2xxx: Message and Content Business Logic Errors
const (
	// ErrMessageContentTooLong indicates that the message text exceeded the configured length cap.
	ErrMessageContentTooLong = 2201

	// ErrSendRateLimited indicates that the user sent too many messages inside the rate window.
	ErrSendRateLimited = 2202

	// ErrQueryTooShort indicates that a user search query is shorter than the minimum length.
	ErrQueryTooShort = 2301

	// ErrFileSizeTooLarge indicates that an uploaded image exceeds the size limit.
	ErrFileSizeTooLarge = 2401

	// ErrFileTypeInvalid indicates that an uploaded file is not an accepted image type.
	ErrFileTypeInvalid = 2402
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrPowChallengeRequired indicates the client must complete a Proof-of-Work challenge first.
	ErrPowChallengeRequired = 3001

	// ErrPowChallengeInvalid indicates that the PoW proof provided by the client is invalid or incorrect.
	ErrPowChallengeInvalid = 3002

	// ErrUnauthorized indicates a missing token, or a token that does not belong to the user.
	ErrUnauthorized = 3005
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates that the blob store rejected or failed an upload.
	ErrFileStorageFailed = 5001
)
