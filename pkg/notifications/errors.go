package notifications

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification record is not found.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrPolicyNotFound is returned by PolicyStore.Get when no policy exists for
	// an event key. Callers resolving channels treat it as "use defaults", not
	// as a failure.
	ErrPolicyNotFound = errors.New("channel policy not found")

	// ErrPreferenceNotFound is returned by PreferenceStore.Get when no entry
	// exists for a (user, type, channel) key. Resolution treats it as enabled.
	ErrPreferenceNotFound = errors.New("preference not found")

	// ErrInvalidPolicy is returned when a policy fails validation on Upsert.
	ErrInvalidPolicy = errors.New("invalid channel policy")

	// ErrInvalidPreference is returned when a preference entry fails validation.
	ErrInvalidPreference = errors.New("invalid preference entry")

	// ErrInvalidNotification is returned when a record fails validation on Create.
	ErrInvalidNotification = errors.New("invalid notification")

	// ErrTokenRequired is returned when a device token operation is missing the token.
	ErrTokenRequired = errors.New("device token is required")

	// ErrUserIDRequired is returned when an operation is missing the user ID.
	ErrUserIDRequired = errors.New("user ID is required")
)
