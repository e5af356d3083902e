package spotify

import "fmt"

// NotAuthenticatedError means no token record exists yet. The one-time
// authorization flow ('murmur auth spotify') has to be run before any
// playback call can succeed.
type NotAuthenticatedError struct{}

func (e *NotAuthenticatedError) Error() string {
	return "spotify: not authenticated"
}

func (e *NotAuthenticatedError) UserMessage() string {
	return "Spotify isn't connected yet. Run 'murmur auth spotify' to link your account."
}

// StorageError means the token record exists but could not be read or
// parsed. Callers treat it like NotAuthenticatedError, but it is logged
// distinctly because it points at a damaged file, not a missing one.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("spotify: token store %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) UserMessage() string {
	return "Spotify isn't connected yet. Run 'murmur auth spotify' to link your account."
}

// AuthError means authentication failed after the single forced
// refresh-and-retry, or the token endpoint rejected a refresh.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("spotify: authentication failed (status %d)", e.Status)
}

func (e *AuthError) UserMessage() string {
	return "I couldn't authenticate with Spotify. You may need to run 'murmur auth spotify' again."
}

// PremiumRequiredError means the account lacks the Premium entitlement
// that playback-mutating calls require. It is kept distinct from
// AuthError so the reply can be informative instead of alarming.
type PremiumRequiredError struct{}

func (e *PremiumRequiredError) Error() string {
	return "spotify: premium required"
}

func (e *PremiumRequiredError) UserMessage() string {
	return "Spotify Premium is required to control playback. I can still tell you what's playing."
}

// NoDeviceError means no local playback device was found within the
// polling bound, or the desktop app could not be launched at all.
type NoDeviceError struct {
	Reason string
}

func (e *NoDeviceError) Error() string {
	return "spotify: no device available: " + e.Reason
}

func (e *NoDeviceError) UserMessage() string {
	return "I couldn't start a Spotify playback device."
}

// RemoteError is any other non-2xx API response. It is surfaced, never
// retried: playback errors should be heard, not masked by backoff.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("spotify: remote error %d: %s", e.Status, e.Message)
}

func (e *RemoteError) UserMessage() string {
	return "Spotify error: " + e.Message
}
