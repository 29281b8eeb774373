package schema

import "errors"

var (
	// ErrNoActiveTab indicates the host reported no active tab.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrActiveTabMissing indicates the active tab is absent from the fetched tree.
	ErrActiveTabMissing = errors.New("active tab not in tree")
	// ErrInvalidRequest indicates a malformed request or response payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTabNotFound indicates the provider no longer knows the tab.
	ErrTabNotFound = errors.New("tab not found")
	// ErrProviderClosed indicates the provider connection is gone.
	ErrProviderClosed = errors.New("provider closed")
	// ErrInvalidScope indicates an unusable tree scope.
	ErrInvalidScope = errors.New("invalid scope")
)
