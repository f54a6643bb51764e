// Package dispatch defines the contracts between the notification pipeline,
// the push gateway and device registration storage.
package dispatch

import (
	"context"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"
)

// Dispatcher defines the contract for a component that can send a notification
// to a batch of device PINs through a push gateway.
type Dispatcher interface {
	// Dispatch returns a human-readable receipt and the PINs the gateway
	// reported as unusable. A non-nil error means the batch may be retried.
	Dispatch(ctx context.Context, pins []string, content notification.NotificationContent, data map[string]string) (string, []string, error)
}

// TokenStore defines the contract for managing user device PINs.
// It allows the service to remember "where" to send notifications for a user.
type TokenStore interface {
	// Register adds or refreshes a device PIN for a user. Re-registering is an upsert.
	Register(ctx context.Context, user urn.URN, pin string) error

	// Unregister removes a device PIN. Removing an unknown PIN is not an error.
	Unregister(ctx context.Context, user urn.URN, pin string) error

	// Fetch returns every PIN registered for the user.
	Fetch(ctx context.Context, user urn.URN) ([]string, error)
}
