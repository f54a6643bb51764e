//go:build integration

package firestore_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/go-test/emulators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fs "github.com/tinywideclouds/go-pap-service/internal/storage/firestore"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

func setupSuite(t *testing.T) (context.Context, *fs.FirestoreStore) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	projectID := "test-pin-store"
	conn := emulators.SetupFirestoreEmulator(t, ctx, emulators.GetDefaultFirestoreConfig(projectID))
	client, err := firestore.NewClient(ctx, projectID, conn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return ctx, fs.NewFirestoreStore(client)
}

func TestTokenStore_Integration(t *testing.T) {
	ctx, store := setupSuite(t)

	t.Run("PIN Registration Lifecycle", func(t *testing.T) {
		userURN, _ := urn.Parse("urn:contacts:user:lifecycle-user")
		pin := "2100000A"

		// 1. Register
		require.NoError(t, store.Register(ctx, userURN, pin))

		// 2. Fetch and Verify
		pins, err := store.Fetch(ctx, userURN)
		require.NoError(t, err)
		assert.Equal(t, []string{pin}, pins)

		// 3. Unregister
		require.NoError(t, store.Unregister(ctx, userURN, pin))

		// 4. Verify Gone
		pins, err = store.Fetch(ctx, userURN)
		require.NoError(t, err)
		assert.Empty(t, pins)
	})

	t.Run("Register is an upsert", func(t *testing.T) {
		userURN, _ := urn.Parse("urn:contacts:user:upsert-user")

		require.NoError(t, store.Register(ctx, userURN, "2100000B"))
		require.NoError(t, store.Register(ctx, userURN, "2100000B"))
		require.NoError(t, store.Register(ctx, userURN, "2100000C"))

		pins, err := store.Fetch(ctx, userURN)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"2100000B", "2100000C"}, pins)
	})

	t.Run("Unregister unknown PIN is not an error", func(t *testing.T) {
		userURN, _ := urn.Parse("urn:contacts:user:nobody")
		assert.NoError(t, store.Unregister(ctx, userURN, "FFFFFFFF"))
	})
}
