package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// FirestoreStore implements TokenStore using Google Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// deviceRecord is the internal DB representation of one registered device.
type deviceRecord struct {
	Platform  string    `firestore:"platform"`
	PIN       string    `firestore:"pin"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (s *FirestoreStore) Register(ctx context.Context, user urn.URN, pin string) error {
	// Use hash of PIN as Doc ID to prevent duplicates and hot-spotting
	record := deviceRecord{
		Platform:  "bb10",
		PIN:       pin,
		UpdatedAt: time.Now(),
	}

	if _, err := s.deviceRef(user, hashPIN(pin)).Set(ctx, record); err != nil {
		return fmt.Errorf("failed to register pin: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Unregister(ctx context.Context, user urn.URN, pin string) error {
	_, err := s.deviceRef(user, hashPIN(pin)).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to unregister pin: %w", err)
	}
	return nil
}

// Fetch returns the PINs of every device registered for the user.
func (s *FirestoreStore) Fetch(ctx context.Context, user urn.URN) ([]string, error) {
	iter := s.devicesCollection(user).Documents(ctx)
	defer iter.Stop()

	pins := make([]string, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record deviceRecord
		if err := doc.DataTo(&record); err != nil {
			// Skip corrupt rows rather than failing the whole fan-out.
			continue
		}
		if record.PIN != "" {
			pins = append(pins, record.PIN)
		}
	}

	return pins, nil
}

// deviceRef: users/{userID}/devices/{pinHash}
func (s *FirestoreStore) deviceRef(user urn.URN, docID string) *firestore.DocumentRef {
	return s.devicesCollection(user).Doc(docID)
}

func (s *FirestoreStore) devicesCollection(user urn.URN) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(user.String()).Collection("devices")
}

func hashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}
