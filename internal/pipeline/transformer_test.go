package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-pap-service/internal/pipeline"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"
)

func TestNotificationRequestTransformer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	recipient, err := urn.Parse("urn:sm:user:user-123")
	require.NoError(t, err)
	validPayload, err := json.Marshal(&notification.NotificationRequest{
		RecipientID: recipient,
		Content:     notification.NotificationContent{Title: "Hello", Body: "World"},
	})
	require.NoError(t, err)

	t.Run("Happy Path - Valid Request", func(t *testing.T) {
		msg := &messagepipeline.Message{
			MessageData: messagepipeline.MessageData{ID: "msg-1", Payload: validPayload},
		}

		req, skip, err := pipeline.NotificationRequestTransformer(ctx, msg)

		require.NoError(t, err)
		assert.False(t, skip)
		assert.Equal(t, recipient.String(), req.RecipientID.String())
		assert.Equal(t, "Hello", req.Content.Title)
	})

	t.Run("Failure - Malformed JSON", func(t *testing.T) {
		msg := &messagepipeline.Message{
			MessageData: messagepipeline.MessageData{ID: "msg-2", Payload: []byte("not-json")},
		}

		_, skip, err := pipeline.NotificationRequestTransformer(ctx, msg)

		require.Error(t, err)
		assert.True(t, skip)
		assert.Contains(t, err.Error(), "failed to unmarshal notification request from message msg-2")
	})
}
