package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-pap-service/pkg/dispatch"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"
)

// NewProcessor creates the stage that resolves a recipient's device PINs and
// pushes the notification to them through the gateway dispatcher.
func NewProcessor(
	dispatcher dispatch.Dispatcher,
	tokenStore dispatch.TokenStore,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[notification.NotificationRequest] {

	return func(ctx context.Context, original messagepipeline.Message, request *notification.NotificationRequest) error {
		procLogger := logger.With(
			"recipient_id", request.RecipientID.String(),
			"pubsub_msg_id", original.ID,
		)

		// 1. Fan-Out: the event carries content, the store knows the devices.
		pins, err := tokenStore.Fetch(ctx, request.RecipientID)
		if err != nil {
			procLogger.Error("Failed to fetch device PINs", "err", err)
			return err
		}

		if len(pins) == 0 {
			procLogger.Info("No devices registered for user; dropping notification.")
			return nil
		}

		// 2. Push
		receipt, invalidPINs, err := dispatcher.Dispatch(ctx, pins, request.Content, request.DataPayload)

		// 3. Self-Healing: the gateway told us which devices are gone.
		if len(invalidPINs) > 0 {
			procLogger.Info("Cleaning up invalid device PINs", "count", len(invalidPINs))
			for _, pin := range invalidPINs {
				if err := tokenStore.Unregister(ctx, request.RecipientID, pin); err != nil {
					procLogger.Warn("Failed to delete device PIN", "pin", pin, "err", err)
				}
			}
		}

		if err != nil {
			procLogger.Error("PAP Dispatch failed", "err", err)
			return err // Retryable
		}
		procLogger.Info("PAP Dispatched", "receipt", receipt)
		return nil
	}
}
