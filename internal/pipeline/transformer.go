// Package pipeline contains the core message processing components for the service.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"
)

// NotificationRequestTransformer unmarshals a raw Pub/Sub payload into a
// notification.NotificationRequest. The request type validates itself during
// unmarshalling (URN parsing included).
//
// Malformed payloads are returned with skip=true so the StreamingService
// nacks them and they end up on the dead-letter topic.
func NotificationRequestTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*notification.NotificationRequest, bool, error) {
	var req notification.NotificationRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal notification request from message %s: %w", msg.ID, err)
	}
	return &req, false, nil
}
