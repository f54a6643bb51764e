// Package bb10 dispatches notifications to BlackBerry devices through a PAP
// push gateway.
package bb10

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tinywideclouds/go-pap-service/pkg/pap"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"
)

// PAP result codes the dispatcher treats specially.
const (
	codeAddressError = 2002
	// Codes from 3000 up are gateway-side failures.
	codeServerErrorFloor = 3000
)

// GatewayClient defines the subset of *pap.Client the dispatcher uses.
// This allows mocking for unit tests.
type GatewayClient interface {
	Send(ctx context.Context, msg *pap.Message) (*pap.Result, error)
}

// Config holds the per-push settings that are not gateway credentials.
type Config struct {
	// DeliveryMethod is one of pap.DeliveryMethods().
	DeliveryMethod string
	// PushIDPrefix makes push ids globally unique, e.g. "com.example.app.".
	PushIDPrefix string
}

type Dispatcher struct {
	client         GatewayClient
	deliveryMethod string
	pushIDPrefix   string
	logger         *slog.Logger
}

// pushPayload is the JSON document delivered to the device application.
type pushPayload struct {
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body,omitempty"`
	Sound string            `json:"sound,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// NewDispatcher creates a dispatcher around a gateway client.
// It fails fast on a delivery method the gateway would not accept.
func NewDispatcher(client GatewayClient, cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	method := cfg.DeliveryMethod
	if method == "" {
		method = pap.DeliveryNotSpecified
	}
	if !pap.IsDeliveryMethod(method) {
		return nil, fmt.Errorf("invalid delivery method %q", method)
	}
	return &Dispatcher{
		client:         client,
		deliveryMethod: method,
		pushIDPrefix:   cfg.PushIDPrefix,
		logger:         logger.With("component", "BB10Dispatcher"),
	}, nil
}

// Dispatch sends one push addressed to every PIN in the batch.
// Gateway-side and transport failures are returned so the message is
// redelivered; rejections of the push itself are logged and acknowledged.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	pins []string,
	content notification.NotificationContent,
	data map[string]string,
) (string, []string, error) {
	if len(pins) == 0 {
		return "skipped: no pins", nil, nil
	}

	msg, err := d.buildMessage(pins, content, data)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build push message: %w", err)
	}
	pushLogger := d.logger.With("push_id", msg.ID(), "recipients", len(pins))

	start := time.Now()
	res, err := d.client.Send(ctx, msg)
	elapsed := time.Since(start)

	if err == nil {
		recordPush(outcomeAccepted, len(pins), elapsed)
		pushLogger.Debug("Push accepted", "code", res.Code, "desc", res.Description)
		return fmt.Sprintf("accepted code:%d push_id:%s recipients:%d", res.Code, msg.ID(), len(pins)), nil, nil
	}

	var (
		gwErr    *pap.GatewayError
		tErr     *pap.TransportError
		protoErr *pap.ProtocolError
	)
	switch {
	case errors.As(err, &tErr):
		recordPush(outcomeTransportError, len(pins), elapsed)
		pushLogger.Error("PAP transport failed", "err", err)
		return "", nil, fmt.Errorf("pap transport failed: %w", err)

	case errors.As(err, &gwErr):
		if gwErr.Code == 503 || gwErr.Code >= codeServerErrorFloor {
			recordPush(outcomeUnavailable, len(pins), elapsed)
			pushLogger.Warn("PAP gateway unavailable", "code", gwErr.Code, "err", err)
			return "", nil, fmt.Errorf("pap gateway unavailable: %w", err)
		}
		// The gateway does not say which address failed, so only a single
		// recipient push can pin the blame on a PIN.
		if gwErr.Code == codeAddressError && len(pins) == 1 {
			recordPush(outcomeInvalidAddress, len(pins), elapsed)
			pushLogger.Info("PAP gateway rejected device PIN", "pin", pins[0])
			return fmt.Sprintf("invalid code:%d push_id:%s", gwErr.Code, msg.ID()), pins, nil
		}
		recordPush(outcomeRejected, len(pins), elapsed)
		pushLogger.Warn("PAP gateway rejected push (dropping)", "code", gwErr.Code, "desc", gwErr.Message)
		return fmt.Sprintf("rejected code:%d push_id:%s", gwErr.Code, msg.ID()), nil, nil

	case errors.As(err, &protoErr):
		recordPush(outcomeProtocolError, len(pins), elapsed)
		pushLogger.Error("PAP gateway response unreadable (dropping)", "err", err)
		return "skipped: unreadable gateway response", nil, nil
	}

	return "", nil, fmt.Errorf("pap push failed: %w", err)
}

func (d *Dispatcher) buildMessage(pins []string, content notification.NotificationContent, data map[string]string) (*pap.Message, error) {
	body, err := json.Marshal(pushPayload{
		Title: content.Title,
		Body:  content.Body,
		Sound: content.Sound,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg, err := pap.NewMessage(d.pushIDPrefix+uuid.NewString(), string(body))
	if err != nil {
		return nil, err
	}
	if err := msg.SetDeliveryMethod(d.deliveryMethod); err != nil {
		return nil, err
	}
	if err := msg.AddAllRecipients(pins); err != nil {
		return nil, err
	}
	return msg, nil
}
