package pap

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxResponseBytes bounds how much of a gateway response is read.
const maxResponseBytes = 1 << 20

// HTTPDoer is the subset of *http.Client the Client uses.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is a push the gateway accepted.
type Result struct {
	HTTPStatus  int
	Code        int
	Description string
	PushID      string
	ReplyTime   string
}

// Client submits messages to a PAP gateway. It is immutable after
// construction and safe for concurrent use.
type Client struct {
	senderID          string
	authToken         string
	contentProviderID string
	environment       Environment
	protocol          Protocol
	httpClient        HTTPDoer
	endpoint          string
	now               func() time.Time
	logger            *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEnvironment selects the production or evaluation gateway.
func WithEnvironment(env Environment) Option {
	return func(c *Client) { c.environment = env }
}

// WithProtocol replaces the protocol literals.
func WithProtocol(p Protocol) Option {
	return func(c *Client) { c.protocol = p }
}

// WithHTTPClient sets the HTTP client used for submissions.
func WithHTTPClient(h HTTPDoer) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithEndpoint overrides the scheme and host of the gateway, e.g. for a proxy
// or a test server. The protocol's push path is appended.
func WithEndpoint(baseURL string) Option {
	return func(c *Client) { c.endpoint = strings.TrimSuffix(baseURL, "/") }
}

// WithClock sets the time source used for the deliver-before timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a gateway client for the sender (application id) and
// password issued by the gateway operator and the content provider id that
// names the gateway host.
func NewClient(senderID, secret, contentProviderID string, opts ...Option) (*Client, error) {
	if senderID == "" {
		return nil, &ValidationError{Field: "sender id", Reason: "a sender id is required"}
	}
	if contentProviderID == "" {
		return nil, &ValidationError{Field: "content provider id", Reason: "a content provider id is required"}
	}

	c := &Client{
		senderID:          senderID,
		authToken:         base64.StdEncoding.EncodeToString([]byte(senderID + ":" + secret)),
		contentProviderID: contentProviderID,
		environment:       Production,
		protocol:          DefaultProtocol(),
		httpClient:        http.DefaultClient,
		now:               time.Now,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.endpoint == "" {
		c.endpoint = "https://" + c.Host()
	}
	c.endpoint += c.protocol.PushPath
	c.logger = c.logger.With("component", "PAPClient", "host", c.Host())

	return c, nil
}

// Host is the gateway host name for this client's content provider and
// environment. Requests go to port 443 unless WithEndpoint says otherwise.
func (c *Client) Host() string {
	return "cp" + c.contentProviderID + "." + c.protocol.HostSuffix(c.environment)
}

// Environment returns the gateway environment this client targets.
func (c *Client) Environment() Environment { return c.environment }

// Send submits msg and waits for the gateway's answer. Errors are one of
// *ValidationError, *TransportError, *GatewayError or *ProtocolError.
func (c *Client) Send(ctx context.Context, msg *Message) (*Result, error) {
	body, err := c.serialize(msg)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, msg.ID(), body)
}

// Push submits msg without blocking the caller. The message is serialized
// before Push returns, so the caller may reuse it afterwards. callback is
// invoked exactly once: immediately for a validation failure, otherwise from a
// separate goroutine when the exchange completes.
func (c *Client) Push(ctx context.Context, msg *Message, callback func(*Result, error)) {
	body, err := c.serialize(msg)
	if err != nil {
		callback(nil, err)
		return
	}
	pushID := msg.ID()
	go func() {
		callback(c.post(ctx, pushID, body))
	}()
}

func (c *Client) serialize(msg *Message) ([]byte, error) {
	deliverBefore := FormatTimestamp(c.now().Add(c.protocol.DeliverBefore))
	return msg.Serialize(c.protocol, []Attribute{
		{Name: "push-id", Value: msg.ID()},
		{Name: "source-reference", Value: c.senderID},
		{Name: "deliver-before-timestamp", Value: deliverBefore},
	})
}

func (c *Client) post(ctx context.Context, pushID string, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", c.protocol.ContentType())
	req.Header.Set("Authorization", "Basic "+c.authToken)

	c.logger.Debug("Submitting push", "push_id", pushID, "bytes", len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Push transport failed", "push_id", pushID, "err", err)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if gwErr := statusError(resp.StatusCode); gwErr != nil {
		c.logger.Warn("Gateway rejected push", "push_id", pushID, "status", resp.StatusCode)
		return nil, gwErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	result, err := parseResponse(resp.StatusCode, data)
	if err != nil {
		c.logger.Warn("Push not accepted", "push_id", pushID, "status", resp.StatusCode, "err", err)
		return nil, err
	}
	c.logger.Debug("Push accepted", "push_id", pushID, "code", result.Code)
	return result, nil
}

// statusError classifies the HTTP statuses that end an exchange without
// looking at the body.
func statusError(status int) error {
	switch status {
	case http.StatusBadRequest:
		return &GatewayError{Code: status, Message: "malformed request"}
	case http.StatusNotFound:
		return &GatewayError{Code: status, Message: "endpoint or content provider not found"}
	case http.StatusMethodNotAllowed:
		return &GatewayError{Code: status, Message: "method not allowed"}
	case http.StatusServiceUnavailable:
		return &GatewayError{Code: status, Message: "service temporarily unavailable"}
	}
	return nil
}

type papResponse struct {
	XMLName      xml.Name            `xml:"pap"`
	PushResponse *pushResponse       `xml:"push-response"`
	BadMessage   *badMessageResponse `xml:"badmessage-response"`
}

type pushResponse struct {
	PushID    string          `xml:"push-id,attr"`
	ReplyTime string          `xml:"reply-time,attr"`
	Result    *responseResult `xml:"response-result"`
}

type responseResult struct {
	Code string `xml:"code,attr"`
	Desc string `xml:"desc,attr"`
}

type badMessageResponse struct {
	Code     string `xml:"code,attr"`
	Desc     string `xml:"desc,attr"`
	Fragment string `xml:"bad-message-fragment,attr"`
}

func parseResponse(status int, data []byte) (*Result, error) {
	var doc papResponse
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ProtocolError{Reason: "body is not a pap document", Err: err}
	}

	switch {
	case doc.PushResponse != nil && doc.PushResponse.Result != nil:
		code, err := strconv.Atoi(strings.TrimSpace(doc.PushResponse.Result.Code))
		if err != nil {
			return nil, &ProtocolError{Reason: "response-result code is not numeric", Err: err}
		}
		return &Result{
			HTTPStatus:  status,
			Code:        code,
			Description: doc.PushResponse.Result.Desc,
			PushID:      doc.PushResponse.PushID,
			ReplyTime:   doc.PushResponse.ReplyTime,
		}, nil
	case doc.BadMessage != nil:
		code, err := strconv.Atoi(strings.TrimSpace(doc.BadMessage.Code))
		if err != nil {
			return nil, &ProtocolError{Reason: "badmessage-response code is not numeric", Err: err}
		}
		return nil, &GatewayError{Code: code, Message: doc.BadMessage.Desc}
	}
	return nil, &ProtocolError{Reason: "neither push-response nor badmessage-response present"}
}
