package pap

import (
	"bytes"
	"slices"
	"strings"
)

// Attribute is one extra attribute on the push-message element.
type Attribute struct {
	Name  string
	Value string
}

// Message is a single outbound push. It is a value object: build it, mutate it
// and hand it to a Client once. It is not safe for concurrent mutation.
type Message struct {
	id             string
	body           string
	deliveryMethod string
	recipients     []string
}

// NewMessage creates a message with the given id and optional body. The id is
// trimmed and must not be empty; it should be globally unique, typically a
// reverse-domain application name plus a unique suffix.
func NewMessage(id string, body ...string) (*Message, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ValidationError{Field: "id", Reason: "a message id is required"}
	}
	m := &Message{
		id:             id,
		deliveryMethod: DeliveryNotSpecified,
		recipients:     []string{},
	}
	if len(body) > 0 {
		m.SetBody(body[0])
	}
	return m, nil
}

func (m *Message) ID() string             { return m.id }
func (m *Message) Body() string           { return m.body }
func (m *Message) DeliveryMethod() string { return m.deliveryMethod }

// Recipients returns the recipient tokens in insertion order.
func (m *Message) Recipients() []string { return slices.Clone(m.recipients) }

// SetBody replaces the body. The body is sent verbatim.
func (m *Message) SetBody(body string) {
	m.body = body
}

// SetDeliveryMethod sets the over-the-air delivery the gateway should use.
func (m *Message) SetDeliveryMethod(method string) error {
	if !IsDeliveryMethod(method) {
		return &ValidationError{
			Field:  "delivery method",
			Reason: "must be one of " + strings.Join(deliveryMethods, ", "),
		}
	}
	m.deliveryMethod = method
	return nil
}

// AddRecipient appends token unless it is already present.
func (m *Message) AddRecipient(token string) {
	if !slices.Contains(m.recipients, token) {
		m.recipients = append(m.recipients, token)
	}
}

// AddAllRecipients adds each token in order with the same dedup rule as
// AddRecipient. A nil slice is rejected.
func (m *Message) AddAllRecipients(tokens []string) error {
	if tokens == nil {
		return &ValidationError{Field: "recipients", Reason: "a list of tokens is required"}
	}
	for _, t := range tokens {
		m.AddRecipient(t)
	}
	return nil
}

// ClearRecipients removes every recipient. Body and delivery method are kept.
func (m *Message) ClearRecipients() {
	m.recipients = []string{}
}

// Serialize renders the two-part multipart/related payload: the PAP control
// document followed by the body. attrs are emitted on push-message in the
// given order after push-id; a push-id entry in attrs is skipped because the
// message id is always written first.
func (m *Message) Serialize(p Protocol, attrs []Attribute) ([]byte, error) {
	if len(m.recipients) == 0 {
		return nil, &ValidationError{Field: "recipients", Reason: "add at least one recipient before serializing"}
	}

	nl := p.NewLine
	var b bytes.Buffer
	line := func(parts ...string) {
		for _, s := range parts {
			b.WriteString(s)
		}
		b.WriteString(nl)
	}

	line("--", p.Boundary)
	line("Content-Type: application/xml; charset=UTF-8")
	line()
	line(`<?xml version="1.0"?>`)
	line(`<!DOCTYPE pap PUBLIC "-//WAPFORUM//DTD PAP 2.1//EN" "http://www.openmobilealliance.org/tech/DTD/pap_2.1.dtd">`)
	line("<pap>")

	b.WriteString(`    <push-message push-id="`)
	b.WriteString(m.id)
	b.WriteByte('"')
	for _, a := range attrs {
		if a.Name == "push-id" {
			continue
		}
		b.WriteString(" ")
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(a.Value)
		b.WriteByte('"')
	}
	line(">")

	for _, r := range m.recipients {
		line(`        <address address-value="`, r, `" />`)
	}
	line(`        <quality-of-service delivery-method="`, m.deliveryMethod, `" />`)
	line("    </push-message>")
	line("</pap>")
	line("--", p.Boundary)
	line("Content-Encoding: binary")
	line("Content-Type: text/html")
	line("Push-Message-ID: ", m.id)
	line()
	line(m.body)
	line()
	line("--", p.Boundary, "--")

	return b.Bytes(), nil
}
