// Package pap implements a client for a Push Access Protocol (PAP) gateway.
// It builds the multipart push submission, posts it with Basic auth and
// interprets the gateway's XML response.
package pap

import (
	"slices"
	"time"
)

// Delivery methods accepted by the quality-of-service element.
const (
	DeliveryConfirmed       = "confirmed"
	DeliveryPreferConfirmed = "preferconfirmed"
	DeliveryUnconfirmed     = "unconfirmed"
	DeliveryNotSpecified    = "notspecified"
)

// Environment selects which gateway host template a Client targets.
type Environment int

const (
	Production Environment = iota
	Evaluation
)

func (e Environment) String() string {
	if e == Evaluation {
		return "evaluation"
	}
	return "production"
}

// ParseEnvironment maps a config string onto an Environment.
// The empty string means production.
func ParseEnvironment(s string) (Environment, error) {
	switch s {
	case "", "production", "prod":
		return Production, nil
	case "evaluation", "eval":
		return Evaluation, nil
	}
	return Production, &ValidationError{Field: "environment", Reason: "unknown environment " + s}
}

// Protocol holds the fixed literals of the push protocol. It is a value type;
// a Client copies it at construction and never changes it.
type Protocol struct {
	Boundary       string
	NewLine        string
	ProductionHost string
	EvaluationHost string
	PushPath       string
	DeliverBefore  time.Duration
}

// DefaultProtocol returns the literals used by the production gateway.
func DefaultProtocol() Protocol {
	return Protocol{
		Boundary:       "PMasdfglkjhqwert",
		NewLine:        "\r\n",
		ProductionHost: "pushapi.na.blackberry.com",
		EvaluationHost: "pushapi.eval.blackberry.com",
		PushPath:       "/mss/PD_pushRequest",
		DeliverBefore:  8 * time.Hour,
	}
}

var deliveryMethods = []string{
	DeliveryConfirmed,
	DeliveryPreferConfirmed,
	DeliveryUnconfirmed,
	DeliveryNotSpecified,
}

// DeliveryMethods returns the allowed delivery methods in protocol order.
func DeliveryMethods() []string {
	return slices.Clone(deliveryMethods)
}

// IsDeliveryMethod reports whether m is one of the allowed delivery methods.
func IsDeliveryMethod(m string) bool {
	return slices.Contains(deliveryMethods, m)
}

// HostSuffix returns the gateway domain for env.
func (p Protocol) HostSuffix(env Environment) string {
	if env == Evaluation {
		return p.EvaluationHost
	}
	return p.ProductionHost
}

// ContentType is the Content-Type header of a push submission.
func (p Protocol) ContentType() string {
	return "multipart/related; boundary=" + p.Boundary + "; type=application/xml"
}

// timestampLayout renders UTC times with a literal trailing Z.
const timestampLayout = "2006-01-02T15:04:05Z"

// FormatTimestamp renders t in UTC as YYYY-MM-DDThh:mm:ssZ.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
