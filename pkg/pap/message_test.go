package pap_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-pap-service/pkg/pap"
)

func crlf(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

func expectedPayload(deliveryMethod string, recipients ...string) string {
	lines := []string{
		"--PMasdfglkjhqwert",
		"Content-Type: application/xml; charset=UTF-8",
		"",
		`<?xml version="1.0"?>`,
		`<!DOCTYPE pap PUBLIC "-//WAPFORUM//DTD PAP 2.1//EN" "http://www.openmobilealliance.org/tech/DTD/pap_2.1.dtd">`,
		"<pap>",
		`    <push-message push-id="test-id" source-reference="applicationID" deliver-before-timestamp="2015-05-21T12:00:00Z">`,
	}
	for _, r := range recipients {
		lines = append(lines, `        <address address-value="`+r+`" />`)
	}
	lines = append(lines,
		`        <quality-of-service delivery-method="`+deliveryMethod+`" />`,
		"    </push-message>",
		"</pap>",
		"--PMasdfglkjhqwert",
		"Content-Encoding: binary",
		"Content-Type: text/html",
		"Push-Message-ID: test-id",
		"",
		"Message content",
		"",
		"--PMasdfglkjhqwert--",
	)
	return crlf(lines...)
}

var testAttributes = []pap.Attribute{
	{Name: "source-reference", Value: "applicationID"},
	{Name: "deliver-before-timestamp", Value: "2015-05-21T12:00:00Z"},
}

func TestNewMessage(t *testing.T) {
	t.Run("Rejects empty id", func(t *testing.T) {
		for _, id := range []string{"", "   ", "\t\n"} {
			_, err := pap.NewMessage(id)
			var vErr *pap.ValidationError
			require.ErrorAs(t, err, &vErr, "id %q", id)
			assert.Equal(t, "id", vErr.Field)
		}
	})

	t.Run("Trims id", func(t *testing.T) {
		msg, err := pap.NewMessage("    test-id     ")
		require.NoError(t, err)
		assert.Equal(t, "test-id", msg.ID())
	})

	t.Run("Defaults", func(t *testing.T) {
		msg, err := pap.NewMessage("test-id")
		require.NoError(t, err)
		assert.Equal(t, "", msg.Body())
		assert.Equal(t, pap.DeliveryNotSpecified, msg.DeliveryMethod())
		assert.Empty(t, msg.Recipients())
	})

	t.Run("Sets body when provided", func(t *testing.T) {
		msg, err := pap.NewMessage("test-id", "Hello World")
		require.NoError(t, err)
		assert.Equal(t, "Hello World", msg.Body())
	})
}

func TestMessage_SetBody(t *testing.T) {
	msg, err := pap.NewMessage("test-id", "first")
	require.NoError(t, err)

	msg.SetBody("hello message")
	assert.Equal(t, "hello message", msg.Body())

	msg.SetBody("")
	assert.Equal(t, "", msg.Body())
}

func TestMessage_SetDeliveryMethod(t *testing.T) {
	msg, err := pap.NewMessage("test-id")
	require.NoError(t, err)

	for _, m := range pap.DeliveryMethods() {
		require.NoError(t, msg.SetDeliveryMethod(m))
		assert.Equal(t, m, msg.DeliveryMethod())
	}

	require.NoError(t, msg.SetDeliveryMethod(pap.DeliveryUnconfirmed))
	err = msg.SetDeliveryMethod("unknownmethod")
	var vErr *pap.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "preferconfirmed")
	assert.Equal(t, pap.DeliveryUnconfirmed, msg.DeliveryMethod(), "rejected value must not replace the current one")
}

func TestMessage_Recipients(t *testing.T) {
	t.Run("AddRecipient is idempotent", func(t *testing.T) {
		msg, _ := pap.NewMessage("test-id")
		msg.AddRecipient("FFFFFFFF")
		msg.AddRecipient("FFFFFFFF")
		assert.Equal(t, []string{"FFFFFFFF"}, msg.Recipients())
	})

	t.Run("AddRecipient keeps insertion order", func(t *testing.T) {
		msg, _ := pap.NewMessage("test-id")
		msg.AddRecipient("FFFFFFF")
		msg.AddRecipient("AAAAAAA")
		assert.Equal(t, []string{"FFFFFFF", "AAAAAAA"}, msg.Recipients())
	})

	t.Run("AddAllRecipients dedups within and across calls", func(t *testing.T) {
		msg, _ := pap.NewMessage("test-id")
		msg.AddRecipient("BBBBBBBB")
		require.NoError(t, msg.AddAllRecipients([]string{"AAAAAAAA", "BBBBBBBB", "AAAAAAAA", "CCCCCCCC"}))
		assert.Equal(t, []string{"BBBBBBBB", "AAAAAAAA", "CCCCCCCC"}, msg.Recipients())
	})

	t.Run("AddAllRecipients rejects nil", func(t *testing.T) {
		msg, _ := pap.NewMessage("test-id")
		err := msg.AddAllRecipients(nil)
		var vErr *pap.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Empty(t, msg.Recipients())
	})

	t.Run("AddAllRecipients accepts an empty list", func(t *testing.T) {
		msg, _ := pap.NewMessage("test-id")
		require.NoError(t, msg.AddAllRecipients([]string{}))
		assert.Empty(t, msg.Recipients())
	})

	t.Run("ClearRecipients keeps body and delivery method", func(t *testing.T) {
		msg, _ := pap.NewMessage("test-id", "body")
		require.NoError(t, msg.SetDeliveryMethod(pap.DeliveryConfirmed))
		msg.AddRecipient("AAAAAAAA")
		msg.ClearRecipients()
		assert.Empty(t, msg.Recipients())
		assert.Equal(t, "body", msg.Body())
		assert.Equal(t, pap.DeliveryConfirmed, msg.DeliveryMethod())
	})

	t.Run("Recipients returns a copy", func(t *testing.T) {
		msg, _ := pap.NewMessage("test-id")
		msg.AddRecipient("AAAAAAAA")
		r := msg.Recipients()
		r[0] = "changed"
		assert.Equal(t, []string{"AAAAAAAA"}, msg.Recipients())
	})
}

func TestMessage_Serialize(t *testing.T) {
	proto := pap.DefaultProtocol()

	newMessage := func(t *testing.T) *pap.Message {
		t.Helper()
		msg, err := pap.NewMessage("test-id", "Message content")
		require.NoError(t, err)
		return msg
	}

	t.Run("Fails without recipients", func(t *testing.T) {
		msg := newMessage(t)
		_, err := msg.Serialize(proto, testAttributes)
		var vErr *pap.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "recipients", vErr.Field)

		msg.AddRecipient("AAAAAAAA")
		msg.ClearRecipients()
		_, err = msg.Serialize(proto, testAttributes)
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("Single recipient matches wire format", func(t *testing.T) {
		msg := newMessage(t)
		msg.AddRecipient("AAAAAAAA")

		got, err := msg.Serialize(proto, testAttributes)
		require.NoError(t, err)
		if diff := cmp.Diff(expectedPayload("notspecified", "AAAAAAAA"), string(got)); diff != "" {
			t.Errorf("payload mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Two recipients in insertion order", func(t *testing.T) {
		msg := newMessage(t)
		require.NoError(t, msg.AddAllRecipients([]string{"AAAAAAAA", "FFFFFFFF"}))

		got, err := msg.Serialize(proto, testAttributes)
		require.NoError(t, err)
		if diff := cmp.Diff(expectedPayload("notspecified", "AAAAAAAA", "FFFFFFFF"), string(got)); diff != "" {
			t.Errorf("payload mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Delivery method only changes quality-of-service", func(t *testing.T) {
		msg := newMessage(t)
		msg.AddRecipient("AAAAAAAA")
		before, err := msg.Serialize(proto, testAttributes)
		require.NoError(t, err)

		require.NoError(t, msg.SetDeliveryMethod(pap.DeliveryUnconfirmed))
		after, err := msg.Serialize(proto, testAttributes)
		require.NoError(t, err)

		assert.Equal(t, expectedPayload("unconfirmed", "AAAAAAAA"), string(after))
		assert.Equal(t,
			strings.Replace(string(before), `delivery-method="notspecified"`, `delivery-method="unconfirmed"`, 1),
			string(after))
	})

	t.Run("Deterministic", func(t *testing.T) {
		msg := newMessage(t)
		msg.AddRecipient("AAAAAAAA")
		first, err := msg.Serialize(proto, testAttributes)
		require.NoError(t, err)
		second, err := msg.Serialize(proto, testAttributes)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Push-id attribute is written once", func(t *testing.T) {
		msg := newMessage(t)
		msg.AddRecipient("AAAAAAAA")
		attrs := append([]pap.Attribute{{Name: "push-id", Value: "test-id"}}, testAttributes...)

		got, err := msg.Serialize(proto, attrs)
		require.NoError(t, err)
		assert.Equal(t, expectedPayload("notspecified", "AAAAAAAA"), string(got))
		assert.Equal(t, 1, strings.Count(string(got), "push-id="))
	})

	t.Run("Attributes keep caller order", func(t *testing.T) {
		msg := newMessage(t)
		msg.AddRecipient("AAAAAAAA")
		got, err := msg.Serialize(proto, []pap.Attribute{
			{Name: "b", Value: "2"},
			{Name: "a", Value: "1"},
		})
		require.NoError(t, err)
		assert.Contains(t, string(got), `<push-message push-id="test-id" b="2" a="1">`)
	})
}
