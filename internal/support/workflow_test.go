package support

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
)

type fakeStore struct {
	err     error
	created []*models.SupportMessage
}

func (s *fakeStore) Create(_ context.Context, m *models.SupportMessage) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, m)
	return nil
}

func inboundEvent(subject, text string) InboundEvent {
	return InboundEvent{
		Type: EventEmailReceived,
		Data: InboundEmail{
			EmailID: "em_123",
			From:    "Jane Doe <jane@example.com>",
			Subject: subject,
			Text:    text,
			HTML:    "<p>" + text + "</p>",
		},
	}
}

func TestSenderName(t *testing.T) {
	assert.Equal(t, "Jane Doe", SenderName("Jane Doe <jane@example.com>"))
	assert.Equal(t, "jane@example.com", SenderName("jane@example.com"))
	assert.Equal(t, "not an address at all", SenderName("not an address at all"))
	assert.Equal(t, "O'Brien, Pat", SenderName(`"O'Brien, Pat" <pat@example.com>`))
}

func TestExtractRegistrationNumber(t *testing.T) {
	t.Run("subject wins over body", func(t *testing.T) {
		n := ExtractRegistrationNumber("Re: WCU-00042 question", "mentions WCU-00099")
		require.NotNil(t, n)
		assert.Equal(t, "WCU-00042", *n)
	})

	t.Run("body used when subject has none", func(t *testing.T) {
		n := ExtractRegistrationNumber("a question", "my dog is WCU-00099 thanks")
		require.NotNil(t, n)
		assert.Equal(t, "WCU-00099", *n)
	})

	t.Run("case-insensitive, normalized to upper", func(t *testing.T) {
		n := ExtractRegistrationNumber("about wcu-00007", "")
		require.NotNil(t, n)
		assert.Equal(t, "WCU-00007", *n)
	})

	t.Run("absent when no match", func(t *testing.T) {
		assert.Nil(t, ExtractRegistrationNumber("hello", "no number here"))
	})

	t.Run("requires exactly five digits", func(t *testing.T) {
		assert.Nil(t, ExtractRegistrationNumber("WCU-0042", ""))
		assert.Nil(t, ExtractRegistrationNumber("WCU-000421", ""))
	})
}

func TestHandleInboundStoresUnreadMessage(t *testing.T) {
	store := &fakeStore{}
	w := NewWorkflow(store, nil)

	ev := inboundEvent("Re: WCU-00042 question", "mentions WCU-00099")
	raw, _ := json.Marshal(ev)

	msg, handled, err := w.HandleInbound(context.Background(), ev, raw)
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, store.created, 1)

	assert.Equal(t, "em_123", msg.ProviderEmailID)
	assert.Equal(t, "Jane Doe <jane@example.com>", msg.FromAddress)
	assert.Equal(t, "Jane Doe", msg.FromName)
	assert.Equal(t, models.SupportMessageStatusUnread, msg.Status)
	require.NotNil(t, msg.RegistrationNumber)
	assert.Equal(t, "WCU-00042", *msg.RegistrationNumber)
	assert.JSONEq(t, string(raw), string(msg.RawPayload))
}

func TestHandleInboundStoresMessageWithoutNumber(t *testing.T) {
	store := &fakeStore{}
	w := NewWorkflow(store, nil)

	ev := inboundEvent("hello", "no reference")
	msg, handled, err := w.HandleInbound(context.Background(), ev, nil)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Nil(t, msg.RegistrationNumber, "message is still created with no extracted number")
	require.Len(t, store.created, 1)
}

func TestHandleInboundFallsBackToLegacyID(t *testing.T) {
	store := &fakeStore{}
	w := NewWorkflow(store, nil)

	ev := inboundEvent("hi", "body")
	ev.Data.EmailID = ""
	ev.Data.ID = "legacy_9"
	msg, _, err := w.HandleInbound(context.Background(), ev, nil)
	require.NoError(t, err)
	assert.Equal(t, "legacy_9", msg.ProviderEmailID)
}

func TestHandleInboundIgnoresOtherEventTypes(t *testing.T) {
	store := &fakeStore{}
	w := NewWorkflow(store, nil)

	ev := inboundEvent("x", "y")
	ev.Type = "email.delivered"
	msg, handled, err := w.HandleInbound(context.Background(), ev, nil)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Nil(t, msg)
	assert.Empty(t, store.created)
}

func TestHandleInboundPersistFailureIsRetryable(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	w := NewWorkflow(store, nil)

	_, handled, err := w.HandleInbound(context.Background(), inboundEvent("x", "y"), nil)
	assert.True(t, handled)
	require.Error(t, err)
}
