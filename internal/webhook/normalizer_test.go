package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waweb/internal/message"
)

func rawMessage(id, msgType string) RawMessage {
	return RawMessage{
		ID:        id,
		From:      "919876543210",
		Timestamp: "1700000000",
		Type:      msgType,
	}
}

func payloadWithMessages(msgs ...RawMessage) *Payload {
	return &Payload{
		Entry: []Entry{{
			Changes: []Change{{
				Field: "messages",
				Value: &ChangeValue{Messages: msgs},
			}},
		}},
	}
}

func TestNormalize_TextMessage(t *testing.T) {
	raw := rawMessage("m1", "text")
	raw.From = "91900000001"
	raw.Text = &TextContent{Body: "hi"}

	events := Normalize(payloadWithMessages(raw))
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Message)

	ev := events[0].Message
	assert.Equal(t, "m1", ev.ExternalID)
	assert.Equal(t, "91900000001", ev.ConversationID)
	assert.Equal(t, "91900000001", ev.DisplayName)
	assert.Equal(t, message.KindText, ev.Kind)
	assert.Equal(t, "hi", ev.Body)
	assert.Equal(t, time.UnixMilli(1700000000000), ev.OccurredAt)
}

func TestNormalize_KindDispatch(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawMessage
		wantKind message.Kind
		wantBody string
	}{
		{
			name: "text without body",
			raw:  rawMessage("m1", "text"),
			// an empty body is the one allowed exception to non-empty rendering
			wantKind: message.KindText,
			wantBody: "",
		},
		{
			name: "image with caption",
			raw: func() RawMessage {
				m := rawMessage("m2", "image")
				m.Image = &MediaContent{ID: "media-1", MimeType: "image/jpeg", Caption: "sunset"}
				return m
			}(),
			wantKind: message.KindImage,
			wantBody: "sunset",
		},
		{
			name: "image without caption",
			raw: func() RawMessage {
				m := rawMessage("m3", "image")
				m.Image = &MediaContent{ID: "media-2"}
				return m
			}(),
			wantKind: message.KindImage,
			wantBody: "📷 Image",
		},
		{
			name: "video without caption",
			raw: func() RawMessage {
				m := rawMessage("m4", "video")
				m.Video = &MediaContent{ID: "media-3"}
				return m
			}(),
			wantKind: message.KindVideo,
			wantBody: "🎥 Video",
		},
		{
			name: "document with filename",
			raw: func() RawMessage {
				m := rawMessage("m5", "document")
				m.Document = &MediaContent{ID: "media-4", Filename: "report.pdf"}
				return m
			}(),
			wantKind: message.KindDocument,
			wantBody: "report.pdf",
		},
		{
			name: "document without filename",
			raw: func() RawMessage {
				m := rawMessage("m6", "document")
				m.Document = &MediaContent{ID: "media-5"}
				return m
			}(),
			wantKind: message.KindDocument,
			wantBody: "📄 Document",
		},
		{
			name:     "audio",
			raw:      rawMessage("m7", "audio"),
			wantKind: message.KindAudio,
			wantBody: "🎵 Audio message",
		},
		{
			name:     "sticker",
			raw:      rawMessage("m8", "sticker"),
			wantKind: message.KindSticker,
			wantBody: "😊 Sticker",
		},
		{
			name: "location with name",
			raw: func() RawMessage {
				m := rawMessage("m9", "location")
				m.Location = &LocationContent{Latitude: 12.9, Longitude: 77.6, Name: "Office"}
				return m
			}(),
			wantKind: message.KindLocation,
			wantBody: "📍 Office",
		},
		{
			name: "location with address only",
			raw: func() RawMessage {
				m := rawMessage("m10", "location")
				m.Location = &LocationContent{Latitude: 12.9, Longitude: 77.6, Address: "1 Main St"}
				return m
			}(),
			wantKind: message.KindLocation,
			wantBody: "📍 1 Main St",
		},
		{
			name: "location bare",
			raw: func() RawMessage {
				m := rawMessage("m11", "location")
				m.Location = &LocationContent{Latitude: 12.9, Longitude: 77.6}
				return m
			}(),
			wantKind: message.KindLocation,
			wantBody: "📍 Location",
		},
		{
			name: "contacts with formatted name",
			raw: func() RawMessage {
				m := rawMessage("m12", "contacts")
				m.Contacts = []message.ContactCard{{Name: message.ContactName{FormattedName: "Ada Lovelace"}}}
				return m
			}(),
			wantKind: message.KindContacts,
			wantBody: "👤 Ada Lovelace",
		},
		{
			name:     "contacts empty",
			raw:      rawMessage("m13", "contacts"),
			wantKind: message.KindContacts,
			wantBody: "👤 Contact",
		},
		{
			name:     "unknown type",
			raw:      rawMessage("m14", "reaction"),
			wantKind: message.KindUnsupported,
			wantBody: "Unsupported message type: reaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := Normalize(payloadWithMessages(tt.raw))
			require.Len(t, events, 1)
			require.NotNil(t, events[0].Message)
			assert.Equal(t, tt.wantKind, events[0].Message.Kind)
			assert.Equal(t, tt.wantBody, events[0].Message.Body)
		})
	}
}

func TestNormalize_MediaFieldsCarriedOver(t *testing.T) {
	raw := rawMessage("m1", "image")
	raw.Image = &MediaContent{ID: "media-1", MimeType: "image/png", SHA256: "abc123", Caption: "pic"}

	events := Normalize(payloadWithMessages(raw))
	require.NotNil(t, events[0].Message.Media)
	assert.Equal(t, "media-1", events[0].Message.Media.ID)
	assert.Equal(t, "image/png", events[0].Message.Media.MimeType)
	assert.Equal(t, "abc123", events[0].Message.Media.SHA256)
	assert.Equal(t, "pic", events[0].Message.Media.Caption)
}

func TestNormalize_DisplayNameFromContacts(t *testing.T) {
	raw := rawMessage("m1", "text")
	raw.Text = &TextContent{Body: "hello"}

	payload := payloadWithMessages(raw)
	payload.Entry[0].Changes[0].Value.Contacts = []Contact{
		{WaID: "555", Profile: ContactProfile{Name: "Someone Else"}},
		{WaID: raw.From, Profile: ContactProfile{Name: "Raj"}},
	}

	events := Normalize(payload)
	assert.Equal(t, "Raj", events[0].Message.DisplayName)
}

func TestNormalize_ReplyContext(t *testing.T) {
	raw := rawMessage("m1", "text")
	raw.Text = &TextContent{Body: "replying"}
	raw.Context = &MessageContext{From: "919876543210", ID: "m0"}

	events := Normalize(payloadWithMessages(raw))
	assert.Equal(t, "m0", events[0].Message.ReplyTo)
}

func TestNormalize_UnparsableTimestampFallsBackToNow(t *testing.T) {
	raw := rawMessage("m1", "text")
	raw.Timestamp = "not-a-number"
	raw.Text = &TextContent{Body: "x"}

	before := time.Now()
	events := Normalize(payloadWithMessages(raw))
	after := time.Now()

	got := events[0].Message.OccurredAt
	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestNormalize_MissingMessageIDBecomesItemError(t *testing.T) {
	good := rawMessage("m1", "text")
	good.Text = &TextContent{Body: "ok"}
	bad := rawMessage("", "text")

	events := Normalize(payloadWithMessages(bad, good))
	require.Len(t, events, 2)

	require.NotNil(t, events[0].Err)
	assert.Equal(t, "message", events[0].Err.Kind)
	assert.Equal(t, 0, events[0].Err.Index)

	require.NotNil(t, events[1].Message)
	assert.Equal(t, "m1", events[1].Message.ExternalID)
}

func TestNormalize_StatusesPassedThrough(t *testing.T) {
	payload := &Payload{
		Entry: []Entry{{
			Changes: []Change{{
				Field: "messages",
				Value: &ChangeValue{
					Statuses: []RawStatus{
						{ID: "m1", Status: "delivered", Timestamp: "1700000100", RecipientID: "918888"},
						{ID: "", Status: "read"},
					},
				},
			}},
		}},
	}

	events := Normalize(payload)
	require.Len(t, events, 2)

	require.NotNil(t, events[0].Status)
	assert.Equal(t, "m1", events[0].Status.ID)
	assert.Equal(t, "delivered", events[0].Status.Status)
	assert.Equal(t, "918888", events[0].Status.RecipientID)

	require.NotNil(t, events[1].Err)
	assert.Equal(t, "status", events[1].Err.Kind)
}

func TestNormalize_SkipsChangesWithoutValue(t *testing.T) {
	payload := &Payload{
		Entry: []Entry{
			{Changes: []Change{{Field: "messages"}}},
			{Changes: []Change{{
				Field: "messages",
				Value: &ChangeValue{Messages: []RawMessage{func() RawMessage {
					m := rawMessage("m1", "text")
					m.Text = &TextContent{Body: "hi"}
					return m
				}()}},
			}}},
		},
	}

	events := Normalize(payload)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].EntryIdx)
}

func TestNormalize_PreservesPayloadOrder(t *testing.T) {
	m1 := rawMessage("m1", "text")
	m1.Text = &TextContent{Body: "a"}
	m2 := rawMessage("m2", "text")
	m2.Text = &TextContent{Body: "b"}

	payload := &Payload{
		Entry: []Entry{{
			Changes: []Change{{
				Field: "messages",
				Value: &ChangeValue{
					Messages: []RawMessage{m1, m2},
					Statuses: []RawStatus{{ID: "m0", Status: "read", Timestamp: "1700000000"}},
				},
			}},
		}},
	}

	events := Normalize(payload)
	require.Len(t, events, 3)
	assert.Equal(t, "m1", events[0].Message.ExternalID)
	assert.Equal(t, "m2", events[1].Message.ExternalID)
	assert.Equal(t, "m0", events[2].Status.ID)
}
