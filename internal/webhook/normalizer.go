package webhook

import (
	"fmt"
	"strconv"
	"time"

	"waweb/internal/message"
	"waweb/pkg/errors"
)

// Event is one normalized item from a payload. Exactly one of Message,
// Status, or Err is set.
type Event struct {
	EntryIdx  int
	ChangeIdx int
	Field     string

	Message *MessageEvent
	Status  *StatusEvent
	Err     *ItemError
}

// MessageEvent is a fully-rendered message-create event, ready to persist.
type MessageEvent struct {
	ExternalID     string
	ConversationID string
	DisplayName    string
	Kind           message.Kind
	Body           string
	Media          *message.Media
	Location       *message.Location
	Contacts       []message.ContactCard
	ReplyTo        string
	OccurredAt     time.Time
	Raw            RawMessage
}

// StatusEvent carries the provider status verbatim; it is interpreted when
// applied against the store.
type StatusEvent struct {
	ID          string
	Status      string
	Timestamp   string
	RecipientID string
}

// ItemError records a per-item normalization failure. Kind is "message" or
// "status"; Index is the item's position within its messages/statuses array.
type ItemError struct {
	Kind  string
	Index int
	ID    string
	Err   error
}

// Normalize fans a validated payload out into individual events, in payload
// order. It is a pure function of its input: entries and changes with no
// value contribute nothing, and a malformed item becomes an error event
// without affecting its siblings.
func Normalize(p *Payload) []Event {
	var events []Event

	for ei := range p.Entry {
		for ci := range p.Entry[ei].Changes {
			change := &p.Entry[ei].Changes[ci]
			if change.Value == nil {
				continue
			}

			for mi := range change.Value.Messages {
				ev := Event{EntryIdx: ei, ChangeIdx: ci, Field: change.Field}
				raw := change.Value.Messages[mi]

				if raw.ID == "" {
					ev.Err = &ItemError{
						Kind:  "message",
						Index: mi,
						Err:   errors.ErrValidation.WithMessage("message id is missing"),
					}
				} else {
					ev.Message = normalizeMessage(raw, change.Value.Contacts)
				}
				events = append(events, ev)
			}

			for si := range change.Value.Statuses {
				ev := Event{EntryIdx: ei, ChangeIdx: ci, Field: change.Field}
				raw := change.Value.Statuses[si]

				switch {
				case raw.ID == "":
					ev.Err = &ItemError{
						Kind:  "status",
						Index: si,
						Err:   errors.ErrValidation.WithMessage("status id is missing"),
					}
				case raw.Status == "":
					ev.Err = &ItemError{
						Kind:  "status",
						Index: si,
						ID:    raw.ID,
						Err:   errors.ErrValidation.WithMessage("status value is missing"),
					}
				default:
					ev.Status = &StatusEvent{
						ID:          raw.ID,
						Status:      raw.Status,
						Timestamp:   raw.Timestamp,
						RecipientID: raw.RecipientID,
					}
				}
				events = append(events, ev)
			}
		}
	}

	return events
}

func normalizeMessage(raw RawMessage, contacts []Contact) *MessageEvent {
	ev := &MessageEvent{
		ExternalID:     raw.ID,
		ConversationID: raw.From,
		DisplayName:    displayName(raw.From, contacts),
		OccurredAt:     occurredAt(raw.Timestamp),
		Raw:            raw,
	}
	if raw.Context != nil {
		ev.ReplyTo = raw.Context.ID
	}

	switch raw.Type {
	case "text":
		ev.Kind = message.KindText
		if raw.Text != nil {
			ev.Body = raw.Text.Body
		}

	case "image":
		ev.Kind = message.KindImage
		ev.Body, ev.Media = mediaBody(raw.Image, "📷 Image")

	case "video":
		ev.Kind = message.KindVideo
		ev.Body, ev.Media = mediaBody(raw.Video, "🎥 Video")

	case "document":
		ev.Kind = message.KindDocument
		ev.Body = "📄 Document"
		if raw.Document != nil {
			if raw.Document.Filename != "" {
				ev.Body = raw.Document.Filename
			}
			ev.Media = toMedia(raw.Document)
		}

	case "audio":
		ev.Kind = message.KindAudio
		ev.Body = "🎵 Audio message"
		if raw.Audio != nil {
			ev.Media = toMedia(raw.Audio)
		}

	case "sticker":
		ev.Kind = message.KindSticker
		ev.Body = "😊 Sticker"
		if raw.Sticker != nil {
			ev.Media = toMedia(raw.Sticker)
		}

	case "location":
		ev.Kind = message.KindLocation
		label := "Location"
		if raw.Location != nil {
			if raw.Location.Name != "" {
				label = raw.Location.Name
			} else if raw.Location.Address != "" {
				label = raw.Location.Address
			}
			ev.Location = &message.Location{
				Latitude:  raw.Location.Latitude,
				Longitude: raw.Location.Longitude,
				Name:      raw.Location.Name,
				Address:   raw.Location.Address,
			}
		}
		ev.Body = "📍 " + label

	case "contacts":
		ev.Kind = message.KindContacts
		label := "Contact"
		if len(raw.Contacts) > 0 {
			if name := raw.Contacts[0].Name.FormattedName; name != "" {
				label = name
			}
			ev.Contacts = raw.Contacts
		}
		ev.Body = "👤 " + label

	default:
		ev.Kind = message.KindUnsupported
		ev.Body = fmt.Sprintf("Unsupported message type: %s", raw.Type)
	}

	return ev
}

func mediaBody(content *MediaContent, label string) (string, *message.Media) {
	if content == nil {
		return label, nil
	}
	body := label
	if content.Caption != "" {
		body = content.Caption
	}
	return body, toMedia(content)
}

func toMedia(content *MediaContent) *message.Media {
	return &message.Media{
		ID:       content.ID,
		MimeType: content.MimeType,
		SHA256:   content.SHA256,
		Filename: content.Filename,
		Caption:  content.Caption,
	}
}

// displayName resolves the sender's profile name from the change's contacts
// block, falling back to the phone number itself.
func displayName(from string, contacts []Contact) string {
	for i := range contacts {
		if contacts[i].WaID == from && contacts[i].Profile.Name != "" {
			return contacts[i].Profile.Name
		}
	}
	return from
}

// occurredAt converts the provider's epoch-seconds string to a timestamp,
// falling back to the current time when it does not parse.
func occurredAt(ts string) time.Time {
	seconds, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.UnixMilli(seconds * 1000)
}
