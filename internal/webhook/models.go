// Package webhook implements the WhatsApp Business API webhook pipeline:
// payload validation, normalization into message and status events, and
// idempotent application of those events against the message store.
package webhook

import "waweb/internal/message"

// Payload is the root envelope the provider POSTs to the webhook. Entry and
// Changes use pointer-free slices on purpose: after json.Unmarshal a missing
// key leaves the slice nil while a present empty array yields a non-nil empty
// slice, which is exactly the distinction the validator needs.
type Payload struct {
	Object string  `json:"object,omitempty"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id,omitempty"`
	Changes []Change `json:"changes"`
}

// Change carries an optional Value; a change without one is tolerated and
// contributes no events.
type Change struct {
	Field string       `json:"field,omitempty"`
	Value *ChangeValue `json:"value,omitempty"`
}

type ChangeValue struct {
	MessagingProduct string         `json:"messaging_product,omitempty"`
	Metadata         *PhoneMetadata `json:"metadata,omitempty"`
	Contacts         []Contact      `json:"contacts,omitempty"`
	Messages         []RawMessage   `json:"messages,omitempty"`
	Statuses         []RawStatus    `json:"statuses,omitempty"`
}

type PhoneMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number,omitempty"`
	PhoneNumberID      string `json:"phone_number_id,omitempty"`
}

type Contact struct {
	WaID    string         `json:"wa_id"`
	Profile ContactProfile `json:"profile"`
}

type ContactProfile struct {
	Name string `json:"name"`
}

// RawMessage is the provider-side message shape. Exactly one of the typed
// content fields is set, matching Type; unknown types leave them all nil.
type RawMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`

	Text     *TextContent          `json:"text,omitempty"`
	Image    *MediaContent         `json:"image,omitempty"`
	Video    *MediaContent         `json:"video,omitempty"`
	Document *MediaContent         `json:"document,omitempty"`
	Audio    *MediaContent         `json:"audio,omitempty"`
	Sticker  *MediaContent         `json:"sticker,omitempty"`
	Location *LocationContent      `json:"location,omitempty"`
	Contacts []message.ContactCard `json:"contacts,omitempty"`
	Context  *MessageContext       `json:"context,omitempty"`
}

type TextContent struct {
	Body string `json:"body"`
}

type MediaContent struct {
	ID       string `json:"id,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type LocationContent struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type MessageContext struct {
	From string `json:"from,omitempty"`
	ID   string `json:"id,omitempty"`
}

// RawStatus is passed through verbatim; status-lattice interpretation happens
// when the event is applied, not here.
type RawStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id,omitempty"`
}
