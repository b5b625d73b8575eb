package message

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

type Kind string

const (
	KindText        Kind = "text"
	KindImage       Kind = "image"
	KindDocument    Kind = "document"
	KindAudio       Kind = "audio"
	KindVideo       Kind = "video"
	KindLocation    Kind = "location"
	KindContacts    Kind = "contacts"
	KindSticker     Kind = "sticker"
	KindUnsupported Kind = "unsupported"
)

// Message is the canonical, store-owned record a webhook event folds into.
// ExternalID is the provider's message id and is unique across the store;
// CorrelationID is the provider's secondary id, used to match status updates
// that reference a different id than the one the message was created under.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ExternalID     string             `bson:"external_id" json:"external_id"`
	CorrelationID  string             `bson:"correlation_id,omitempty" json:"correlation_id,omitempty"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	DisplayName    string             `bson:"display_name" json:"display_name"`
	Direction      Direction          `bson:"direction" json:"direction"`
	Kind           Kind               `bson:"kind" json:"kind"`
	Body           string             `bson:"body" json:"body"`
	Media          *Media             `bson:"media,omitempty" json:"media,omitempty"`
	Location       *Location          `bson:"location,omitempty" json:"location,omitempty"`
	Contacts       []ContactCard      `bson:"contacts,omitempty" json:"contacts,omitempty"`
	ReplyTo        string             `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	Status         Status             `bson:"status" json:"status"`
	DeliveredAt    *time.Time         `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	ReadAt         *time.Time         `bson:"read_at,omitempty" json:"read_at,omitempty"`
	OccurredAt     time.Time          `bson:"occurred_at" json:"occurred_at"`
	IsPlaceholder  bool               `bson:"is_placeholder" json:"is_placeholder"`
	Raw            interface{}        `bson:"raw,omitempty" json:"-"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

type Media struct {
	ID       string `bson:"id,omitempty" json:"id,omitempty"`
	MimeType string `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
	SHA256   string `bson:"sha256,omitempty" json:"sha256,omitempty"`
	Filename string `bson:"filename,omitempty" json:"filename,omitempty"`
	Caption  string `bson:"caption,omitempty" json:"caption,omitempty"`
}

type Location struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
	Name      string  `bson:"name,omitempty" json:"name,omitempty"`
	Address   string  `bson:"address,omitempty" json:"address,omitempty"`
}

type ContactCard struct {
	Name   ContactName    `bson:"name" json:"name"`
	Phones []ContactPhone `bson:"phones,omitempty" json:"phones,omitempty"`
	Emails []ContactEmail `bson:"emails,omitempty" json:"emails,omitempty"`
}

type ContactName struct {
	FormattedName string `bson:"formatted_name" json:"formatted_name"`
	FirstName     string `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName      string `bson:"last_name,omitempty" json:"last_name,omitempty"`
}

type ContactPhone struct {
	Phone string `bson:"phone" json:"phone"`
	Type  string `bson:"type,omitempty" json:"type,omitempty"`
}

type ContactEmail struct {
	Email string `bson:"email" json:"email"`
	Type  string `bson:"type,omitempty" json:"type,omitempty"`
}

// ConversationSummary is one group of the conversations aggregation: the
// newest message of the conversation plus per-conversation counters.
type ConversationSummary struct {
	ConversationID string      `bson:"_id" json:"conversation_id"`
	DisplayName    string      `bson:"display_name" json:"display_name"`
	LastMessage    LastMessage `bson:"last_message" json:"last_message"`
	TotalMessages  int64       `bson:"total_messages" json:"total_messages"`
	UnreadCount    int64       `bson:"unread_count" json:"unread_count"`
}

type LastMessage struct {
	Body       string    `bson:"body" json:"body"`
	Kind       Kind      `bson:"kind" json:"kind"`
	Direction  Direction `bson:"direction" json:"direction"`
	OccurredAt time.Time `bson:"occurred_at" json:"occurred_at"`
}

type Stats struct {
	TotalMessages      int64 `bson:"total_messages" json:"total_messages"`
	TotalConversations int64 `bson:"total_conversations" json:"total_conversations"`
	InboundMessages    int64 `bson:"inbound_messages" json:"inbound_messages"`
	OutboundMessages   int64 `bson:"outbound_messages" json:"outbound_messages"`
	UnreadMessages     int64 `bson:"unread_messages" json:"unread_messages"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}
