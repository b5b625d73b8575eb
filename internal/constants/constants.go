package constants

import "time"

const (
	MessagesCollection = "messages"
)

const (
	PlaceholderIDPrefix = "placeholder_"
	PlaceholderBody     = "Status update for unknown message"
	UnknownConversation = "unknown"
)

const (
	CacheKeyPrefixSeen    = "seen:"
	DefaultSeenTTLSeconds = 86400
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultEventsTopic = "chat_events"

	EventTypeMessageNew    = "message.new"
	EventTypeMessageStatus = "message.status"
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

const (
	OutboundIDPrefix = "msg_"
)

const (
	ShutdownTimeout = 5 * time.Second
)
