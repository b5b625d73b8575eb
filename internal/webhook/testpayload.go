package webhook

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateTestPayload builds a provider-shaped inbound text message payload.
// Empty arguments fall back to fixed defaults.
func GenerateTestPayload(from, body, name string) *Payload {
	if from == "" {
		from = "919876543210"
	}
	if body == "" {
		body = "Test message"
	}
	if name == "" {
		name = "Test User"
	}

	return &Payload{
		Object: "whatsapp_business_account",
		Entry: []Entry{{
			ID: "test-entry",
			Changes: []Change{{
				Field: "messages",
				Value: &ChangeValue{
					MessagingProduct: "whatsapp",
					Metadata: &PhoneMetadata{
						DisplayPhoneNumber: "15550000000",
						PhoneNumberID:      "test-phone",
					},
					Contacts: []Contact{{
						WaID:    from,
						Profile: ContactProfile{Name: name},
					}},
					Messages: []RawMessage{{
						ID:        "test_" + uuid.NewString(),
						From:      from,
						Timestamp: fmt.Sprintf("%d", time.Now().Unix()),
						Type:      "text",
						Text:      &TextContent{Body: body},
					}},
				},
			}},
		}},
	}
}
