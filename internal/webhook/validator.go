package webhook

import (
	"encoding/json"

	"waweb/pkg/errors"
)

// DecodePayload parses raw webhook JSON and checks its shape in one step.
func DecodePayload(raw []byte) (*Payload, error) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.ErrInvalidPayload.
			WithMessage("payload is not valid JSON").
			WithCause(err)
	}
	if err := ValidatePayload(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ValidatePayload enforces the envelope shape: entry must be a present
// sequence, and so must every entry's changes. Both may be empty. Deeper
// structure is not the validator's concern; a change without a value is
// skipped downstream.
func ValidatePayload(p *Payload) error {
	if p == nil {
		return errors.ErrInvalidPayload.WithMessage("payload is empty")
	}
	if p.Entry == nil {
		return errors.ErrInvalidPayload.WithMessage("payload entry is missing or not an array")
	}
	for i := range p.Entry {
		if p.Entry[i].Changes == nil {
			return errors.ErrInvalidPayload.
				WithMessage("entry changes is missing or not an array").
				WithDetail("entry_index", i)
		}
	}
	return nil
}
