package schema

import (
	"encoding/json"

	"github.com/yanun0323/errors"

	"main/pkg/exception"
)

// Envelope is a received frame with the discriminator and correlation id
// lifted out, keeping the raw payload for a second typed decode.
type Envelope struct {
	Type      string
	RequestID uint64
	HasID     bool
	Raw       []byte
}

type envelopeHead struct {
	Type      string  `json:"Type"`
	RequestID *uint64 `json:"RequestID"`
}

// ParseEnvelope lifts the discriminator out of one raw frame.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var head envelopeHead
	if err := json.Unmarshal(raw, &head); err != nil {
		return Envelope{}, errors.Wrap(exception.ErrMalformedFrame, err.Error())
	}
	if head.Type == "" {
		return Envelope{}, errors.Wrap(exception.ErrMissingField, "Type")
	}
	env := Envelope{Type: head.Type, Raw: raw}
	if head.RequestID != nil {
		env.RequestID = *head.RequestID
		env.HasID = true
	}
	return env, nil
}

// Decode unmarshals the full frame into a concrete message struct.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Raw, v); err != nil {
		return errors.Wrap(exception.ErrMalformedFrame, err.Error())
	}
	return nil
}

// Encode marshals any wire message to its frame payload.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
