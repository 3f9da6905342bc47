package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a stored kind has no matching variant.
var ErrUnknownKind = errors.New("conversation: unknown step kind")

// Encode returns the discriminator and JSON payload for s.
func Encode(s Step) (Kind, []byte, error) {
	if s == nil {
		return "", nil, errors.New("conversation: nil step")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return "", nil, fmt.Errorf("conversation: encode %s: %w", s.Kind(), err)
	}
	return s.Kind(), payload, nil
}

// Decode rebuilds the variant named by kind from payload.
func Decode(kind Kind, payload []byte) (Step, error) {
	switch kind {
	case KindChannelForward:
		return decodeAs[AwaitingChannelForward](kind, payload)
	case KindChannelHandle:
		return decodeAs[AwaitingChannelHandle](kind, payload)
	case KindSubmissionContent:
		return decodeAs[AwaitingSubmissionContent](kind, payload)
	case KindModeratorIdentity:
		return decodeAs[AwaitingModeratorIdentity](kind, payload)
	case KindReplyText:
		return decodeAs[AwaitingReplyText](kind, payload)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func decodeAs[T Step](kind Kind, payload []byte) (Step, error) {
	var v T
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("conversation: decode %s: %w", kind, err)
		}
	}
	return v, nil
}
