package simnet

import (
	"encoding/json"

	"github.com/google/uuid"
	structpb "google.golang.org/protobuf/types/known/structpb"
)

// Message types carried by envelopes. REQUEST and REPLY belong to
// Ricart-Agrawala; REQUEST, LOCKED, RELEASE, INQUIRE, RELINQUISH and
// FAILED to Maekawa. STOP is a control message injected by the runner to
// shut the actors down.
const (
	TypeRequest    = "REQUEST"
	TypeReply      = "REPLY"
	TypeLocked     = "LOCKED"
	TypeRelease    = "RELEASE"
	TypeInquire    = "INQUIRE"
	TypeRelinquish = "RELINQUISH"
	TypeFailed     = "FAILED"
	TypeStop       = "STOP"
)

// Envelope is the unit of delivery between nodes. Envelopes are immutable
// once sent; the payload is a generic struct decoded into a typed message
// by the receiver according to Type.
type Envelope struct {
	ID      string
	Type    string
	From    int
	To      int
	Payload *structpb.Struct
}

// Request is the payload of REQUEST envelopes: the requester's clock at
// the time of the request plus an id identifying the acquisition attempt.
type Request struct {
	Timestamp int64  `json:"timestamp"`
	RequestID string `json:"request_id"`
}

// Ack is the payload of every other protocol message (REPLY, LOCKED,
// RELEASE, INQUIRE, RELINQUISH, FAILED): just the sender's clock.
type Ack struct {
	Timestamp int64 `json:"timestamp"`
}

// NewEnvelope builds an envelope with a fresh id and an encoded payload.
func NewEnvelope(typ string, from, to int, payload any) (*Envelope, error) {
	s, err := Encode(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:      uuid.NewString(),
		Type:    typ,
		From:    from,
		To:      to,
		Payload: s,
	}, nil
}

// Encode wraps a typed payload in a structpb.Struct via a JSON round trip.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// Decode unpacks a structpb.Struct payload into a typed message.
func Decode(s *structpb.Struct, v any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
