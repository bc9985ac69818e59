package protocol

import (
	"github.com/crosspane/crosspane/internal/shared/id"
)

// TypeTag is the constant marker distinguishing crosspane envelopes from
// unrelated traffic on a shared channel.
const TypeTag = "crosspane"

// OriginAny disables origin checking when passed as an expected origin.
// Callers opt into it explicitly; it is never a default.
const OriginAny = "*"

// Kind identifies the role of an envelope within the protocol.
type Kind string

const (
	KindHandshake      Kind = "handshake"
	KindHandshakeReply Kind = "handshake-reply"
	KindRequest        Kind = "request"
	KindReply          Kind = "reply"
	KindCall           Kind = "call"
	KindEmit           Kind = "emit"
)

// Recognized reports whether k is one of the six protocol kinds.
func (k Kind) Recognized() bool {
	switch k {
	case KindHandshake, KindHandshakeReply, KindRequest, KindReply, KindCall, KindEmit:
		return true
	}
	return false
}

// Event is the name/data pair carried by emit envelopes.
type Event struct {
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`
}

// Envelope is the single message shape exchanged between host and guest.
// Which fields are populated depends on Kind:
//
//	handshake        InstanceID, Model
//	handshake-reply  InstanceID
//	request          InstanceID, CorrelationID, Property
//	reply            InstanceID, CorrelationID, Property, Value
//	call             InstanceID, Property, Data
//	emit             InstanceID, Event
type Envelope struct {
	TypeTag       string           `json:"typeTag"`
	Kind          Kind             `json:"kind"`
	InstanceID    id.InstanceID    `json:"instanceId,omitempty"`
	CorrelationID id.CorrelationID `json:"correlationId,omitempty"`
	Property      string           `json:"property,omitempty"`
	Data          any              `json:"data,omitempty"`
	Value         any              `json:"value,omitempty"`
	Event         *Event           `json:"event,omitempty"`
	Model         map[string]any   `json:"model,omitempty"`
}

// NewHandshake builds the announcement envelope carrying the initiator's
// initial data model snapshot.
func NewHandshake(instance id.InstanceID, model map[string]any) *Envelope {
	return &Envelope{TypeTag: TypeTag, Kind: KindHandshake, InstanceID: instance, Model: model}
}

// NewHandshakeReply builds the single acknowledgment the responder sends.
func NewHandshakeReply(instance id.InstanceID) *Envelope {
	return &Envelope{TypeTag: TypeTag, Kind: KindHandshakeReply, InstanceID: instance}
}

// NewRequest builds a property-read envelope.
func NewRequest(instance id.InstanceID, correlation id.CorrelationID, property string) *Envelope {
	return &Envelope{TypeTag: TypeTag, Kind: KindRequest, InstanceID: instance, CorrelationID: correlation, Property: property}
}

// NewReply builds the response to a request, echoing its correlation ID.
func NewReply(instance id.InstanceID, correlation id.CorrelationID, property string, value any) *Envelope {
	return &Envelope{TypeTag: TypeTag, Kind: KindReply, InstanceID: instance, CorrelationID: correlation, Property: property, Value: value}
}

// NewCall builds a fire-and-forget procedure invocation envelope.
func NewCall(instance id.InstanceID, property string, data any) *Envelope {
	return &Envelope{TypeTag: TypeTag, Kind: KindCall, InstanceID: instance, Property: property, Data: data}
}

// NewEmit builds an event envelope.
func NewEmit(instance id.InstanceID, name string, data any) *Envelope {
	return &Envelope{TypeTag: TypeTag, Kind: KindEmit, InstanceID: instance, Event: &Event{Name: name, Data: data}}
}
