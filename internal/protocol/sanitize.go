package protocol

// DropReason explains why Vet rejected a message. Reasons feed metrics
// labels; rejected messages themselves are dropped silently.
type DropReason string

const (
	DropNone          DropReason = ""
	DropOrigin        DropReason = "origin_mismatch"
	DropNoPayload     DropReason = "no_payload"
	DropNoMarker      DropReason = "no_marker"
	DropWrongTag      DropReason = "tag_mismatch"
	DropUnknownKind   DropReason = "unknown_kind"
	DropWrongInstance DropReason = "instance_mismatch"
)

// Vet decides whether an inbound message is a legitimate protocol message
// from the expected origin, and if not, why. Origin is the channel-reported
// sender origin; expectedOrigin may be OriginAny to skip the origin check.
func Vet(origin string, env *Envelope, expectedOrigin string) (bool, DropReason) {
	if expectedOrigin != OriginAny && origin != expectedOrigin {
		return false, DropOrigin
	}
	if env == nil {
		return false, DropNoPayload
	}
	if env.TypeTag == "" {
		return false, DropNoMarker
	}
	if env.TypeTag != TypeTag {
		return false, DropWrongTag
	}
	if !env.Kind.Recognized() {
		return false, DropUnknownKind
	}
	return true, DropNone
}

// Sanitize is the authentication gate every inbound listener runs before
// interpreting a message.
func Sanitize(origin string, env *Envelope, expectedOrigin string) bool {
	ok, _ := Vet(origin, env, expectedOrigin)
	return ok
}
