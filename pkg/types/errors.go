package types

import "errors"

// Error taxonomy shared across the engine. HandshakeInvalid is fatal to
// the connection; everything else is recoverable and reported to the
// requester only, never broadcast.
var (
	ErrHandshakeInvalid        = errors.New("handshake parameters invalid")
	ErrRateExceeded            = errors.New("message rate limit exceeded")
	ErrOwnershipDenied         = errors.New("requester does not own the target message")
	ErrTargetNotFound          = errors.New("target message not found")
	ErrCollaboratorUnavailable = errors.New("backing service unavailable")
	ErrEmptyMessage            = errors.New("message requires text or an attachment")
	ErrInvalidThread           = errors.New("invalid thread address")
	ErrInvalidEvent            = errors.New("invalid event payload")
)
