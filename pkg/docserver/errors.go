package docserver

import "errors"

var (
	ErrFrameTooLarge     = errors.New("frame too large")
	ErrHandshake         = errors.New("handshake required: send PeerInfo first")
	ErrUnexpectedMessage = errors.New("unexpected message")
)

const (
	ErrUnknownMessage = "unknown message %q"
	ErrPayloadType    = "message %q: unexpected payload %T"
)

// RemoteError is an Error message returned by the server.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string { return "server: " + e.Msg }
