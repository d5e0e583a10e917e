package uri

import "errors"

// ErrInvalidUri is returned for any malformed or unsupported handshake URI.
var ErrInvalidUri = errors.New("uri: invalid handshake uri")
