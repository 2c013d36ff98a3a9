package remote

import (
	"errors"
	"net/textproto"
)

// ErrAuth marks authentication failures against the remote server. Auth
// failures are terminal for the current scan and are never retried
// automatically.
var ErrAuth = errors.New("remote authentication failed")

// IsAuthError reports whether err represents an authentication failure,
// either via the ErrAuth sentinel or a 530 FTP reply.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuth) {
		return true
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code == 530
	}
	return false
}
