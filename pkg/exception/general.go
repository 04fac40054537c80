package exception

import "github.com/yanun0323/errors"

// General errors
var (
	ErrNilInstance     = errors.New("nil instance")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInternal        = errors.New("internal error")
	ErrTypeUnsupported = errors.New("type unsupported")
)

// Host errors
var (
	ErrHostClosed        = errors.New("host: closed")
	ErrSnapshotMismatch  = errors.New("state: snapshot mismatch")
	ErrSnapshotNotFound  = errors.New("state: snapshot not found")
	ErrUnknownCommand    = errors.New("codec: unknown command")
	ErrMalformedIdentity = errors.New("schema: malformed identity")
)
