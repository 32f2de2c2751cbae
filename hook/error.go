package hook

import "errors"

type ErrorKind int

const (
	// ErrorUser marks a failure raised deliberately by the script;
	// its message is safe to surface to the client.
	ErrorUser ErrorKind = iota

	// ErrorSystem marks an internal scripting fault; its message is
	// logged, never echoed.
	ErrorSystem
)

// Error is the tagged failure a hook invocation can produce.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// IsUser reports whether err is a user-level hook error.
func IsUser(err error) bool {
	var he *Error
	return errors.As(err, &he) && he.Kind == ErrorUser
}
