package core

// Error is the error type shared by handlebars packages. Code is stable and
// meant for programmatic checks, Message is for humans.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error with the same Code, so wrapped
// errors and copies compare equal to the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
