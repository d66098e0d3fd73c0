package account

import "errors"

var (
	// ErrAccountNotLinked is returned when a provider identity shares an
	// email with an existing user but that email is not verified.
	ErrAccountNotLinked = errors.New("account not linked")
	ErrInvalidSignIn    = errors.New("invalid sign-in: provider and account id are required")
	// ErrDuplicateEmail is returned by CreateUser when another user already
	// has the email, compared case-insensitively.
	ErrDuplicateEmail = errors.New("email already belongs to another user")
)
