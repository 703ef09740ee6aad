// Package validate turns raw form input into typed, checked values.
//
// Every function returns either a usable value or a *Error whose Failure
// names exactly what was wrong; *Error matches errors.ErrInvalid.
package validate

import (
	"strings"

	appErr "github.com/xxxsen/mblog/internal/pkg/errors"
	"github.com/xxxsen/mblog/internal/pkg/password"
)

type Failure int

const (
	FailureNone Failure = iota
	FailureEmailRequired
	FailurePasswordRequired
	FailurePasswordMismatch
	FailurePasswordTooLong
	FailureTitleRequired
	FailureContentRequired
)

var failureMessages = map[Failure]string{
	FailureEmailRequired:    "Email is required",
	FailurePasswordRequired: "Password is required",
	FailurePasswordMismatch: "Passwords do not match",
	FailurePasswordTooLong:  "Password must be at most 72 bytes",
	FailureTitleRequired:    "Title is required",
	FailureContentRequired:  "Content is required",
}

func (f Failure) String() string {
	if msg, ok := failureMessages[f]; ok {
		return msg
	}
	return "Invalid input"
}

type Error struct {
	Failure Failure
}

func (e *Error) Error() string {
	return "validation: " + e.Failure.String()
}

// Message is the text shown to the user next to the form.
func (e *Error) Message() string {
	return e.Failure.String()
}

func (e *Error) Is(target error) bool {
	return target == appErr.ErrInvalid
}

func fail(f Failure) *Error {
	return &Error{Failure: f}
}

type Credentials struct {
	Email    string
	Password string
}

// Login checks the login form. The email is trimmed; the password is kept
// verbatim.
func Login(email, plain string) (Credentials, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Credentials{}, fail(FailureEmailRequired)
	}
	if plain == "" {
		return Credentials{}, fail(FailurePasswordRequired)
	}
	return Credentials{Email: email, Password: plain}, nil
}

func Registration(email, plain, confirm string) (Credentials, error) {
	creds, err := Login(email, plain)
	if err != nil {
		return Credentials{}, err
	}
	if err := PasswordLength(plain); err != nil {
		return Credentials{}, err
	}
	if plain != confirm {
		return Credentials{}, fail(FailurePasswordMismatch)
	}
	return creds, nil
}

// PasswordLength rejects passwords bcrypt cannot hash.
func PasswordLength(plain string) error {
	if len(plain) > password.MaxBytes {
		return fail(FailurePasswordTooLong)
	}
	return nil
}

type PostInput struct {
	Title   string
	Content string
}

// Post rejects empty or whitespace-only titles and bodies. Accepted values
// are stored trimmed.
func Post(title, content string) (PostInput, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return PostInput{}, fail(FailureTitleRequired)
	}
	if content == "" {
		return PostInput{}, fail(FailureContentRequired)
	}
	return PostInput{Title: title, Content: content}, nil
}
