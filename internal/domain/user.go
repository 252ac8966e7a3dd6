package domain

import (
	"fmt"
	"strings"
)

type UserID int64

type User struct {
	ID        UserID `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

type Registration struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if r.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if r.Password2 == "" {
		return fmt.Errorf("%w: password confirmation is required", ErrInvalidInput)
	}

	return nil
}

// ProfileUpdate is a partial update; nil fields are left untouched by the server.
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty"`
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

func (p ProfileUpdate) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FirstName == nil && p.LastName == nil
}

type PasswordResetConfirmation struct {
	UID          string `json:"uid"`
	Token        string `json:"token"`
	NewPassword1 string `json:"new_password1"`
	NewPassword2 string `json:"new_password2"`
}

func (c PasswordResetConfirmation) Validate() error {
	if strings.TrimSpace(c.UID) == "" {
		return fmt.Errorf("%w: uid is required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("%w: reset token is required", ErrInvalidInput)
	}
	if c.NewPassword1 == "" || c.NewPassword2 == "" {
		return fmt.Errorf("%w: new password and confirmation are required", ErrInvalidInput)
	}

	return nil
}
