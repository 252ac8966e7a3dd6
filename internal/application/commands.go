package application

import (
	"net/http"
	"strings"

	"github.com/bnema/snippets-cli/internal/domain"
)

type LoginCommand struct {
	Email    string
	Password string
}

func (c LoginCommand) normalize() (LoginCommand, error) {
	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" {
		return c, requiredField("email")
	}
	if c.Password == "" {
		return c, requiredField("password")
	}
	return c, nil
}

type RegisterCommand struct {
	Username  string
	Email     string
	Password  string
	Password2 string
	FirstName string
	LastName  string
}

func (c RegisterCommand) registration() (domain.Registration, error) {
	registration := domain.Registration{
		Username:  strings.TrimSpace(c.Username),
		Email:     strings.TrimSpace(c.Email),
		Password:  c.Password,
		Password2: c.Password2,
		FirstName: strings.TrimSpace(c.FirstName),
		LastName:  strings.TrimSpace(c.LastName),
	}
	if err := registration.Validate(); err != nil {
		return domain.Registration{}, err
	}
	return registration, nil
}

type UpdateProfileCommand struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
}

func (c UpdateProfileCommand) update() (domain.ProfileUpdate, error) {
	update := domain.ProfileUpdate{
		Username:  trimmed(c.Username),
		Email:     trimmed(c.Email),
		FirstName: trimmed(c.FirstName),
		LastName:  trimmed(c.LastName),
	}
	if update.Empty() {
		return update, invalidInput("nothing to update")
	}
	if update.Username != nil && *update.Username == "" {
		return update, requiredField("username")
	}
	if update.Email != nil && *update.Email == "" {
		return update, requiredField("email")
	}
	return update, nil
}

type ConfirmPasswordResetCommand struct {
	UID          string
	Token        string
	NewPassword  string
	NewPassword2 string
}

func (c ConfirmPasswordResetCommand) confirmation() (domain.PasswordResetConfirmation, error) {
	confirmation := domain.PasswordResetConfirmation{
		UID:          strings.TrimSpace(c.UID),
		Token:        strings.TrimSpace(c.Token),
		NewPassword1: c.NewPassword,
		NewPassword2: c.NewPassword2,
	}
	if err := confirmation.Validate(); err != nil {
		return domain.PasswordResetConfirmation{}, err
	}
	return confirmation, nil
}

// RequestCommand is a raw call against the service API.
type RequestCommand struct {
	Method string
	Path   string
	Body   any
}

func (c RequestCommand) normalize() (RequestCommand, error) {
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = http.MethodGet
	}
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" {
		return c, requiredField("path")
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
	return c, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	return &out
}
