package domain

import "fmt"

type SessionStatus string

const (
	SessionAnonymous      SessionStatus = "anonymous"
	SessionAuthenticating SessionStatus = "authenticating"
	SessionAuthenticated  SessionStatus = "authenticated"
	SessionRefreshing     SessionStatus = "refreshing"
	SessionError          SessionStatus = "error"
)

func (s SessionStatus) Label() string {
	if s == "" {
		return string(SessionAnonymous)
	}
	return string(s)
}

type Session struct {
	User       *User
	Credential *Credential
	Status     SessionStatus
	// Error holds the last user-facing failure message; empty unless Status is SessionError.
	Error string
}

func AnonymousSession() Session {
	return Session{Status: SessionAnonymous}
}

func (s Session) Authenticated() bool {
	return s.Status == SessionAuthenticated || s.Status == SessionRefreshing
}

func (s Session) Validate() error {
	switch s.Status {
	case SessionAnonymous:
		if s.User != nil {
			return fmt.Errorf("anonymous session holds user %q", s.User.Username)
		}
	case SessionAuthenticated, SessionRefreshing:
		if s.Credential == nil {
			return fmt.Errorf("%s session has no credential", s.Status)
		}
	case SessionAuthenticating, SessionError:
	default:
		return fmt.Errorf("unknown session status %q", s.Status)
	}

	return nil
}

// Equal compares by value, including the user and credential behind the pointers.
func (s Session) Equal(other Session) bool {
	if s.Status != other.Status || s.Error != other.Error {
		return false
	}
	if (s.User == nil) != (other.User == nil) || (s.User != nil && *s.User != *other.User) {
		return false
	}
	if (s.Credential == nil) != (other.Credential == nil) || (s.Credential != nil && *s.Credential != *other.Credential) {
		return false
	}
	return true
}

// Clone returns a copy that shares no pointers with s.
func (s Session) Clone() Session {
	clone := s
	if s.User != nil {
		user := *s.User
		clone.User = &user
	}
	if s.Credential != nil {
		credential := *s.Credential
		clone.Credential = &credential
	}
	return clone
}
