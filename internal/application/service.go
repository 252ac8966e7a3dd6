package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/ports"
)

var ErrSessionStoreRequired = errors.New("session store is required")

// Service is the entry point front ends talk to. It checks input and
// delegates; it never reads or writes tokens itself.
type Service struct {
	sessions  *SessionStore
	transport ports.Transport
	profile   string
	baseURL   string
}

type ServiceOption func(*Service)

// WithProfile records the active profile and API base URL for Status.
func WithProfile(profile, baseURL string) ServiceOption {
	return func(s *Service) {
		s.profile = profile
		s.baseURL = baseURL
	}
}

func NewService(sessions *SessionStore, transport ports.Transport, opts ...ServiceOption) (*Service, error) {
	if sessions == nil {
		return nil, ErrSessionStoreRequired
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}

	service := &Service{sessions: sessions, transport: transport}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

func (s *Service) Login(ctx context.Context, cmd LoginCommand) error {
	cmd, err := cmd.normalize()
	if err != nil {
		return err
	}
	return s.sessions.Login(ctx, cmd.Email, cmd.Password)
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) error {
	registration, err := cmd.registration()
	if err != nil {
		return err
	}
	return s.sessions.Register(ctx, registration)
}

func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.Logout(ctx)
}

// Restore rebuilds the session persisted by an earlier process.
func (s *Service) Restore(ctx context.Context) error {
	return s.sessions.InitializeAuth(ctx)
}

func (s *Service) CurrentUser(ctx context.Context) (domain.User, error) {
	if !s.sessions.Snapshot().Authenticated() {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	return s.sessions.CurrentUser(ctx)
}

func (s *Service) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (domain.User, error) {
	update, err := cmd.update()
	if err != nil {
		return domain.User{}, err
	}
	if !s.sessions.Snapshot().Authenticated() {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	return s.sessions.UpdateProfile(ctx, update)
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return requiredField("email")
	}
	return s.sessions.RequestPasswordReset(ctx, email)
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, cmd ConfirmPasswordResetCommand) error {
	confirmation, err := cmd.confirmation()
	if err != nil {
		return err
	}
	return s.sessions.ConfirmPasswordReset(ctx, confirmation)
}

// Request sends an arbitrary call through the authenticated pipeline.
func (s *Service) Request(ctx context.Context, cmd RequestCommand) (*ports.Response, error) {
	cmd, err := cmd.normalize()
	if err != nil {
		return nil, err
	}

	resp, err := s.transport.Send(ctx, ports.Request{
		Method: cmd.Method,
		Path:   cmd.Path,
		Body:   cmd.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", cmd.Method, cmd.Path, err)
	}
	return resp, nil
}

func (s *Service) Session() domain.Session {
	return s.sessions.Snapshot()
}

func (s *Service) Subscribe(fn func(domain.Session)) func() {
	return s.sessions.Subscribe(fn)
}

func (s *Service) Status() Status {
	session := s.sessions.Snapshot()

	status := Status{
		Session: session,
		Profile: s.profile,
		BaseURL: s.baseURL,
	}
	if session.Credential != nil {
		status.AccessToken = inspectAccessToken(session.Credential.AccessToken)
	}
	return status
}

func requiredField(name string) error {
	return fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, name)
}

func invalidInput(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, reason)
}
