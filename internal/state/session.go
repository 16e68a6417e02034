package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/abgdnv/storefront/internal/kvstore"
	"github.com/abgdnv/storefront/pkg/auth"
)

// Login exchanges credentials for a session. It never returns an error: a
// failure is recorded in Error, any existing session is kept and false is returned.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	s.clearError()
	in := loginInput{Email: strings.TrimSpace(email), Password: password}
	if err := s.validateInput(in); err != nil {
		s.setError(err)
		return false
	}

	token, err := s.client.Login(ctx, in.Email, in.Password)
	if err != nil {
		s.logger.WarnContext(ctx, "login failed", "email", in.Email, "error", err)
		s.setError(err)
		return false
	}

	s.startSession(ctx, token)
	s.logger.InfoContext(ctx, "logged in", "email", in.Email)
	return true
}

// Register creates an account and logs in with the returned token. Invalid
// input yields *ValidationError, API rejections come back as *api.APIError.
func (s *Store) Register(ctx context.Context, fio, email, password string) error {
	s.clearError()
	in := registerInput{FIO: strings.TrimSpace(fio), Email: strings.TrimSpace(email), Password: password}
	if err := s.validateInput(in); err != nil {
		s.setError(err)
		return err
	}

	token, err := s.client.Register(ctx, in.FIO, in.Email, in.Password)
	if err != nil {
		s.logger.WarnContext(ctx, "registration failed", "email", in.Email, "error", err)
		s.setError(err)
		return err
	}

	s.startSession(ctx, token)
	s.logger.InfoContext(ctx, "registered", "email", in.Email)
	return nil
}

// Logout ends the session. The cart survives unless the store was built
// WithClearCartOnLogout(true).
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = auth.User{}
	s.errMsg = ""
	if err := s.kv.Remove(ctx, kvstore.KeyToken); err != nil {
		return fmt.Errorf("failed to remove session token: %w", err)
	}
	if s.clearCartOnLogout {
		s.cart = nil
		if err := s.kv.Remove(ctx, kvstore.KeyCart); err != nil {
			return fmt.Errorf("failed to remove cart: %w", err)
		}
	}
	return nil
}

func (s *Store) startSession(ctx context.Context, token string) {
	user := s.userFromToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	s.errMsg = ""
	if err := s.kv.Set(ctx, kvstore.KeyToken, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist session token", "error", err)
	}
}

func (s *Store) userFromToken(token string) auth.User {
	user, err := auth.ParseUser(token)
	if err != nil {
		s.logger.Debug("session token carries no readable claims", "error", err)
		return auth.User{}
	}
	return user
}
