package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"taskboard/api/internal/auth"
	"taskboard/api/internal/authpw"
	"taskboard/api/internal/session"
	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

type SignUpInput struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) SignUp(ctx context.Context, input SignUpInput) (Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	displayName := strings.TrimSpace(input.DisplayName)
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, validationFailed("A valid email is required", nil)
	}
	if displayName == "" {
		return Session{}, validationFailed("Display name is required", nil)
	}
	if err := authpw.ValidatePassword(input.Password); err != nil {
		return Session{}, validationFailed(err.Error(), nil)
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return Session{}, conflict("An account with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Session{}, err
	}

	hash, err := authpw.HashPassword(input.Password)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.InsertUser(ctx, store.User{
		ID:           util.NewID(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	})
	if err != nil {
		return Session{}, err
	}
	return s.openSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, input SignInInput) (Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, unauthorized("Invalid email or password")
		}
		return Session{}, err
	}
	if user.PasswordHash == "" {
		// GitHub-only account.
		return Session{}, unauthorized("Invalid email or password")
	}
	if err := authpw.VerifyPassword(user.PasswordHash, input.Password); err != nil {
		if errors.Is(err, authpw.ErrMismatch) {
			return Session{}, unauthorized("Invalid email or password")
		}
		return Session{}, err
	}
	return s.openSession(ctx, user)
}

// GitHubAuthURL returns the OAuth redirect target, or an error when GitHub
// signin is not configured.
func (s *Service) GitHubAuthURL(state string) (string, error) {
	if s.oauth == nil || !s.oauth.IsConfigured() {
		return "", validationFailed("GitHub signin is not configured", nil)
	}
	return s.oauth.AuthURL(state), nil
}

// GitHubCallback completes the OAuth flow, creating the account on first
// signin.
func (s *Service) GitHubCallback(ctx context.Context, code string) (Session, error) {
	if s.oauth == nil || !s.oauth.IsConfigured() {
		return Session{}, validationFailed("GitHub signin is not configured", nil)
	}
	ghUser, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return Session{}, unauthorized("GitHub signin failed")
	}

	user, err := s.store.GetUserByGitHubID(ctx, ghUser.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Link to an existing account by email, otherwise create one.
		user, err = s.store.GetUserByEmail(ctx, ghUser.Email)
		if errors.Is(err, sql.ErrNoRows) {
			githubID := ghUser.ID
			user, err = s.store.InsertUser(ctx, store.User{
				ID:          util.NewID(),
				Email:       strings.ToLower(ghUser.Email),
				DisplayName: ghUser.Name,
				AvatarURL:   ghUser.AvatarURL,
				GitHubID:    &githubID,
			})
		}
	}
	if err != nil {
		return Session{}, err
	}
	return s.openSession(ctx, user)
}

func (s *Service) openSession(ctx context.Context, user store.User) (Session, error) {
	jti := util.NewID()
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), user.ID, user.DisplayName, jti, s.cfg.AccessTTL)
	if err != nil {
		return Session{}, err
	}

	refreshToken := util.NewSecret()
	err = s.sessions.Save(ctx, auth.HashToken(refreshToken), session.Session{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
	}, s.cfg.RefreshTTL)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		JTI:          jti,
		ExpiresAt:    s.now().Add(s.cfg.AccessTTL),
	}, nil
}

// Refresh rotates the refresh token and issues a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	hash := auth.HashToken(refreshToken)
	record, err := s.sessions.Lookup(ctx, hash)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Session{}, unauthorized("Invalid refresh token")
		}
		return Session{}, err
	}

	user, err := s.store.GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, unauthorized("Invalid refresh token")
		}
		return Session{}, err
	}

	if err := s.sessions.Revoke(ctx, hash); err != nil {
		return Session{}, err
	}
	return s.openSession(ctx, user)
}

func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, auth.HashToken(refreshToken))
}

// SessionFromToken validates an access token and returns the caller identity.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:   claims.Subject,
		UserName: claims.Name,
		JTI:      claims.ID,
	}, nil
}

type ProfileInput struct {
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (store.User, error) {
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return store.User{}, validationFailed("Display name is required", nil)
	}
	if err := s.store.UpdateUserProfile(ctx, userID, displayName, strings.TrimSpace(input.AvatarURL)); err != nil {
		return store.User{}, err
	}
	return s.store.GetUserByID(ctx, userID)
}
