package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"taskini/internal/common"
	"taskini/internal/common/security"
	"taskini/internal/domain/model"
	"taskini/internal/domain/repository"

	"github.com/google/uuid"
)

// SessionStore revokes tokens and announces session changes.
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Publish(ctx context.Context, event model.SessionEvent) error
}

type AuthService struct {
	userRepo repository.UserRepository
	sessions SessionStore
}

func NewAuthService(userRepo repository.UserRepository, sessions SessionStore) *AuthService {
	return &AuthService{userRepo: userRepo, sessions: sessions}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Token identifies the credential presented on a request.
type Token struct {
	ID        string
	ExpiresAt time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, common.NewError(common.ErrValidation, "Please provide name, email and password")
	}
	if len(req.Password) < security.MinPasswordLength {
		return nil, common.NewError(common.ErrValidation, "Password must be at least %d characters", security.MinPasswordLength)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		HashedPassword: hashedPassword,
		Role:           model.RoleMember,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Repo returns common.ErrConflict on a duplicate email.
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := security.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.NewError(common.ErrValidation, "Please provide email and password")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrUnauthorized, "Invalid credentials")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.NewError(common.ErrUnauthorized, "Invalid credentials")
	}

	token, err := security.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	s.publish(ctx, model.SessionLogin, user.ID, tokenID(token))
	return &AuthResponse{User: user, Token: token}, nil
}

// Logout denies the presented token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, caller model.Caller, token Token) error {
	if err := s.sessions.Revoke(ctx, token.ID, token.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	s.publish(ctx, model.SessionLogout, caller.ID, token.ID)
	return nil
}

func (s *AuthService) publish(ctx context.Context, kind, userID, sessionID string) {
	event := model.SessionEvent{Type: kind, UserID: userID, SessionID: sessionID, At: time.Now().UTC()}
	if err := s.sessions.Publish(ctx, event); err != nil {
		log.Printf("WARN: publishing %s event for %s: %v", kind, userID, err)
	}
}

func tokenID(token string) string {
	t, err := security.TokenAuth.Decode(token)
	if err != nil {
		return ""
	}
	return t.JwtID()
}
