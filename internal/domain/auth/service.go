package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

type Service struct {
	Store  StoreAPI
	Secret string
	TTL    time.Duration
	Log    *logrus.Logger
	Now    func() time.Time
}

func NewService(store StoreAPI, secret string, ttl time.Duration, log *logrus.Logger) *Service {
	return &Service{Store: store, Secret: secret, TTL: ttl, Log: log, Now: time.Now}
}

// Login checks the credentials of an active user and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := s.Store.FindActiveUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	issued := s.Now()
	token, err := GenerateToken(s.Secret, Claims{UserID: user.ID, Email: user.Email, Role: user.Role}, issued, s.TTL)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		s.Log.WithError(err).WithField("userId", user.ID).Warn("update last_login failed")
	}
	return Session{
		Token:     token,
		ExpiresAt: issued.Add(s.TTL),
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
	}, nil
}

// EnsureUser creates or refreshes a user with a bcrypt hash of password.
func (s *Service) EnsureUser(ctx context.Context, email, password, role string) (string, error) {
	if !ValidRole(role) {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return "", errors.New("email and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}
	return s.Store.UpsertUser(ctx, strings.ToLower(strings.TrimSpace(email)), hash, role)
}
