package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nutriscan-backend/internal/models"
	"github.com/nutriscan-backend/internal/repository"
	"github.com/nutriscan-backend/pkg/crypto"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotLoggedIn        = errors.New("not logged in")
)

// UserStore is the user data access the auth service needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsernameOrEmail(ctx context.Context, login string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// SessionStore issues and resolves opaque session ids. Entries expire
// on their own after TTL.
type SessionStore interface {
	Create(ctx context.Context, userID uint) (string, error)
	Get(ctx context.Context, sid string) (uint, error)
	Delete(ctx context.Context, sid string) error
	TTL() time.Duration
}

// AuthService handles registration, login and session resolution. The
// session cookie value is a signed wrapper around the opaque session
// id; the id alone grants nothing without the signature.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	secret   []byte
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserStore, sessions SessionStore, secret string) *AuthService {
	return &AuthService{users: users, sessions: sessions, secret: []byte(secret)}
}

// RegisterRequest represents the registration request
type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required,max=50"`
	LastName  string `json:"lastName" binding:"required,max=50"`
	Username  string `json:"username" binding:"required,min=3,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6,max=100"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Register registers a new user
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	exists, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	exists, err = s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	passwordHash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login verifies credentials and opens a session. It returns the
// signed cookie value.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (string, *models.User, error) {
	user, err := s.users.GetByUsernameOrEmail(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !crypto.CheckPassword(req.Password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	sid, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}

	cookie, err := s.signSession(sid)
	if err != nil {
		return "", nil, err
	}

	return cookie, user, nil
}

// Logout deletes the session behind the cookie value. An already
// expired or malformed cookie logs out trivially.
func (s *AuthService) Logout(ctx context.Context, cookieValue string) error {
	sid, err := s.verifySession(cookieValue)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, sid)
}

// Authenticate resolves a cookie value to the logged-in user id.
func (s *AuthService) Authenticate(ctx context.Context, cookieValue string) (uint, error) {
	sid, err := s.verifySession(cookieValue)
	if err != nil {
		return 0, ErrNotLoggedIn
	}
	userID, err := s.sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return 0, ErrNotLoggedIn
		}
		return 0, err
	}
	return userID, nil
}

// CurrentUser loads the profile of the logged-in user.
func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) signSession(sid string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessions.TTL())),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *AuthService) verifySession(cookieValue string) (string, error) {
	token, err := jwt.ParseWithClaims(cookieValue, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.SID == "" {
		return "", ErrNotLoggedIn
	}
	return claims.SID, nil
}
