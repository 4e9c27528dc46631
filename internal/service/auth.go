package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"selfserve-api/internal/models"
	"selfserve-api/internal/repository"
)

var (
	ErrUserExists         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMFACodeRequired    = errors.New("mfa code required")
	ErrInvalidMFACode     = errors.New("invalid mfa code")
	ErrSessionRevoked     = errors.New("session is revoked or expired")
)

type AuthService struct {
	users     *repository.UserRepository
	sessions  *repository.SessionRepository
	orgs      *repository.OrganizationRepository
	jwtSecret []byte // Stored in env (JWT_SECRET)
	jwtExpiry time.Duration
}

func NewAuthService(users *repository.UserRepository, sessions *repository.SessionRepository, orgs *repository.OrganizationRepository, secret string, expiryHours int) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		orgs:      orgs,
		jwtSecret: []byte(secret),
		jwtExpiry: time.Duration(expiryHours) * time.Hour,
	}
}

// Register creates a user plus a personal organization they administer.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
		Role:         "member",
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	org := &models.Organization{
		Name:     name,
		Slug:     slugify(email),
		PlanName: "free",
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, err
	}

	membership := &models.Membership{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           "admin",
	}
	if err := s.orgs.CreateMembership(ctx, membership); err != nil {
		return nil, err
	}

	return user, nil
}

type LoginResult struct {
	Token   string
	User    *models.User
	Session *models.Session
}

// Login authenticates a user and opens a session. When the user has MFA
// enabled a valid TOTP code must accompany the credentials.
func (s *AuthService) Login(ctx context.Context, email, password, mfaCode, userAgent, ip string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if mfaCode == "" {
			return nil, ErrMFACodeRequired
		}
		if !verifyTOTPCode(user.MFASecret, mfaCode, time.Now()) {
			return nil, ErrInvalidMFACode
		}
	}

	membership, err := s.orgs.FindPrimaryMembership(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &models.Session{
		UserID:     user.ID,
		UserAgent:  userAgent,
		IPAddress:  ip,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.jwtExpiry),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{
		"user_id":    user.ID.String(),
		"session_id": session.ID.String(),
		"email":      user.Email,
		"role":       user.Role,
		"exp":        session.ExpiresAt.Unix(),
		"iat":        now.Unix(),
	}
	if membership != nil {
		claims["org_id"] = membership.OrganizationID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{Token: tokenString, User: user, Session: session}, nil
}

// Logout revokes the session behind the token.
func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessions.Revoke(ctx, sessionID)
}

// ValidateToken checks the JWT signature and that the backing session is
// still live. A revoked session kills the token immediately, before the
// JWT itself expires.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sessionID, err := uuid.Parse(claimString(claims, "session_id"))
	if err != nil {
		return nil, errors.New("invalid session claim")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Active(time.Now()) {
		return nil, ErrSessionRevoked
	}

	// Don't block the request on the bookkeeping write.
	go s.sessions.Touch(context.WithoutCancel(ctx), sessionID)

	return claims, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func slugify(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	local = strings.ToLower(strings.ReplaceAll(local, ".", "-"))
	return local + "-" + uuid.NewString()[:8]
}
