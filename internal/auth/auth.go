package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/vintagehub/market-api/internal/config"
	"github.com/vintagehub/market-api/internal/types"
	"github.com/vintagehub/market-api/pkg/response"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveUser       = errors.New("inactive user")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWrongTokenKind     = errors.New("invalid token type")
	ErrTokenGeneration    = errors.New("failed to generate token")
	ErrUserNotFound       = errors.New("user not found")
)

// Token kinds carried in the "type" claim. Access and refresh tokens are
// structurally identical apart from this discriminator and their lifetimes.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// Claims represents the JWT claims structure
type Claims struct {
	jwt.RegisteredClaims
	Kind  string `json:"type"`
	Email string `json:"email,omitempty"`
}

// TokenPair is returned by login and refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RegisterRequest is the payload for creating an account
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
}

// LoginRequest is the payload for obtaining a token pair
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the payload for exchanging a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Service handles registration, login and token issue/verification
type Service struct {
	db         *Database
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a new authentication service from the auth configuration
func NewService(gormDB *gorm.DB, cfg config.AuthConfig) *Service {
	return &Service{
		db:         NewDatabase(gormDB),
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  time.Duration(cfg.AccessTokenMinutes) * time.Minute,
		refreshTTL: time.Duration(cfg.RefreshTokenMinutes) * time.Minute,
	}
}

// Register creates a new user account with a bcrypt password hash.
// Email and username must be unused.
func (s *Service) Register(req RegisterRequest) (*types.User, error) {
	existing, err := s.db.GetUserByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	existing, err = s.db.GetUserByUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &types.User{
		UserID:       "USR_" + uuid.New().String(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.db.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials and issues a token pair. The access token
// additionally carries the user's email.
func (s *Service) Login(req LoginRequest) (*TokenPair, error) {
	user, err := s.db.GetUserByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	access, err := s.issueToken(user.UserID, TokenKindAccess, s.accessTTL, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issueToken(user.UserID, TokenKindRefresh, s.refreshTTL, "")
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *Service) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.verifyToken(refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	access, err := s.issueToken(claims.Subject, TokenKindAccess, s.accessTTL, "")
	if err != nil {
		return nil, err
	}
	refresh, err := s.issueToken(claims.Subject, TokenKindRefresh, s.refreshTTL, "")
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Me returns the profile for the given user ID
func (s *Service) Me(userID string) (*types.User, error) {
	user, err := s.db.GetUserByUserID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// VerifyAccess resolves an access token to its subject user ID.
// Fails with ErrWrongTokenKind when a refresh token is presented.
func (s *Service) VerifyAccess(tokenString string) (string, error) {
	claims, err := s.verifyToken(tokenString, TokenKindAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *Service) issueToken(userID, kind string, ttl time.Duration, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind:  kind,
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", ErrTokenGeneration
	}
	return signed, nil
}

func (s *Service) verifyToken(tokenString, kind string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for authentication endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// RegisterHandler handles POST requests to create a new user account
func (h *GinHandlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		user, err := h.service.Register(req)
		switch {
		case errors.Is(err, ErrEmailTaken):
			response.BadRequest(c, "Email already registered")
		case errors.Is(err, ErrUsernameTaken):
			response.BadRequest(c, "Username already registered")
		default:
			response.Handle(c, user, err)
		}
	}
}

// LoginHandler handles POST requests to authenticate and issue tokens
func (h *GinHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		pair, err := h.service.Login(req)
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Unauthorized(c, "Invalid email or password")
		case errors.Is(err, ErrInactiveUser):
			response.Forbidden(c, "Inactive user")
		default:
			response.Handle(c, pair, err)
		}
	}
}

// RefreshHandler handles POST requests to exchange a refresh token
func (h *GinHandlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		pair, err := h.service.Refresh(req.RefreshToken)
		switch {
		case errors.Is(err, ErrInvalidToken):
			response.Unauthorized(c, "Invalid or expired token")
		case errors.Is(err, ErrWrongTokenKind):
			response.Unauthorized(c, "Invalid token type")
		default:
			response.Handle(c, pair, err)
		}
	}
}

// MeHandler handles GET requests for the current user's profile
func (h *GinHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		user, err := h.service.Me(userID)
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(c, "User not found")
			return
		}
		response.Handle(c, user, err)
	}
}
