package users

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vintagehub/market-api/internal/types"
	"github.com/vintagehub/market-api/pkg/response"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// UpdateProfileRequest carries the editable profile fields. Bio, region and
// avatar are accepted for forward compatibility but not persisted.
type UpdateProfileRequest struct {
	Username  *string `json:"username" binding:"omitempty,min=3,max=50"`
	FullName  *string `json:"full_name"`
	Bio       *string `json:"bio"`
	RegionID  *string `json:"region_id"`
	AvatarURL *string `json:"avatar_url"`
}

type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: NewDatabase(gormDB)}
}

// GetUser returns the profile for a user ID.
func (s *Service) GetUser(userID string) (*types.User, error) {
	user, err := s.db.GetUserByUserID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile applies the editable fields to the caller's own profile.
// Changing username requires the new name to be unused.
func (s *Service) UpdateProfile(userID string, req *UpdateProfileRequest) (*types.User, error) {
	user, err := s.db.GetUserByUserID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.Username != nil && *req.Username != "" && *req.Username != user.Username {
		existing, err := s.db.GetUserByUsername(*req.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrUsernameTaken
		}
		user.Username = *req.Username
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}

	if err := s.db.UpdateUser(user); err != nil {
		return nil, err
	}

	return user, nil
}

// GinHandlers contains HTTP handlers for user profile endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for user profile endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GetUserHandler handles GET requests for a user profile
// URL parameter: user_id
func (h *GinHandlers) GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.service.GetUser(c.Param("user_id"))
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(c, "User not found")
			return
		}
		response.Handle(c, user, err)
	}
}

// UpdateProfileHandler handles PATCH requests to the current user's profile
func (h *GinHandlers) UpdateProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		user, err := h.service.UpdateProfile(c.GetString("userID"), &req)
		switch {
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(c, "User not found")
		case errors.Is(err, ErrUsernameTaken):
			response.BadRequest(c, "Username already taken")
		default:
			response.Handle(c, user, err)
		}
	}
}
