package handler

import (
	"github.com/labstack/echo/v4"

	"casalivre/internal/domain/entity"
	"casalivre/internal/domain/repository"
	"casalivre/internal/infrastructure/firebase"
	"casalivre/pkg/errors"
	"casalivre/pkg/response"
)

// DevTokenHandler issues local HS256 tokens so the API can be exercised
// without Firebase credentials. Only routed in development.
type DevTokenHandler struct {
	devTokens *firebase.DevTokenService
	userRepo  repository.UserRepository
}

var devTokenHandler *DevTokenHandler

func NewDevTokenHandler(devTokens *firebase.DevTokenService, userRepo repository.UserRepository) *DevTokenHandler {
	return &DevTokenHandler{
		devTokens: devTokens,
		userRepo:  userRepo,
	}
}

func SetupDevTokenHandler(devTokens *firebase.DevTokenService, userRepo repository.UserRepository) {
	devTokenHandler = NewDevTokenHandler(devTokens, userRepo)
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

type devTokenRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IssueToken mints a token for the given user id, creating the user mirror
// row when it does not exist yet.
func (h *DevTokenHandler) IssueToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	user, err := h.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		if !errors.Is(err, "NOT_FOUND") {
			return response.Error(c, err)
		}
		user = newDevUser(req)
		if err := h.userRepo.Upsert(ctx, user); err != nil {
			return response.Error(c, err)
		}
	}

	token, err := h.devTokens.Issue(user.ID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func newDevUser(req devTokenRequest) *entity.User {
	role := req.Role
	if role == "" {
		role = "user"
	}
	username := req.Username
	if username == "" {
		username = req.UserID
	}
	return &entity.User{ID: req.UserID, Username: username, Role: role}
}
