package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-ticket-service/internal/api/dto"
	"github.com/spec-kit/field-ticket-service/internal/auth"
	"github.com/spec-kit/field-ticket-service/internal/service"
	apperrors "github.com/spec-kit/field-ticket-service/pkg/util/errorutil"
)

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	auth      *service.AuthService
	presenter *Presenter
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, presenter *Presenter) *UsersHandler {
	return &UsersHandler{auth: authService, presenter: presenter}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	session, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.session(session)})
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.session(session)})
}

// Me handles GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.presenter.user(principal.User)})
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.auth.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]*dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, h.presenter.user(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *UsersHandler) session(s *service.Session) dto.AuthResponse {
	return dto.AuthResponse{
		User:      *h.presenter.user(s.User),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}
