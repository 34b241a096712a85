package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"filedrop/internal/middleware"
	"filedrop/internal/services"
	"filedrop/internal/utils"
)

// AuthHandler handles signup, login and logout routes
type AuthHandler struct {
	DB       *gorm.DB
	Sessions *middleware.SessionStore
}

// signupInput is the request body for POST /api/auth/signup
type signupInput struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	Password2 string `json:"password_2"`
}

// loginInput is the request body for POST /api/auth/login
type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup handles POST /api/auth/signup
// @Summary Create a new account
// @Description Creates a user and provisions download grants for every existing file
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body signupInput true "Account details"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var body signupInput
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "auth.validation.input")
	}

	if body.Username == "" || body.Password == "" {
		return utils.ErrorResponse(c, "Username and password are required", fiber.StatusBadRequest, "auth.validation.input")
	}

	user, err := services.Signup(h.DB, body.Username, body.Name, body.Password, body.Password2)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPasswordMismatch):
			return utils.ErrorResponse(c, "Passwords do not match", fiber.StatusBadRequest, "auth.signup.password")
		case errors.Is(err, services.ErrDuplicateName):
			return utils.ErrorResponse(c, "User already exists", fiber.StatusConflict, "auth.signup.duplicate")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "signup")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":      true,
		"message": "Signup successful",
		"user":    user,
	})
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Description Verifies credentials and sets the session cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body loginInput true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body loginInput
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "auth.validation.input")
	}

	user, err := services.Login(h.DB, body.Username, body.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return utils.ErrorResponse(c, "Invalid username or password", fiber.StatusUnauthorized, "auth.login.credentials")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "login")
	}

	token := h.Sessions.Create(middleware.SessionUser{
		UserID:   user.UserID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	})
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":      true,
		"message": "Login successful",
		"user":    user,
	})
}

// Logout handles POST /api/auth/logout
// @Summary Log out
// @Description Destroys the current session
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := c.Cookies(middleware.SessionCookieName)
	if token != "" {
		h.Sessions.Delete(token)
	}
	c.ClearCookie(middleware.SessionCookieName)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":      true,
		"message": "Logged out",
	})
}
