package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
	"github.com/maalej-ala/stage2-auth/internal/core/ports"
)

// UserHandler serves the ADMIN-only account management routes.
type UserHandler struct {
	admin ports.AccountAdminService
}

func NewUserHandler(admin ports.AccountAdminService) *UserHandler {
	return &UserHandler{admin: admin}
}

type createUserRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName"  validate:"max=100"`
	Email     string `json:"email"     validate:"required,email,max=254"`
	Password  string `json:"password"  validate:"required,max=72"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
}

type updateUserRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName"  validate:"omitempty,max=100"`
	Email     *string `json:"email"     validate:"omitempty,email,max=254"`
	Password  string  `json:"password"  validate:"max=72"`
	Role      *string `json:"role"`
	Active    *bool   `json:"active"`
}

type createUserResponse struct {
	Message      string             `json:"message"`
	User         domain.AccountView `json:"user"`
	Token        string             `json:"token"`
	RefreshToken string             `json:"refreshToken"`
	ExpiresIn    int                `json:"expiresIn"`
}

type updateUserResponse struct {
	Message string             `json:"message"`
	User    domain.AccountView `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// List returns every account.
//
// @Summary      List accounts
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.AccountView
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/auth/users [get]
func (h *UserHandler) List(c echo.Context) error {
	views, err := h.admin.ListAccounts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

// Create adds an account on behalf of an administrator. The token pair in
// the response belongs to the calling administrator.
//
// @Summary      Create an account
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "Account details"
// @Success      200   {object}  createUserResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/auth/create [post]
func (h *UserHandler) Create(c echo.Context) error {
	callerToken, err := ctxToken(c)
	if err != nil {
		return err
	}

	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, session, err := h.admin.CreateAccount(c.Request().Context(), callerToken, ports.CreateAccountInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		Active:    req.Active,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, createUserResponse{
		Message:      "User created successfully",
		User:         view,
		Token:        session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
	})
}

// Update changes an account. Omitted fields keep their value; an omitted
// role resets the account to USER.
//
// @Summary      Update an account
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Account ID"
// @Param        body  body      updateUserRequest  true  "Fields to update"
// @Success      200   {object}  updateUserResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/auth/users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.admin.UpdateAccount(c.Request().Context(), caller, c.Param("id"), ports.UpdateAccountInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		Active:    req.Active,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updateUserResponse{Message: "User updated successfully", User: view})
}

// Delete removes an account.
//
// @Summary      Delete an account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/auth/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.admin.DeleteAccount(c.Request().Context(), caller, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "User deleted successfully"})
}
