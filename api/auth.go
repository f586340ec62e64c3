package api

import (
	"errors"

	"github.com/fatimetou23083/CacheFlow/auth"
	"github.com/fatimetou23083/CacheFlow/httpx"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) register(c httpx.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "malformed request body")
	}
	user, err := a.auth.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, auth.ErrEmailInUse):
			return httpx.HTTPError(httpx.StatusConflict, err.Error())
		case errors.Is(err, auth.ErrInvalidUsername),
			errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrPasswordTooShort):
			return httpx.HTTPError(httpx.StatusBadRequest, err.Error())
		default:
			return err
		}
	}
	return c.JSON(httpx.StatusCreated, user)
}

func (a *API) login(c httpx.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "malformed request body")
	}
	user, token, err := a.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return httpx.HTTPError(httpx.StatusUnauthorized, "invalid credentials")
		}
		return err
	}
	return c.JSON(httpx.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (a *API) me(c httpx.Context) error {
	claims, ok := httpx.ClaimsFrom(c)
	if !ok {
		return httpx.HTTPError(httpx.StatusUnauthorized, "missing bearer token")
	}
	user, err := a.auth.UserByID(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return httpx.HTTPError(httpx.StatusUnauthorized, "unknown user")
		}
		return err
	}
	return c.JSON(httpx.StatusOK, user)
}
