package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/leikapui/sales-dashboard/internal/auth"
	"github.com/leikapui/sales-dashboard/internal/model"
)

// FilmmakerInput is the admin form for a new filmmaker account.
type FilmmakerInput struct {
	Name            string `json:"name" form:"name" validate:"required"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required"`
	AssignedMovieID string `json:"assignedMovieId" form:"assignedMovieId" validate:"required"`
}

type createUserRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Role            string `json:"role"`
	AssignedMovieID string `json:"assignedMovieId"`
}

// CreateUserResult is the backend's answer to a user creation.
type CreateUserResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Messages surfaced by CreateFilmmakerUser.
const (
	MsgNoToken         = "No authentication token found. Please login again."
	MsgAuthFailed      = "Authentication failed. Please login again."
	MsgCreateFilmmaker = "Failed to create filmmaker"
)

// CreateFilmmakerUser creates a filmmaker restricted to in.AssignedMovieID.
// Without a token it fails before any request is made.
func (c *Client) CreateFilmmakerUser(ctx context.Context, in FilmmakerInput) (CreateUserResult, error) {
	if _, ok := c.store.Token(ctx); !ok {
		return CreateUserResult{}, auth.NewAuthError(MsgNoToken)
	}
	body := createUserRequest{
		Name:            in.Name,
		Email:           in.Email,
		Password:        in.Password,
		Role:            model.RoleFilmmaker,
		AssignedMovieID: in.AssignedMovieID,
	}
	code, raw, err := c.do(ctx, "create filmmaker", http.MethodPost, AdminUsersPath, nil, body)
	if err != nil {
		return CreateUserResult{}, err
	}
	if !success(code) {
		if code == http.StatusUnauthorized {
			return CreateUserResult{}, &auth.AuthError{Status: code, Message: MsgAuthFailed}
		}
		var eb struct {
			Message string `json:"message"`
		}
		msg := MsgCreateFilmmaker
		if json.Unmarshal(raw, &eb) == nil && eb.Message != "" {
			msg = eb.Message
		}
		c.logger.Warnw("create filmmaker rejected", "status", code, "message", msg)
		return CreateUserResult{}, &auth.AuthError{Status: code, Message: msg}
	}
	var res CreateUserResult
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &res); err != nil {
			return CreateUserResult{}, err
		}
	}
	return res, nil
}
