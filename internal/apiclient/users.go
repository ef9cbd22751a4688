package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"carrental/internal/models"
)

// Login authenticates and holds the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	var result models.AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.Request(ctx, http.MethodPost, "/auth/login", body, &result); err != nil {
		return nil, err
	}
	c.adoptToken(ctx, result.Token)
	return &result, nil
}

// Register creates an account and holds the returned token.
func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.AuthResult, error) {
	var result models.AuthResult
	if err := c.Request(ctx, http.MethodPost, "/auth/register", reg, &result); err != nil {
		return nil, err
	}
	c.adoptToken(ctx, result.Token)
	return &result, nil
}

// Logout forgets the session locally; the backend keeps no session state.
func (c *Client) Logout(ctx context.Context) error {
	c.CancelAll()
	return c.ClearToken(ctx)
}

func (c *Client) adoptToken(ctx context.Context, token string) {
	// A failed write only costs the next run its session.
	if err := c.SetToken(ctx, token); err != nil {
		c.logger.Warn("token not persisted", zap.Error(err))
	}
}

func (c *Client) GetProfile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.Request(ctx, http.MethodGet, "/users/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, input models.UserInput) (*models.User, error) {
	var user models.User
	if err := c.Request(ctx, http.MethodPut, "/users/profile", input, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword reports the backend's success flag.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	body := map[string]string{"oldPassword": oldPassword, "newPassword": newPassword}
	if err := c.Request(ctx, http.MethodPost, "/users/change-password", body, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (c *Client) GetUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := c.Request(ctx, http.MethodGet, "/users", nil, &users)
	return users, err
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := c.Request(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CreateUser(ctx context.Context, input models.UserInput) (*models.User, error) {
	var user models.User
	if err := c.Request(ctx, http.MethodPost, "/users", input, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, input models.UserInput) (*models.User, error) {
	var user models.User
	if err := c.Request(ctx, http.MethodPut, "/users/"+url.PathEscape(id), input, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.Request(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
}

// GetDashboardStats feeds the admin dashboard.
func (c *Client) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := c.Request(ctx, http.MethodGet, "/stats/dashboard", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
