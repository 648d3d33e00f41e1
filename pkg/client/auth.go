package client

import (
	"context"
	"fmt"

	"github.com/naveenspark/folio/pkg/domain"
)

// LoginRequest is the payload for both staff and customer login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"` // "staff" or "client"
}

// Login exchanges credentials for tokens and the caller's profile.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*domain.Credentials, error) {
	var creds domain.Credentials
	if err := c.post(ctx, "/auth/login", req, &creds); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if creds.UserType == "" {
		creds.UserType = req.UserType
	}
	return &creds, nil
}

// VerifyResponse is returned by the token verification endpoint.
type VerifyResponse struct {
	Valid    bool           `json:"valid"`
	UserType string         `json:"user_type"`
	Profile  domain.Profile `json:"profile"`
}

// Verify checks the stored bearer token against the server.
func (c *Client) Verify(ctx context.Context) (*VerifyResponse, error) {
	var v VerifyResponse
	if err := c.get(ctx, "/auth/verify", &v); err != nil {
		return nil, fmt.Errorf("client.Verify: %w", err)
	}
	return &v, nil
}

// Logout invalidates the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.post(ctx, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	return nil
}

// GetProfile returns the authenticated caller's profile.
func (c *Client) GetProfile(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.get(ctx, "/auth/profile", &p); err != nil {
		return nil, fmt.Errorf("client.GetProfile: %w", err)
	}
	return &p, nil
}

// UpdateProfileRequest is the payload for staff profile edits.
type UpdateProfileRequest struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// UpdateProfile edits the authenticated staff member's own profile.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*domain.Profile, error) {
	if req.Email != "" {
		if err := validateEmail(req.Email); err != nil {
			return nil, fmt.Errorf("client.UpdateProfile: %w", err)
		}
	}
	var p domain.Profile
	if err := c.put(ctx, "/auth/profile", req, &p); err != nil {
		return nil, fmt.Errorf("client.UpdateProfile: %w", err)
	}
	return &p, nil
}
