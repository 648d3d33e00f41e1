package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/naveenspark/folio/pkg/domain"
)

// --- Users ---

// UserRequest is the payload for creating or updating a staff user.
type UserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Password  string `json:"password,omitempty"`
}

// ListUsers returns a page of staff users.
func (c *Client) ListUsers(ctx context.Context, page, limit int, role string) (*domain.Page[domain.User], error) {
	var p domain.Page[domain.User]
	if err := c.get(ctx, "/users"+pageParams(page, limit, map[string]string{"role": role}), &p); err != nil {
		return nil, fmt.Errorf("client.ListUsers: %w", err)
	}
	return &p, nil
}

// CreateUser validates and creates a staff user.
func (c *Client) CreateUser(ctx context.Context, req UserRequest) (*domain.User, error) {
	if err := ValidateUser(req, true); err != nil {
		return nil, fmt.Errorf("client.CreateUser: %w", err)
	}
	var u domain.User
	if err := c.post(ctx, "/users", req, &u); err != nil {
		return nil, fmt.Errorf("client.CreateUser: %w", err)
	}
	return &u, nil
}

// UpdateUser validates and updates a staff user.
func (c *Client) UpdateUser(ctx context.Context, id string, req UserRequest) (*domain.User, error) {
	if err := ValidateUser(req, false); err != nil {
		return nil, fmt.Errorf("client.UpdateUser: %w", err)
	}
	var u domain.User
	if err := c.put(ctx, "/users/"+url.PathEscape(id), req, &u); err != nil {
		return nil, fmt.Errorf("client.UpdateUser: %w", err)
	}
	return &u, nil
}

// DeleteUser deletes a staff user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if err := c.del(ctx, "/users/"+url.PathEscape(id)); err != nil {
		return fmt.Errorf("client.DeleteUser: %w", err)
	}
	return nil
}

// ChangeUserRole assigns a new staff role.
func (c *Client) ChangeUserRole(ctx context.Context, id, role string) error {
	if !domain.ValidRole(role) {
		return fmt.Errorf("client.ChangeUserRole: %w", &ValidationError{Fields: []FieldError{{Field: "role", Message: "unknown role " + role}}})
	}
	if err := c.patch(ctx, "/users/"+url.PathEscape(id)+"/role", map[string]string{"role": role}, nil); err != nil {
		return fmt.Errorf("client.ChangeUserRole: %w", err)
	}
	return nil
}

// ResetUserPassword sets a new password for a staff user.
func (c *Client) ResetUserPassword(ctx context.Context, id, password string) error {
	if err := validatePassword(password); err != nil {
		return fmt.Errorf("client.ResetUserPassword: %w", err)
	}
	if err := c.patch(ctx, "/users/"+url.PathEscape(id)+"/password", map[string]string{"password": password}, nil); err != nil {
		return fmt.Errorf("client.ResetUserPassword: %w", err)
	}
	return nil
}

// --- Admin requests ---

// ListRequests returns admin requests, optionally filtered by status.
func (c *Client) ListRequests(ctx context.Context, page, limit int, status string) (*domain.Page[domain.AdminRequest], error) {
	var p domain.Page[domain.AdminRequest]
	if err := c.get(ctx, "/admin/requests"+pageParams(page, limit, map[string]string{"status": status}), &p); err != nil {
		return nil, fmt.Errorf("client.ListRequests: %w", err)
	}
	return &p, nil
}

// ApproveRequest applies a pending customer change.
func (c *Client) ApproveRequest(ctx context.Context, id string) error {
	if err := c.post(ctx, "/admin/requests/"+url.PathEscape(id)+"/approve", nil, nil); err != nil {
		return fmt.Errorf("client.ApproveRequest: %w", err)
	}
	return nil
}

// RejectRequest refuses a pending customer change.
func (c *Client) RejectRequest(ctx context.Context, id, reason string) error {
	if err := c.post(ctx, "/admin/requests/"+url.PathEscape(id)+"/reject", map[string]string{"reason": reason}, nil); err != nil {
		return fmt.Errorf("client.RejectRequest: %w", err)
	}
	return nil
}

// --- Client self-service ---

// GetMyProfile returns the authenticated customer's client record.
func (c *Client) GetMyProfile(ctx context.Context) (*domain.Client, error) {
	var cl domain.Client
	if err := c.get(ctx, "/client/profile", &cl); err != nil {
		return nil, fmt.Errorf("client.GetMyProfile: %w", err)
	}
	return &cl, nil
}

// RequestProfileChange files a profile change for staff review.
func (c *Client) RequestProfileChange(ctx context.Context, changes map[string]string) (*domain.AdminRequest, error) {
	if email, ok := changes["email"]; ok {
		if err := validateEmail(email); err != nil {
			return nil, fmt.Errorf("client.RequestProfileChange: %w", err)
		}
	}
	var r domain.AdminRequest
	if err := c.post(ctx, "/client/profile/request", map[string]any{"changes": changes}, &r); err != nil {
		return nil, fmt.Errorf("client.RequestProfileChange: %w", err)
	}
	return &r, nil
}

// RequestPasswordChange files a password change for staff review.
func (c *Client) RequestPasswordChange(ctx context.Context, current, next string) (*domain.AdminRequest, error) {
	if err := validatePassword(next); err != nil {
		return nil, fmt.Errorf("client.RequestPasswordChange: %w", err)
	}
	var r domain.AdminRequest
	body := map[string]string{"current_password": current, "new_password": next}
	if err := c.post(ctx, "/client/password/request", body, &r); err != nil {
		return nil, fmt.Errorf("client.RequestPasswordChange: %w", err)
	}
	return &r, nil
}

// ListMyInvoices returns the authenticated customer's invoices.
func (c *Client) ListMyInvoices(ctx context.Context, page, limit int) (*domain.Page[domain.Invoice], error) {
	var p domain.Page[domain.Invoice]
	if err := c.get(ctx, "/client/invoices"+pageParams(page, limit, nil), &p); err != nil {
		return nil, fmt.Errorf("client.ListMyInvoices: %w", err)
	}
	return &p, nil
}

// ListMyNotifications returns the authenticated customer's notifications.
func (c *Client) ListMyNotifications(ctx context.Context, page, limit int) (*domain.Page[domain.Notification], error) {
	var p domain.Page[domain.Notification]
	if err := c.get(ctx, "/client/notifications"+pageParams(page, limit, nil), &p); err != nil {
		return nil, fmt.Errorf("client.ListMyNotifications: %w", err)
	}
	return &p, nil
}
