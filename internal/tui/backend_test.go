package tui

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/naveenspark/folio/internal/fakeapi"
	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

// newBackend starts a fresh in-memory back-end and returns its base URL.
func newBackend(t *testing.T) string {
	t.Helper()
	s, err := fakeapi.New(fakeapi.Options{JWTKey: "tui-test"})
	if err != nil {
		t.Fatalf("fakeapi.New: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return ts.URL
}

func signIn(t *testing.T, url, email, password, userType string) *client.Client {
	t.Helper()
	creds, err := client.New(url, nil).Login(context.Background(), client.LoginRequest{Email: email, Password: password, UserType: userType})
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	return client.New(url, client.StaticToken(creds.AccessToken))
}

func adminClient(t *testing.T) *client.Client {
	return signIn(t, newBackend(t), fakeapi.SeedAdminEmail, fakeapi.SeedAdminPassword, domain.UserTypeStaff)
}

func customerClient(t *testing.T) *client.Client {
	return signIn(t, newBackend(t), fakeapi.SeedClientEmail, fakeapi.SeedClientPassword, domain.UserTypeClient)
}
