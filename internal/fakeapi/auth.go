package fakeapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/naveenspark/folio/pkg/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed body")
		return
	}
	var fields []fieldError
	if strings.TrimSpace(req.Email) == "" {
		fields = append(fields, fieldError{Field: "email", Message: "required"})
	}
	if req.Password == "" {
		fields = append(fields, fieldError{Field: "password", Message: "required"})
	}
	if len(fields) > 0 {
		invalid(c, fields...)
		return
	}

	s.db.mu.Lock()
	a := s.db.accountByEmail(req.Email, req.UserType)
	if a == nil || a.Password != req.Password || !a.Active {
		s.db.mu.Unlock()
		fail(c, http.StatusUnauthorized, "invalid email or password")
		return
	}
	profile := s.db.profile(a)
	s.db.mu.Unlock()

	token, err := s.issueToken(a)
	if err != nil {
		fail(c, http.StatusInternalServerError, "could not issue token")
		return
	}
	ok(c, domain.Credentials{
		AccessToken:  token,
		RefreshToken: uuid.NewString(),
		UserType:     a.UserType,
		Profile:      profile,
	})
}

func (s *Server) verify(c *gin.Context) {
	a := actor(c)
	s.db.mu.Lock()
	p := s.db.profile(a)
	s.db.mu.Unlock()
	ok(c, gin.H{"valid": true, "user_type": a.UserType, "profile": p})
}

func (s *Server) logout(c *gin.Context) {
	cl := c.MustGet(ctxClaims).(*claims)
	s.db.mu.Lock()
	s.db.revoked[cl.ID] = struct{}{}
	s.db.mu.Unlock()
	ok(c, nil)
}

func (s *Server) getProfile(c *gin.Context) {
	s.db.mu.Lock()
	p := s.db.profile(actor(c))
	s.db.mu.Unlock()
	ok(c, p)
}

type profileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed body")
		return
	}
	a := actor(c)
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if req.Email != "" && !strings.EqualFold(req.Email, a.Email) {
		if other := s.db.accountByEmail(req.Email, a.UserType); other != nil {
			invalid(c, fieldError{Field: "email", Message: "already in use"})
			return
		}
		a.Email = req.Email
	}
	if req.FirstName != "" {
		a.FirstName = req.FirstName
	}
	if req.LastName != "" {
		a.LastName = req.LastName
	}
	ok(c, s.db.profile(a))
}
