// Package fakeapi is an in-memory folio back-end: the REST API under /api and
// the two live namespaces under /ws. It backs `folio devserver` and the
// end-to-end tests.
package fakeapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/naveenspark/folio/pkg/domain"
)

// Options configures a Server.
type Options struct {
	// JWTKey signs access tokens. Required.
	JWTKey string
	// TokenTTL defaults to 24h.
	TokenTTL time.Duration
	// Assistant makes the automated assistant answer customer messages.
	Assistant bool
	// AssistantDelay is how long the assistant waits before answering.
	AssistantDelay time.Duration
	Logger         *zap.Logger
}

// Server is the fake back-end. It is safe for concurrent use.
type Server struct {
	opts   Options
	log    *zap.Logger
	db     *memory
	notify *Hub
	chat   *Hub
	engine *gin.Engine
}

// New builds the server and its routes.
func New(opts Options) (*Server, error) {
	if opts.JWTKey == "" {
		return nil, errors.New("fakeapi.New: JWT key is required")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.AssistantDelay <= 0 {
		opts.AssistantDelay = 200 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		opts:   opts,
		log:    log,
		db:     newMemory(),
		notify: NewHub(),
		chat:   NewHub(),
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.engine }

// Close drops every live connection.
func (s *Server) Close() {
	s.notify.CloseAll()
	s.chat.CloseAll()
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog(), securityHeaders())

	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(cfg))

	r.GET("/ws/notifications", s.serveLive(s.notify, s.onNotifyConnect, nil))
	r.GET("/ws/chat", s.serveLive(s.chat, nil, s.onChatEvent))

	api := r.Group("/api")
	api.POST("/auth/login", s.login)

	authed := api.Group("", s.requireAuth)
	authed.GET("/auth/verify", s.verify)
	authed.POST("/auth/logout", s.logout)
	authed.GET("/auth/profile", s.getProfile)
	authed.PUT("/auth/profile", staffOnly(), s.updateProfile)

	staff := authed.Group("", staffOnly())
	staff.GET("/clients", s.listClients)
	staff.POST("/clients", s.createClient)
	staff.GET("/clients/:id", s.getClient)
	staff.PUT("/clients/:id", s.updateClient)
	staff.DELETE("/clients/:id", s.deleteClient)

	staff.GET("/invoices", s.listInvoices)
	staff.POST("/invoices", s.createInvoice)
	staff.PUT("/invoices/:id", s.updateInvoice)
	staff.DELETE("/invoices/:id", s.deleteInvoice)
	staff.PATCH("/invoices/:id/status", s.updateInvoiceStatus)
	staff.POST("/invoices/:id/duplicate", s.duplicateInvoice)
	staff.POST("/invoices/:id/items", s.addInvoiceItem)
	staff.DELETE("/invoices/:id/items/:item", s.deleteInvoiceItem)
	// Customers may read and export their own invoices.
	authed.GET("/invoices/:id", s.getInvoice)
	authed.GET("/invoices/:id/pdf", s.exportInvoicePDF)

	admin := authed.Group("", staffOnly(domain.RoleAdmin))
	admin.GET("/users", s.listUsers)
	admin.POST("/users", s.createUser)
	admin.PUT("/users/:id", s.updateUser)
	admin.DELETE("/users/:id", s.deleteUser)
	admin.PATCH("/users/:id/role", s.changeUserRole)
	admin.PATCH("/users/:id/password", s.resetUserPassword)
	admin.GET("/admin/requests", s.listRequests)
	admin.POST("/admin/requests/:id/approve", s.approveRequest)
	admin.POST("/admin/requests/:id/reject", s.rejectRequest)

	self := authed.Group("/client", customerOnly())
	self.GET("/profile", s.getMyProfile)
	self.POST("/profile/request", s.requestProfileChange)
	self.POST("/password/request", s.requestPasswordChange)
	self.GET("/invoices", s.listMyInvoices)
	self.GET("/notifications", s.listMyNotifications)

	authed.GET("/notifications", s.listNotifications)
	authed.PATCH("/notifications/read-all", s.markAllRead)
	authed.PATCH("/notifications/:id/read", s.markRead)
	authed.DELETE("/notifications/:id", s.deleteNotification)
	authed.DELETE("/notifications", s.clearNotifications)
	staff.POST("/notifications/test", s.testNotification)

	authed.GET("/chat/conversations", s.listConversations)
	authed.POST("/chat/conversations", customerOnly(), s.createConversation)
	authed.GET("/chat/conversations/:id", s.getConversation)
	authed.GET("/chat/conversations/:id/messages", s.listMessages)
	staff.PATCH("/chat/conversations/:id/close", s.closeConversation)
	staff.PATCH("/chat/conversations/:id/reopen", s.reopenConversation)
	staff.GET("/chat/stats", s.chatStats)
	authed.GET("/assistant/status", s.assistantStatus)
	staff.GET("/assistant/stats", s.assistantStats)

	r.NoRoute(func(c *gin.Context) { fail(c, http.StatusNotFound, "route not found") })
	return r
}

// securityHeaders sets the usual hardening headers. TLS redirects stay off:
// the server only ever listens on loopback.
func securityHeaders() gin.HandlerFunc {
	mw := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IsDevelopment:      true,
	})
	return func(c *gin.Context) {
		if err := mw.Process(c.Writer, c.Request); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

// --- response envelope ---

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type response struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
	Errors  []fieldError `json:"errors,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response{Success: true, Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, response{Success: false, Message: msg})
}

func invalid(c *gin.Context, fields ...fieldError) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, response{Success: false, Message: "validation failed", Errors: fields})
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// --- tokens ---

type claims struct {
	UserID   string `json:"uid"`
	UserType string `json:"utype"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(a *account) (string, error) {
	now := time.Now()
	cl := claims{
		UserID:   a.ID,
		UserType: a.UserType,
		Role:     a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%d", a.ID, now.UnixNano()),
			Subject:   a.Email,
			Issuer:    "folio-devserver",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(s.opts.JWTKey))
}

var errBadToken = errors.New("invalid or expired token")

// authenticate resolves a bearer token to its account.
func (s *Server) authenticate(token string) (*account, *claims, error) {
	var cl claims
	tok, err := jwt.ParseWithClaims(token, &cl, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.opts.JWTKey), nil
	})
	if err != nil || !tok.Valid {
		return nil, nil, errBadToken
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, gone := s.db.revoked[cl.ID]; gone {
		return nil, nil, errBadToken
	}
	a, ok := s.db.accounts[cl.UserID]
	if !ok || !a.Active {
		return nil, nil, errBadToken
	}
	return a, &cl, nil
}

const (
	ctxAccount = "account"
	ctxClaims  = "claims"
)

func (s *Server) requireAuth(c *gin.Context) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		fail(c, http.StatusUnauthorized, "missing bearer token")
		return
	}
	a, cl, err := s.authenticate(strings.TrimPrefix(h, "Bearer "))
	if err != nil {
		fail(c, http.StatusUnauthorized, err.Error())
		return
	}
	c.Set(ctxAccount, a)
	c.Set(ctxClaims, cl)
	c.Next()
}

func actor(c *gin.Context) *account {
	return c.MustGet(ctxAccount).(*account)
}

// staffOnly admits staff, restricted to roles when any are given.
func staffOnly(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := actor(c)
		if a.UserType != domain.UserTypeStaff || (len(roles) > 0 && !contains(roles, a.Role)) {
			fail(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func customerOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor(c).UserType != domain.UserTypeClient {
			fail(c, http.StatusForbidden, "customers only")
			return
		}
		c.Next()
	}
}
