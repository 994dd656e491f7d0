// Package server implements the reference remote API consumed by the
// portal: account registration, credential login, logout and a user
// listing guarded by bearer tokens.
package server

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config for the reference API
type Config struct {
	SigningKey    string
	TokenTTL      time.Duration
	AllowedOrigin string
	Issuer        string
	BcryptCost    int
	AccessLog     io.Writer
}

// Server wires the fiber app to the users repository and token service
type Server struct {
	app    *fiber.App
	users  *Users
	tokens *TokenService
	logger Logger
	cost   int
	now    func() time.Time
}

// Option customizes the Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests)
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
			s.tokens.now = now
		}
	}
}

// OpenDB opens a sqlite database through bun
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open database")
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func New(cfg Config, users *Users, opts ...Option) *Server {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "portal-api"
	}

	s := &Server{
		users:  users,
		tokens: NewTokenService([]byte(cfg.SigningKey), cfg.TokenTTL, issuer),
		logger: slog.Default().With("component", "portal-api"),
		cost:   cfg.BcryptCost,
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "portal-api",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	accessLog := cfg.AccessLog
	if accessLog == nil {
		accessLog = os.Stderr
	}
	s.app.Use(fiberlogger.New(fiberlogger.Config{Output: accessLog}))

	origin := cfg.AllowedOrigin
	if origin == "" {
		origin = "http://localhost:3000"
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     origin,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Authorization,Content-Type,Cache-Control",
		ExposeHeaders:    "Authorization",
		AllowCredentials: origin != "*",
	}))

	api := s.app.Group("/api")
	api.Post("/register", s.Register)
	api.Post("/login", s.Login)
	api.Post("/logout", s.Logout)
	api.Get("/users", RequireToken(s.tokens, s.logger), s.ListUsers)

	return s
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Tokens() *TokenService {
	return s.tokens
}

// Listen serves until ctx is cancelled
func (s *Server) Listen(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(5 * time.Second)
	}
}

func (s *Server) Register(c *fiber.Ctx) error {
	payload := new(RegisterRequest)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "Malformed request body", s.now())
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, validationMessage(err), s.now())
	}

	hash, err := HashPassword(payload.Password, s.cost)
	if err != nil {
		return err
	}

	user, err := s.users.Register(c.UserContext(), &User{
		Name:         trimName(payload.Name),
		Email:        normalizeEmail(payload.Email),
		PasswordHash: hash,
	})
	if errors.Is(err, ErrEmailInUse) {
		return badRequest(c, ErrEmailInUse.Message, s.now())
	}
	if err != nil {
		return err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return c.Status(http.StatusCreated).JSON(user.Response())
}

func (s *Server) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "Malformed request body", s.now())
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, validationMessage(err), s.now())
	}

	user, err := s.users.FindByEmail(c.UserContext(), normalizeEmail(payload.Email))
	if repository.IsRecordNotFound(err) {
		return badRequest(c, ErrInvalidCredentials.Message, s.now())
	}
	if err != nil {
		return err
	}

	if err := ComparePasswordAndHash(payload.Password, user.PasswordHash); err != nil {
		s.logger.Debug("password mismatch", "user_id", user.ID)
		return badRequest(c, ErrInvalidCredentials.Message, s.now())
	}

	token, issuedAt, err := s.tokens.Generate(user)
	if err != nil {
		return err
	}

	return c.JSON(LoginResponse{
		Token:    token,
		User:     user.Response(),
		Message:  "Login successful",
		IssuedAt: issuedAt.UTC().Format(time.RFC3339),
	})
}

// Logout acknowledges the request; tokens are stateless and simply expire
func (s *Server) Logout(c *fiber.Ctx) error {
	invalidated := c.Get(fiber.HeaderAuthorization)
	if invalidated == "" {
		invalidated = "none provided"
	}
	return c.JSON(fiber.Map{
		"message":          "Logout successful",
		"tokenInvalidated": invalidated,
	})
}

func (s *Server) ListUsers(c *fiber.Ctx) error {
	users, err := s.users.ListAll(c.UserContext())
	if err != nil {
		return err
	}

	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, user.Response())
	}
	return c.JSON(out)
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":     fe.Message,
			"timestamp": s.now().UTC().Format(time.RFC3339),
		})
	}

	s.logger.Error("api handler error", "path", c.OriginalURL(), "error", err)
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error":     "An unexpected error occurred. Please try again later.",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}
