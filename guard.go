package portal

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

const DefaultLoginPath = "/login"

// Decision is the outcome of a guard check
type Decision int

const (
	// DecisionLoading means the session is still being restored
	DecisionLoading Decision = iota
	// DecisionRender means the protected content may be shown
	DecisionRender
	// DecisionRedirect means the visitor must be sent to the login page
	DecisionRedirect
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionRender:
		return "render"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Guard gates protected content on the session signals
type Guard struct {
	LoginPath string
	// LoadingView is rendered while restoring when Engine is set
	LoadingView string
	Engine      fiber.Views
	Logger      Logger
}

func NewGuard() *Guard {
	return &Guard{
		LoginPath:   DefaultLoginPath,
		LoadingView: "loading",
		Logger:      defLogger(),
	}
}

// Decide maps the session signals to a Decision
func (g *Guard) Decide(s Signals) Decision {
	if s.IsRestoring() {
		return DecisionLoading
	}
	if s.IsAuthenticated() {
		return DecisionRender
	}
	return DecisionRedirect
}

func (g *Guard) loginPath() string {
	if g.LoginPath == "" {
		return DefaultLoginPath
	}
	return g.LoginPath
}

// Middleware protects the routes it is attached to
func (g *Guard) Middleware(s Signals) router.MiddlewareFunc {
	logger := normalizeLogger(g.Logger)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			switch g.Decide(s) {
			case DecisionRender:
				return ctx.Next()

			case DecisionLoading:
				ctx.SetHeader(fiber.HeaderRetryAfter, "1")
				if g.Engine != nil && g.LoadingView != "" {
					return renderView(ctx, g.Engine, http.StatusServiceUnavailable, g.LoadingView, map[string]any{
						"path": ctx.Path(),
					})
				}
				ctx.SetHeader(router.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
				return ctx.Status(http.StatusServiceUnavailable).Send([]byte("Loading..."))

			default:
				logger.Info("no active session, redirecting to login", "path", ctx.Path())

				statusCode := http.StatusSeeOther
				if ctx.Method() == fiber.MethodGet {
					statusCode = http.StatusFound
				}
				return redirect(ctx, g.loginPath(), statusCode)
			}
		}
	}
}
