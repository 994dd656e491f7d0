package portal

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UsersLister lists the accounts known to the backend
type UsersLister interface {
	Users(ctx context.Context) ([]User, error)
}

type PortalRoutes struct {
	Home      string
	Login     string
	Register  string
	Dashboard string
	Logout    string
	Validate  string
	Session   string
	Metrics   string
}

type PortalViews struct {
	Login     string
	Register  string
	Dashboard string
	Loading   string
	Error     string
}

func DefaultPortalRoutes() *PortalRoutes {
	return &PortalRoutes{
		Home:      "/",
		Login:     "/login",
		Register:  "/register",
		Dashboard: "/dashboard",
		Logout:    "/logout",
		Validate:  "/validate/:form/:field",
		Session:   "/session",
		Metrics:   "/metrics",
	}
}

// PortalController serves the login, register and dashboard pages on
// top of a single Manager.
type PortalController struct {
	Debug   bool
	Logger  Logger
	Manager *Manager
	Users   UsersLister
	Guard   *Guard
	Engine  fiber.Views
	Routes  *PortalRoutes
	Views   *PortalViews
}

func NewPortalController(manager *Manager, users UsersLister) *PortalController {
	return &PortalController{
		Logger:  defLogger(),
		Manager: manager,
		Users:   users,
		Guard:   NewGuard(),
		Engine:  NewViewEngine(),
		Routes:  DefaultPortalRoutes(),
		Views: &PortalViews{
			Login:     "login",
			Register:  "register",
			Dashboard: "dashboard",
			Loading:   "loading",
			Error:     "error",
		},
	}
}

// RegisterPortalRoutes mounts the controller pages on app
func RegisterPortalRoutes[T any](app router.Router[T], controller *PortalController) {
	controller.Guard.LoginPath = controller.Routes.Login
	controller.Guard.LoadingView = controller.Views.Loading
	controller.Guard.Engine = controller.Engine
	controller.Guard.Logger = controller.Logger

	app.Use(SessionContext(controller.Manager))

	app.Get(controller.Routes.Home, controller.Home).
		SetName("home.get")

	app.Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.Dashboard, controller.Dashboard,
		controller.Guard.Middleware(controller.Manager),
	).SetName("dashboard.get")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")
	app.Post(controller.Routes.Logout, controller.LogOut).SetName("sign-out.post")

	app.Post(controller.Routes.Validate, controller.ValidateField).
		SetName("validate.post")
	app.Get(controller.Routes.Session, controller.Session).
		SetName("session.get")
}

// MountMetrics exposes g in the Prometheus text format on path
func MountMetrics(app *fiber.App, path string, g prometheus.Gatherer) {
	app.Get(path, adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

func (a *PortalController) Home(ctx router.Context) error {
	return redirect(ctx, a.Routes.Dashboard, http.StatusFound)
}

func (a *PortalController) LoginShow(ctx router.Context) error {
	page := NewLoginPage(a.Manager)
	return a.render(ctx, http.StatusOK, a.Views.Login, page.State())
}

func (a *PortalController) LoginPost(ctx router.Context) error {
	payload := new(LoginForm)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.renderBadRequest(ctx, a.Views.Login, NewLoginPage(a.Manager).State())
	}

	if a.Debug {
		a.Logger.Debug("login payload", "email", payload.Email)
	}

	page := NewLoginPage(a.Manager)
	page.Change(FieldEmail, payload.Email)
	page.Change(FieldPassword, payload.Password)

	return a.submit(ctx, page, a.Views.Login)
}

func (a *PortalController) RegistrationShow(ctx router.Context) error {
	page := NewRegisterPage(a.Manager)
	return a.render(ctx, http.StatusOK, a.Views.Register, page.State())
}

func (a *PortalController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegisterForm)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return a.renderBadRequest(ctx, a.Views.Register, NewRegisterPage(a.Manager).State())
	}

	if a.Debug {
		a.Logger.Debug("register payload", "name", payload.Name, "email", payload.Email)
	}

	page := NewRegisterPage(a.Manager)
	page.Change(FieldName, payload.Name)
	page.Change(FieldEmail, payload.Email)
	page.Change(FieldPassword, payload.Password)
	page.Change(FieldConfirmPassword, payload.ConfirmPassword)

	return a.submit(ctx, page, a.Views.Register)
}

func (a *PortalController) Dashboard(ctx router.Context) error {
	data := fiber.Map{
		"user": a.Manager.User(),
	}

	if a.Users != nil {
		users, err := a.Users.Users(ctx.Context())
		switch {
		case err == nil:
			data["users"] = users
		case IsUnauthorized(err):
			return redirect(ctx, a.Routes.Login, http.StatusFound)
		default:
			a.Logger.Error("dashboard failed to list users", "error", err)
			data["users_error"] = RemoteMessage(err, "Unable to load users.")
		}
	}

	return renderView(ctx, a.Engine, http.StatusOK, a.Views.Dashboard, a.viewContext(data))
}

func (a *PortalController) LogOut(ctx router.Context) error {
	a.Manager.Logout(ctx.Context())
	return redirect(ctx, a.Routes.Login, http.StatusSeeOther)
}

// ValidateField validates a single field of the login or register form
// and returns the message as JSON, empty when the field is valid.
func (a *PortalController) ValidateField(ctx router.Context) error {
	var page *Page
	switch PageKind(ctx.Param("form", "")) {
	case PageLogin:
		page = NewLoginPage(a.Manager)
	case PageRegister:
		page = NewRegisterPage(a.Manager)
	default:
		return ctx.JSON(http.StatusNotFound, fiber.Map{"error": "unknown form"})
	}

	payload := new(RegisterForm)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(http.StatusBadRequest, fiber.Map{"error": "Failed to parse form"})
	}

	page.Change(FieldName, payload.Name)
	page.Change(FieldEmail, payload.Email)
	page.Change(FieldPassword, payload.Password)
	page.Change(FieldConfirmPassword, payload.ConfirmPassword)

	field := ctx.Param("field", "")
	return ctx.JSON(http.StatusOK, fiber.Map{
		"field": field,
		"error": page.Blur(field),
	})
}

// Session reports the current session snapshot as JSON
func (a *PortalController) Session(ctx router.Context) error {
	return ctx.JSON(http.StatusOK, a.Manager.Snapshot())
}

func (a *PortalController) submit(ctx router.Context, page *Page, view string) error {
	res, err := page.Submit(ctx.Context())
	if errors.Is(err, ErrFormInvalid) {
		return a.render(ctx, http.StatusBadRequest, view, page.State())
	}
	if err != nil {
		a.Logger.Error("submit failed", "page", string(page.Kind()), "error", err)
		return a.render(ctx, http.StatusConflict, view, page.State())
	}

	if !res.Success {
		if a.Debug {
			a.Logger.Debug("submit rejected", "result", print.MaybePrettyJSON(res))
		}
		return a.render(ctx, http.StatusUnprocessableEntity, view, page.State())
	}

	return redirect(ctx, a.Routes.Dashboard, http.StatusSeeOther)
}

func (a *PortalController) renderBadRequest(ctx router.Context, view string, state FormState) error {
	state.SubmitError = "Failed to parse form"
	return a.render(ctx, http.StatusBadRequest, view, state)
}

func (a *PortalController) render(ctx router.Context, status int, view string, state FormState) error {
	state.Fields[FieldPassword] = ""
	if _, ok := state.Fields[FieldConfirmPassword]; ok {
		state.Fields[FieldConfirmPassword] = ""
	}

	return renderView(ctx, a.Engine, status, view, a.viewContext(fiber.Map{
		"record":       state.Fields,
		"errors":       state.FieldErrors,
		"submit_error": state.SubmitError,
	}))
}

func (a *PortalController) viewContext(data fiber.Map) fiber.Map {
	return viewContext(TemplateHelpersWithSession(a.Routes, a.Manager.Snapshot()), data)
}

// ErrorHandler renders unexpected handler errors with the error view.
// Use it as fiber.Config.ErrorHandler.
func (a *PortalController) ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	message := "An unexpected error occurred. Please try again later."

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	a.Logger.Error("portal handler error", "path", ctx.OriginalURL(), "status", code, "error", err)

	var buf bytes.Buffer
	if rerr := a.Engine.Render(&buf, a.Views.Error, a.viewContext(fiber.Map{"message": message})); rerr != nil {
		return ctx.Status(code).SendString(message)
	}
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Status(code).Send(buf.Bytes())
}
