package carbonview

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/nyaruka/phonenumbers"
)

type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
}

type AuthControllerViews struct {
	Login    string
	Register string
}

// AuthController renders and handles the console's auth screens. Login and
// logout go through the session Manager (never the client directly) so the
// single-writer rule holds; registration posts straight to the platform.
type AuthController struct {
	Debug        bool
	Logger       Logger
	Manager      *Manager
	Guard        *RouteGuard
	Client       *Client
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func (a *AuthController) WithLogger(logger Logger) *AuthController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:    "/login",
			Logout:   "/logout",
			Register: "/register",
		},
		Views: &AuthControllerViews{
			Login:    "login",
			Register: "register",
		},
	}

	c.ErrorHandler = defaultControllerErrHandler

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Manager == nil {
		panic("Missing session Manager in auth controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteGuard in auth controller...")
	}

	if c.Client == nil {
		panic("Missing platform Client in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the login, logout, and registration screens.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
		"next":   safeNextPath(ctx.Query("next", "")),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Next     string `form:"next" json:"next"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
			"next":       safeNextPath(payload.Next),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	if err := a.Manager.Login(ctx.Context(), payload.Email, payload.Password); err != nil {
		// Failed logins keep the form editable with an inline message; the
		// password never round-trips back into the form.
		if IsAuthenticationError(err) {
			errs["authentication"] = UserMessage(err)
		} else if IsNetworkError(err) {
			errs["network"] = "The marketplace platform is unreachable. Try again in a moment."
		} else {
			errs["authentication"] = "Unable to sign you in right now."
		}
		payload.Password = ""
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
			"next":   safeNextPath(payload.Next),
		})
	}

	redirect := safeNextPath(payload.Next)
	if redirect == "" {
		redirect = a.Guard.GetRedirect(ctx, "")
	}
	if redirect == "" {
		if sess := a.Manager.Current(); sess.User != nil {
			redirect = sess.User.Role.HomePath()
		} else {
			redirect = "/"
		}
	}

	a.Logger.Info("login redirect", "target", redirect)
	return ctx.Redirect(redirect, http.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Manager.Logout(ctx.Context())
	return ctx.Redirect("/", http.StatusTemporaryRedirect)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegistrationCreatePayload{},
		"roles":  selfServeRoles(),
	})
}

// RegistrationCreatePayload is the form payload. Only owner and buyer
// accounts self-register; CVA and admin accounts are provisioned
// platform-side.
type RegistrationCreatePayload struct {
	FullName        string `form:"full_name" json:"full_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Role            string `form:"role" json:"role"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(validPhoneNumber)),
		validation.Field(&r.Role, validation.Required, validation.By(validSelfServeRole)),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(stringEquals(r.Password, "passwords do not match")),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(http.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
			"roles":  selfServeRoles(),
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
			"roles":      selfServeRoles(),
		})
	}

	if err := a.Client.Register(ctx.Context(), payload); err != nil {
		a.Logger.Error("register platform call: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  UserMessage(err),
			"system_message": "Registration failed",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"registration": UserMessage(err)},
			"roles":  selfServeRoles(),
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Account created. Sign in to continue.",
	}).Redirect(a.Routes.Login, http.StatusSeeOther)
}

func selfServeRoles() []string {
	return []string{string(RoleOwner), string(RoleBuyer)}
}

func validSelfServeRole(value any) error {
	s, _ := value.(string)
	role, ok := ParseRole(s)
	if !ok || (role != RoleOwner && role != RoleBuyer) {
		return fmt.Errorf("role must be one of %s", strings.Join(selfServeRoles(), ", "))
	}
	return nil
}

func validPhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	num, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return fmt.Errorf("invalid phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return fmt.Errorf("invalid phone number")
	}
	return nil
}

func stringEquals(expected, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != expected {
			return fmt.Errorf("%s", message)
		}
		return nil
	}
}

// safeNextPath only accepts local absolute paths as a post-login target.
func safeNextPath(next string) string {
	if next == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(next)
	if err != nil {
		return ""
	}
	if !strings.HasPrefix(decoded, "/") || strings.HasPrefix(decoded, "//") {
		return ""
	}
	return decoded
}

func defaultControllerErrHandler(ctx router.Context, err error) error {
	return ctx.Status(http.StatusBadRequest).Render("errors/500", router.ViewContext{
		"error": UserMessage(err),
	})
}
