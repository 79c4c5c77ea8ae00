package carbonview_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/evmarket/carbonview"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestAuthController(client *MockSessionAPI) *carbonview.AuthController {
	manager := carbonview.NewManager(client)
	guard := carbonview.NewRouteGuard(manager)
	platform := carbonview.NewClient("http://127.0.0.1:0", carbonview.NewMemoryTokenStore())

	return carbonview.NewAuthController(func(a *carbonview.AuthController) *carbonview.AuthController {
		a.Manager = manager
		a.Guard = guard
		a.Client = platform
		return a
	})
}

func TestLoginShowPassesSafeNextToView(t *testing.T) {
	ctrl := newTestAuthController(&MockSessionAPI{})

	ctx := &MockContext{}
	ctx.On("Query", "next", "").Return("/owner/wallet")
	ctx.On("Render", ctrl.Views.Login, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		view, ok := args.Get(1).(router.ViewContext)
		require.True(t, ok, "expected router.ViewContext")
		assert.Equal(t, "/owner/wallet", view["next"])
	})

	require.NoError(t, ctrl.LoginShow(ctx))
	ctx.AssertExpectations(t)
}

func TestLoginShowDropsExternalNextTarget(t *testing.T) {
	ctrl := newTestAuthController(&MockSessionAPI{})

	ctx := &MockContext{}
	ctx.On("Query", "next", "").Return("https://evil.example/phish")
	ctx.On("Render", ctrl.Views.Login, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		view := args.Get(1).(router.ViewContext)
		assert.Equal(t, "", view["next"])
	})

	require.NoError(t, ctrl.LoginShow(ctx))
	ctx.AssertExpectations(t)
}

func bindLogin(payload carbonview.LoginRequest) func(mock.Arguments) {
	return func(args mock.Arguments) {
		target, ok := args.Get(0).(*carbonview.LoginRequest)
		if ok {
			*target = payload
		}
	}
}

func TestLoginPostValidationFailureRedisplaysForm(t *testing.T) {
	ctrl := newTestAuthController(&MockSessionAPI{})

	ctx := &MockContext{}
	ctx.On("Bind", mock.Anything).Return(nil).
		Run(bindLogin(carbonview.LoginRequest{Email: "not-an-email", Password: ""}))
	ctx.On("Render", ctrl.Views.Login, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		view := args.Get(1).(router.ViewContext)
		assert.NotEmpty(t, view["validation"])
	})

	require.NoError(t, ctrl.LoginPost(ctx))
	ctx.AssertNotCalled(t, "Redirect", mock.Anything, mock.Anything)
}

func TestLoginPostFailureKeepsFormEditable(t *testing.T) {
	client := &MockSessionAPI{}
	client.On("Login", mock.Anything, "owner@evmarket.test", "wrong").
		Return(nil, carbonview.ErrInvalidCredentials)

	ctrl := newTestAuthController(client)

	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil).
		Run(bindLogin(carbonview.LoginRequest{Email: "owner@evmarket.test", Password: "wrong"}))
	ctx.On("Render", ctrl.Views.Login, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		view := args.Get(1).(router.ViewContext)

		errs, ok := view["errors"].(map[string]string)
		require.True(t, ok)
		assert.Equal(t, "invalid email or password", errs["authentication"])

		record, ok := view["record"].(*carbonview.LoginRequest)
		require.True(t, ok)
		assert.Equal(t, "owner@evmarket.test", record.Email)
		assert.Empty(t, record.Password, "the password must not round-trip into the form")
	})

	require.NoError(t, ctrl.LoginPost(ctx))
	ctx.AssertExpectations(t)
}

func TestLoginPostRedirectPrefersNextField(t *testing.T) {
	client := &MockSessionAPI{}
	client.On("Login", mock.Anything, "owner@evmarket.test", "carbonview-dev").
		Return(ownerUser(), nil)

	ctrl := newTestAuthController(client)

	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil).
		Run(bindLogin(carbonview.LoginRequest{
			Email:    "owner@evmarket.test",
			Password: "carbonview-dev",
			Next:     "/owner/wallet",
		}))
	ctx.On("Redirect", "/owner/wallet", []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.LoginPost(ctx))
	ctx.AssertExpectations(t)
}

func TestLoginPostRedirectFallsBackToRejectedRouteCookie(t *testing.T) {
	client := &MockSessionAPI{}
	client.On("Login", mock.Anything, "owner@evmarket.test", "carbonview-dev").
		Return(ownerUser(), nil)

	ctrl := newTestAuthController(client)

	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil).
		Run(bindLogin(carbonview.LoginRequest{Email: "owner@evmarket.test", Password: "carbonview-dev"}))
	ctx.On("Cookies", carbonview.DefaultRejectedRouteKey).Return("/owner/journeys")
	ctx.On("Cookie", mock.Anything).Return()
	ctx.On("Redirect", "/owner/journeys", []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.LoginPost(ctx))
	ctx.AssertExpectations(t)
}

func TestLoginPostRedirectDefaultsToRoleHome(t *testing.T) {
	client := &MockSessionAPI{}
	client.On("Login", mock.Anything, "owner@evmarket.test", "carbonview-dev").
		Return(ownerUser(), nil)

	ctrl := newTestAuthController(client)

	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil).
		Run(bindLogin(carbonview.LoginRequest{Email: "owner@evmarket.test", Password: "carbonview-dev"}))
	ctx.On("Cookies", carbonview.DefaultRejectedRouteKey).Return("")
	ctx.On("Redirect", "/owner/dashboard", []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.LoginPost(ctx))
	ctx.AssertExpectations(t)
}

func TestLogOutSignsOutAndGoesHome(t *testing.T) {
	client := &MockSessionAPI{}
	client.On("Logout", mock.Anything).Return(nil)

	ctrl := newTestAuthController(client)

	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background())
	ctx.On("Redirect", "/", []int{http.StatusTemporaryRedirect}).Return(nil)

	require.NoError(t, ctrl.LogOut(ctx))
	assert.Equal(t, carbonview.StatusUnauthenticated, ctrl.Manager.Current().Status)
	ctx.AssertExpectations(t)
}

func TestLoginRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload carbonview.LoginRequest
		wantErr bool
	}{
		{"valid", carbonview.LoginRequest{Email: "owner@evmarket.test", Password: "carbonview-dev"}, false},
		{"missing email", carbonview.LoginRequest{Password: "carbonview-dev"}, true},
		{"malformed email", carbonview.LoginRequest{Email: "nope", Password: "carbonview-dev"}, true},
		{"missing password", carbonview.LoginRequest{Email: "owner@evmarket.test"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistrationCreatePayloadValidate(t *testing.T) {
	valid := carbonview.RegistrationCreatePayload{
		FullName:        "Olive Driver",
		Email:           "owner@evmarket.test",
		Phone:           "+1 415 555 2671",
		Role:            "OWNER",
		Password:        "longenoughpassword",
		ConfirmPassword: "longenoughpassword",
	}

	tests := []struct {
		name    string
		mutate  func(p *carbonview.RegistrationCreatePayload)
		wantErr bool
	}{
		{"valid owner", func(p *carbonview.RegistrationCreatePayload) {}, false},
		{"valid buyer without phone", func(p *carbonview.RegistrationCreatePayload) {
			p.Role = "BUYER"
			p.Phone = ""
		}, false},
		{"short password", func(p *carbonview.RegistrationCreatePayload) {
			p.Password = "short"
			p.ConfirmPassword = "short"
		}, true},
		{"password mismatch", func(p *carbonview.RegistrationCreatePayload) {
			p.ConfirmPassword = "somethingelse"
		}, true},
		{"cva cannot self-register", func(p *carbonview.RegistrationCreatePayload) {
			p.Role = "CVA"
		}, true},
		{"admin cannot self-register", func(p *carbonview.RegistrationCreatePayload) {
			p.Role = "ADMIN"
		}, true},
		{"unknown role", func(p *carbonview.RegistrationCreatePayload) {
			p.Role = "SUPERVISOR"
		}, true},
		{"bad phone", func(p *carbonview.RegistrationCreatePayload) {
			p.Phone = "not-a-number"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := valid
			tt.mutate(&payload)
			err := payload.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
