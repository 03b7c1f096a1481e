package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/leikapui/sales-dashboard/internal/apiclient"
	"github.com/leikapui/sales-dashboard/internal/auth"
	"github.com/leikapui/sales-dashboard/internal/gate"
	"github.com/leikapui/sales-dashboard/internal/session"
)

// Deps builds the per-session services handlers work with. Services are
// cheap values bound to one browser session and are created per request.
type Deps struct {
	Auth     auth.Config
	API      apiclient.Config
	Location *time.Location
	Logger   *zap.SugaredLogger
	Validate *validator.Validate
}

// AuthFor returns the auth service for store.
func (d *Deps) AuthFor(store *session.Store) *auth.Service {
	return auth.New(d.Auth, store)
}

// Authenticator adapts AuthFor to the gate.
func (d *Deps) Authenticator(store *session.Store) gate.Authenticator {
	return d.AuthFor(store)
}

// APIFor returns a backend client for store. A 401 from any call goes
// through the auth service so the session change is announced.
func (d *Deps) APIFor(store *session.Store) *apiclient.Client {
	return apiclient.New(d.API, store, d.AuthFor(store))
}

func (d *Deps) now() time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	if d.API.Now != nil {
		return d.API.Now().In(loc)
	}
	return time.Now().In(loc)
}

func (d *Deps) logger() *zap.SugaredLogger {
	if d.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return d.Logger
}

var defaultValidate = validator.New()

func (d *Deps) validate(v any) error {
	if d.Validate == nil {
		return defaultValidate.Struct(v)
	}
	return d.Validate.Struct(v)
}
