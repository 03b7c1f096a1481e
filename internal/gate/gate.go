// Package gate decides, per request, whether the browser session may see
// protected pages. The decision is a small state machine run against the
// session store and the backend's verify endpoint.
package gate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/leikapui/sales-dashboard/internal/model"
)

// State of a gate check.
type State int

const (
	Initializing State = iota
	Unauthenticated
	Authenticated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Authenticator is the part of the auth service the gate drives.
type Authenticator interface {
	IsTokenExpiringSoon(ctx context.Context) bool
	VerifyToken(ctx context.Context) bool
	Logout(ctx context.Context) error
}

// SessionReader exposes the stored session halves.
type SessionReader interface {
	Token(ctx context.Context) (string, bool)
	User(ctx context.Context) (*model.User, bool)
}

// Result is the outcome of Check. User is set only when Authenticated.
type Result struct {
	State  State
	User   *model.User
	Reason string
}

// Gate runs the session check.
type Gate struct {
	Logger *zap.SugaredLogger
}

// New returns a Gate logging through logger (nil disables logging).
func New(logger *zap.SugaredLogger) *Gate {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Gate{Logger: logger}
}

// Check walks the session through the gate:
//
//	no token             -> Unauthenticated
//	token expiring soon  -> logout, Unauthenticated (no verify call)
//	verify fails         -> logout, Unauthenticated
//	verify ok, no user   -> logout, Unauthenticated
//	verify ok            -> Authenticated
//
// Any panic on the way fails closed.
func (g *Gate) Check(ctx context.Context, sess SessionReader, auth Authenticator) (res Result) {
	res = Result{State: Initializing}
	defer func() {
		if r := recover(); r != nil {
			g.Logger.Errorw("auth check failed", "panic", r)
			res = Result{State: Unauthenticated, Reason: "check failed"}
		}
	}()

	if _, ok := sess.Token(ctx); !ok {
		return Result{State: Unauthenticated, Reason: "no token"}
	}

	if auth.IsTokenExpiringSoon(ctx) {
		g.Logger.Infow("token expiring soon, forcing logout")
		g.logout(ctx, auth)
		return Result{State: Unauthenticated, Reason: "token expiring"}
	}

	if !auth.VerifyToken(ctx) {
		g.Logger.Infow("token verification failed, clearing session")
		g.logout(ctx, auth)
		return Result{State: Unauthenticated, Reason: "verification failed"}
	}

	u, ok := sess.User(ctx)
	if !ok {
		g.Logger.Warnw("token verified but user record missing, clearing session")
		g.logout(ctx, auth)
		return Result{State: Unauthenticated, Reason: "user missing"}
	}
	return Result{State: Authenticated, User: u}
}

func (g *Gate) logout(ctx context.Context, auth Authenticator) {
	if err := auth.Logout(ctx); err != nil {
		g.Logger.Errorw("logout during gate check", "error", err)
	}
}
