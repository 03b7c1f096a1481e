package apiclient

import (
	"net/url"

	"github.com/leikapui/sales-dashboard/internal/model"
)

// Scope is the effective data scope of the signed-in user. A filmmaker
// with an assigned movie only ever asks for that movie; the backend
// enforces the same rule on its side.
type Scope struct {
	MovieID string
}

// ScopeFor derives the scope of u. A nil user or any non-filmmaker role
// is unscoped.
func ScopeFor(u *model.User) Scope {
	if u == nil || !u.IsFilmmaker() || u.AssignedMovieID == "" {
		return Scope{}
	}
	return Scope{MovieID: u.AssignedMovieID}
}

// IsZero reports whether the scope adds no restriction.
func (s Scope) IsZero() bool { return s.MovieID == "" }

// Apply adds the scope's query parameters to q.
func (s Scope) Apply(q url.Values) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if s.MovieID != "" {
		q.Set("movieId", s.MovieID)
	}
	return q
}
