package model

import "encoding/json"

// Role names issued by the sales backend.
const (
	RoleAdmin     = "admin"
	RoleFilmmaker = "filmmaker"
	RoleCustomer  = "customer"
)

// User represents the dashboard user profile returned by the backend at
// login. The record is held in the session store next to the token and is
// read back on every protected request.
//
// Fields:
//  ID              – backend identifier (Mongo style "_id").
//  Email           – login email.
//  Name            – display name shown in the navigation chrome.
//  Role            – admin, filmmaker or customer.
//  AssignedMovieID – movie a filmmaker is restricted to (empty otherwise).
type User struct {
	ID              string `json:"_id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	AssignedMovieID string `json:"assignedMovieId,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id" for the identifier since the
// login and verify endpoints do not agree on the key.
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

// IsAdmin reports whether the user may open the admin pages.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsFilmmaker reports whether the user is a filmmaker.
func (u User) IsFilmmaker() bool { return u.Role == RoleFilmmaker }

// RoleLabel is the short label rendered next to the user's name.
func (u User) RoleLabel() string {
	if u.IsAdmin() {
		return "Admin"
	}
	return "Filmmaker"
}

// Session pairs a bearer token with the profile it was issued for. Both
// halves are always written and cleared together.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
