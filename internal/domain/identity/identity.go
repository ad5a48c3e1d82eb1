// Package identity holds the user and session records of the backoffice.
package identity

import "encoding/json"

// User is a backoffice user record.
type User struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"nombre"`
	Email  string `json:"email"`
	RoleID int64  `json:"role_id,omitempty"`
}

// Role is a named permission set.
type Role struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion,omitempty"`
}

// Session is the persisted client-side session state: the bearer token and
// the raw user profile payload returned at login. Both survive process
// restarts and are cleared together on logout.
type Session struct {
	Token string
	User  json.RawMessage
}

// LoginResponse is the auth endpoint's success payload. The token field name
// varies between deployments, so both spellings are accepted.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	Token       string          `json:"token"`
	User        json.RawMessage `json:"user"`
}

// BearerToken returns whichever token field the server populated.
func (r LoginResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}
