package auth

import (
	"errors"
	"fmt"

	"github.com/s0up4200/orchrest/session"
)

var (
	// ErrMissingAPIKey indicates API-key mode without a key.
	ErrMissingAPIKey = errors.New("api key is required in apikey mode")
	// ErrMissingLogin indicates interactive mode without a username or password.
	ErrMissingLogin = errors.New("user and password are required for interactive login")
)

// Credentials are the caller's login inputs. They are only read during a login
// call and never stored in the session.
type Credentials struct {
	Mode     session.AuthMode
	User     string
	Password string
	APIKey   string
	MFACode  string
}

// Validate checks that the fields the mode needs are present
func (c Credentials) Validate() error {
	switch {
	case !c.Mode.Valid():
		return fmt.Errorf("invalid auth mode %q", c.Mode)
	case c.Mode == session.AuthAPIKey && c.APIKey == "":
		return ErrMissingAPIKey
	case c.Mode.Interactive() && (c.User == "" || c.Password == ""):
		return ErrMissingLogin
	}
	return nil
}

// String hides secrets so credentials can be logged safely.
func (c Credentials) String() string {
	if c.Mode == session.AuthAPIKey {
		return "apikey(****)"
	}
	return fmt.Sprintf("%s(%s)", c.Mode, c.User)
}
