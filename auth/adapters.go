package auth

import "github.com/s0up4200/orchrest/session"

const (
	// APIKeyHeader carries a pre-issued API key.
	APIKeyHeader = "X-Auth-Token"
	// CSRFHeader carries the token captured from the login cookie.
	CSRFHeader = "X-XSRF-TOKEN"
)

// Adapter describes how one REST surface logs users in and out.
// Each surface recognizes exactly one token cookie.
type Adapter interface {
	// Name identifies the adapter in logs.
	Name() string
	// Surface is the REST surface the adapter talks to.
	Surface() session.Surface
	// LoginPath is the path the credentials are POSTed to.
	LoginPath() string
	// LoginBody builds the login payload.
	LoginBody(creds Credentials) any
	// TokenCookie is the response cookie that carries the session token.
	TokenCookie() string
	// TokenHeader is the request header the token is sent back in.
	TokenHeader() string
	// LogoutPath is the path that ends the remote session.
	LogoutPath() string
	// MFAPath requests an out-of-band one-time code; empty when unsupported.
	MFAPath() string
}

// Orchestrator returns the adapter for the orchestration controller surface.
func Orchestrator() Adapter { return orchestratorAdapter{} }

// Appliance returns the adapter for a managed edge appliance.
func Appliance() Adapter { return applianceAdapter{} }

// ForSurface picks the adapter matching s.
func ForSurface(s session.Surface) Adapter {
	if s == session.Appliance {
		return Appliance()
	}
	return Orchestrator()
}

type orchestratorAdapter struct{}

func (orchestratorAdapter) Name() string { return "orchestrator" }
func (orchestratorAdapter) Surface() session.Surface { return session.Orchestrator }
func (orchestratorAdapter) LoginPath() string { return "/authentication/login" }
func (orchestratorAdapter) TokenCookie() string { return "orchCsrfToken" }
func (orchestratorAdapter) TokenHeader() string { return CSRFHeader }
func (orchestratorAdapter) LogoutPath() string { return "/authentication/logout" }
func (orchestratorAdapter) MFAPath() string { return "/authentication/loginToken" }

func (orchestratorAdapter) LoginBody(creds Credentials) any {
	body := orchestratorLogin{
		User:      creds.User,
		Password:  creds.Password,
		LoginType: creds.Mode.LoginType(),
	}
	if creds.MFACode != "" {
		code := creds.MFACode
		body.Token = &code
	}
	return body
}

type orchestratorLogin struct {
	User      string  `json:"user"`
	Password  string  `json:"password"`
	Token     *string `json:"token,omitempty"`
	LoginType int     `json:"loginType"`
}

type mfaRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
	TempCode bool   `json:"TempCode"`
}

type applianceAdapter struct{}

func (applianceAdapter) Name() string { return "appliance" }
func (applianceAdapter) Surface() session.Surface { return session.Appliance }
func (applianceAdapter) LoginPath() string { return "/login" }
func (applianceAdapter) TokenCookie() string { return "edgeosCsrfToken" }
func (applianceAdapter) TokenHeader() string { return CSRFHeader }
func (applianceAdapter) LogoutPath() string { return "/logout" }
func (applianceAdapter) MFAPath() string { return "" }

func (applianceAdapter) LoginBody(creds Credentials) any {
	return applianceLogin{
		User:      creds.User,
		Password:  creds.Password,
		LoginType: creds.Mode.LoginType(),
	}
}

type applianceLogin struct {
	User      string `json:"user"`
	Password  string `json:"password"`
	LoginType int    `json:"loginType"`
}
