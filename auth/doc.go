// Package auth logs a rest.Client in and out.
//
// Two credential shapes are supported. In API-key mode the key is written
// into the X-Auth-Token header when the Authenticator is created and no login
// request is ever made. In interactive mode (local, RADIUS or TACACS+) Login
// POSTs the username and password and, on HTTP 200, copies the value of the
// surface's token cookie into the X-XSRF-TOKEN header. A 200 without that
// cookie is a failed login.
//
// The orchestrator and the appliance use different cookie names, so each has
// its own Adapter instead of one code path that tries both.
//
// Multi-factor login is two steps:
//
//	if !a.SendMFA(ctx) {
//		return errors.New("could not request a one-time code")
//	}
//	code := prompt()
//	if !a.LoginWithCode(ctx, code) {
//		return errors.New("login failed")
//	}
package auth
