// Package session holds the connection context shared by every request a client
// makes: the base URL prefix, the TLS verification policy and the auth headers.
//
// Sessions are immutable values. The authenticator produces a new Session when
// it logs in or out and the REST client swaps it in atomically, so a request
// never observes a half-updated header map.
//
//	sess, err := session.New("orch.example.com", true, session.AuthLocal)
//	if err != nil {
//		return err
//	}
//	sess.BaseURL() // https://orch.example.com/gms/rest
package session
