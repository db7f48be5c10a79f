// Package rest is the dispatch core every endpoint wrapper goes through.
//
// A wrapper supplies only the verb, a path relative to the session's REST
// prefix, an optional body and, when the defaults do not fit, the expected
// status codes and the result shape:
//
//	res, err := client.Get(ctx, "/gmsserver/hello", rest.Returning(rest.ReturnText))
//	if err != nil {
//		// res is still shaped: res.Text() holds the body for text calls
//	}
//
// # Shaping
//
// Each call returns a non-nil *Result and an error that is nil exactly when
// the status was expected:
//
//   - json: decoded body; on an unexpected status, a Diagnostic
//     {request, api_path, status_code, text}
//   - text: raw body in both cases
//   - bool: true on success, false otherwise
//   - full_response: the response handle in both cases
//
// # Errors
//
// Nothing panics across the package boundary. Transport problems (refused or
// reset connections, TLS failures, timeouts, undecodable bodies) are logged
// once with a trace and come back as *Error with KindTransport. Unexpected
// statuses come back as KindProtocolStatus and are always logged at error
// level. An unrecognized return type is logged and reported as
// KindContractViolation, but the request is still sent.
//
// Every request path gets the tracking parameter source=menu_rest_apis_id,
// joined with "?" or "&" depending on whether the path already has a query.
package rest
