package rest

import "strings"

// withSource appends the tracking parameter to path. A path without a query
// string gets "?source", one that already has a query gets "&source".
func withSource(path, source string) string {
	if strings.Contains(path, "?") {
		return path + "&" + source
	}
	return path + "?" + source
}

// requestURL joins the session prefix, the caller's path and the tracking parameter.
func (c *Client) requestURL(baseURL, path string) string {
	return baseURL + withSource(path, c.source)
}
