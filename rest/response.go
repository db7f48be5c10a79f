package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// interpret classifies the response against spec and shapes the result.
func (c *Client) interpret(spec RequestSpec, resp *http.Response, body []byte) (*Result, error) {
	result := &Result{
		Type:       spec.Return,
		Method:     spec.Method,
		Path:       spec.Path,
		StatusCode: resp.StatusCode,
	}

	if !spec.expects(resp.StatusCode) {
		c.logger.Error().
			Str("method", spec.Method).
			Str("path", spec.Path).
			Int("status_code", resp.StatusCode).
			Ints("expected", spec.Expected).
			Str("body", string(body)).
			Msg("Unexpected response status")

		switch spec.Return {
		case ReturnJSON:
			result.diag = &Diagnostic{
				Request:    spec.Method,
				APIPath:    spec.Path,
				StatusCode: resp.StatusCode,
				Text:       string(body),
			}
		case ReturnText:
			result.text = string(body)
		case ReturnBool:
			result.flag = false
		case ReturnFullResponse:
			result.raw = &Response{Response: resp, Payload: body}
		}
		return result, newStatusError(spec.Method, spec.Path, resp.StatusCode, body)
	}

	switch spec.Return {
	case ReturnJSON:
		data, err := decodeJSON(body)
		if err != nil {
			return c.transportFailure(spec, fmt.Errorf("failed to decode response body: %w", err), FaultMalformedResponse)
		}
		result.data = data
	case ReturnText:
		result.text = string(body)
	case ReturnBool:
		result.flag = true
	case ReturnFullResponse:
		result.raw = &Response{Response: resp, Payload: body}
	default:
		// Do reports the unrecognized return type
		return result, nil
	}

	event := c.logger.Info().
		Str("method", spec.Method).
		Str("path", spec.Path).
		Int("status_code", resp.StatusCode)
	if c.Session().LogSuccess() {
		event = event.Str("body", string(body))
	}
	event.Msg("Request succeeded")

	result.ok = true
	return result, nil
}

// decodeJSON decodes body into untyped data. An empty body decodes to nil.
func decodeJSON(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}
	return data, nil
}
