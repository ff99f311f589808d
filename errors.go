package pdsession

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"
)

// textLenLimit is the longest permissible length of API content to include in
// error messages.
const textLenLimit = 100

// ClientError is the base error kind for all failures raised by this library:
// malformed input, unsupported methods, exhausted network retries and
// malformed response bodies. Refinements carry additional context.
type ClientError struct {
	// Method and URL identify the request that failed, when one was made.
	Method string
	URL    string

	msg   string
	cause error
}

// Error implements error.
func (e *ClientError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Unwrap returns the underlying cause, if any.
func (e *ClientError) Unwrap() error {
	return e.cause
}

// HTTPError refines ClientError for failures strictly associated with HTTP
// responses; Response is guaranteed to be non-nil. It is raised for
// authentication failures and for HTTP-status retries exhausted without
// success.
type HTTPError struct {
	ClientError

	// Response is the HTTP response that triggered the error. Its body has
	// already been read and replaced with a reusable reader.
	Response   *http.Response
	StatusCode int
}

// Unwrap exposes the base ClientError so errors.As can walk the refinement
// chain.
func (e *HTTPError) Unwrap() error {
	return &e.ClientError
}

// ServerError refines HTTPError for failed expectations made of the server:
// a response that violates the expected schema despite an ostensibly
// successful status, or a 5xx status surviving retry exhaustion.
type ServerError struct {
	HTTPError
}

// Unwrap exposes the HTTPError refinement.
func (e *ServerError) Unwrap() error {
	return &e.HTTPError
}

// URLError is raised when a path or URL cannot be matched to any canonical
// pattern, matches more than one ambiguously, or does not belong to the
// configured API host.
type URLError struct {
	msg string
}

// Error implements error.
func (e *URLError) Error() string {
	return e.msg
}

func newHTTPError(msg string, resp *http.Response) *HTTPError {
	e := &HTTPError{Response: resp, StatusCode: resp.StatusCode}
	e.msg = msg
	if resp.Request != nil {
		e.Method = resp.Request.Method
		e.URL = resp.Request.URL.String()
	}
	return e
}

func newServerError(msg string, resp *http.Response) *ServerError {
	e := &ServerError{}
	e.Response = resp
	e.StatusCode = resp.StatusCode
	e.msg = msg
	if resp.Request != nil {
		e.Method = resp.Request.Method
		e.URL = resp.Request.URL.String()
	}
	return e
}

// truncateText caps text at textLenLimit bytes for error messages, cutting
// on a rune boundary so multi-byte content is not mangled.
func truncateText(text string) string {
	if len(text) <= textLenLimit {
		return text
	}
	cut := textLenLimit - 1
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// responseText reads the full response body and restores it so that callers
// can still consume it afterwards.
func responseText(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return string(body)
}

// httpErrorMessage formats a diagnostic message for a HTTP error: method, URL,
// status and a length-capped excerpt of the response body.
func httpErrorMessage(resp *http.Response, context string) string {
	endpoint := "unknown endpoint"
	if resp.Request != nil {
		endpoint = resp.Request.Method + " " + resp.Request.URL.String()
	}
	contextMsg := ""
	if context != "" {
		contextMsg = " in " + context
	}
	if resp.StatusCode >= 400 {
		errType := "unknown"
		switch {
		case resp.StatusCode >= 500:
			errType = "server"
		case resp.StatusCode >= 400:
			errType = "client"
		}
		return fmt.Sprintf("%s: API responded with %s error (status %d)%s: %s",
			endpoint, errType, resp.StatusCode, contextMsg, truncateText(responseText(resp)))
	}
	return fmt.Sprintf("%s: success (status %d) but an expectation still failed%s",
		endpoint, resp.StatusCode, contextMsg)
}

// successfulResponse validates the response as successful, returning it
// unchanged if its status is 2xx. 5xx statuses become a ServerError, any
// other non-2xx status a HTTPError.
func successfulResponse(resp *http.Response, context string) (*http.Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	msg := httpErrorMessage(resp, context)
	if resp.StatusCode >= 500 {
		return nil, newServerError(msg, resp)
	}
	return nil, newHTTPError(msg, resp)
}
