package pdsession

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// resolveResourceURL turns an endpoint argument into a URL. It accepts a
// path or URL string, or a resource object (as previously returned by the
// API) whose self attribute is used.
func resolveResourceURL(resource any) (string, error) {
	switch v := resource.(type) {
	case string:
		return v, nil
	case map[string]any:
		self, ok := v["self"].(string)
		if !ok || self == "" {
			return "", &URLError{msg: fmt.Sprintf(
				"the resource object provided in place of a URL lacks a \"self\" attribute; its keys are: %s",
				truncateText(mapKeys(v)))}
		}
		return self, nil
	default:
		return "", &URLError{msg: fmt.Sprintf(
			"URL argument must be a string or a resource object with a \"self\" attribute; got %T", resource)}
	}
}

// tryDecoding decodes the response body as JSON, replacing it afterwards so
// error construction can still quote it.
func tryDecoding(resp *http.Response) (any, error) {
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return nil, newServerError("could not read response body: "+err.Error(), resp)
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, newServerError("API responded with invalid JSON: "+truncateText(string(raw)), resp)
	}
	return body, nil
}

// wrapped performs one request through the entity-wrapping pipeline: the
// URL is classified against the canonical path catalog, the request body
// (if any) is wrapped, and the response entity is unwrapped.
func (c *Client) wrapped(ctx context.Context, method string, resource any, opts *RequestOptions) (any, error) {
	url, err := resolveResourceURL(resource)
	if err != nil {
		return nil, err
	}
	path, err := CanonicalPath(c.baseURL, url)
	if err != nil {
		return nil, err
	}
	reqWrapper, respWrapper, err := EntityWrappers(method, path)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &RequestOptions{}
	}
	if opts.Body != nil && reqWrapper != "" {
		opts = &RequestOptions{
			Params:  opts.Params,
			Headers: opts.Headers,
			Body:    map[string]any{reqWrapper: opts.Body},
		}
	}
	resp, err := c.Do(ctx, method, url, opts)
	if err != nil {
		return nil, err
	}
	resp, err = successfulResponse(resp, method+" "+path)
	if err != nil {
		return nil, err
	}
	if method == http.MethodDelete {
		drainBody(resp)
		return nil, nil
	}
	return unwrap(resp, respWrapper)
}

// RGet fetches a resource or collection and returns the unwrapped entity.
// The resource may be a path string or an object with a self attribute.
func (c *Client) RGet(ctx context.Context, resource any, params Params) (any, error) {
	return c.wrapped(ctx, http.MethodGet, resource, &RequestOptions{Params: params})
}

// RPost creates a resource; the body is wrapped per the endpoint's schema
// and the created entity is returned unwrapped.
func (c *Client) RPost(ctx context.Context, resource any, body any) (any, error) {
	return c.wrapped(ctx, http.MethodPost, resource, &RequestOptions{Body: body})
}

// RPut updates a resource; the body is wrapped per the endpoint's schema and
// the updated entity is returned unwrapped. The resource may be an object
// previously fetched from the API, in which case its self URL is used.
func (c *Client) RPut(ctx context.Context, resource any, body any) (any, error) {
	return c.wrapped(ctx, http.MethodPut, resource, &RequestOptions{Body: body})
}

// RDelete deletes a resource.
func (c *Client) RDelete(ctx context.Context, resource any) error {
	_, err := c.wrapped(ctx, http.MethodDelete, resource, nil)
	return err
}

// JGet performs a GET and returns the JSON-decoded response body without
// unwrapping.
func (c *Client) JGet(ctx context.Context, url string, opts *RequestOptions) (any, error) {
	return c.jsonRequest(ctx, http.MethodGet, url, opts)
}

// JPost performs a POST and returns the JSON-decoded response body without
// wrapping or unwrapping.
func (c *Client) JPost(ctx context.Context, url string, opts *RequestOptions) (any, error) {
	return c.jsonRequest(ctx, http.MethodPost, url, opts)
}

// JPut performs a PUT and returns the JSON-decoded response body without
// wrapping or unwrapping.
func (c *Client) JPut(ctx context.Context, url string, opts *RequestOptions) (any, error) {
	return c.jsonRequest(ctx, http.MethodPut, url, opts)
}

func (c *Client) jsonRequest(ctx context.Context, method, url string, opts *RequestOptions) (any, error) {
	resp, err := c.Do(ctx, method, url, opts)
	if err != nil {
		return nil, err
	}
	resp, err = successfulResponse(resp, method+" "+url)
	if err != nil {
		return nil, err
	}
	return tryDecoding(resp)
}

func mapKeys(obj map[string]any) string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
