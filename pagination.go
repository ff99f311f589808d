package pdsession

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strconv"
)

// iterationLimit is the hard pagination ceiling of classic offset-based
// pagination; requesting records past it results in a 400.
const iterationLimit = 10000

// TotalUnknown is passed to an ItemHook as the total when the API did not
// report one.
const TotalUnknown = -1

// ItemHook is called for each item yielded during iteration, with the item,
// its 1-based ordinal and the reported total count of results (or
// TotalUnknown), e.g. to print progress.
type ItemHook func(item map[string]any, ordinal int, total int)

// IterOptions carries optional settings for iteration.
type IterOptions struct {
	// Params are query parameters included on every page request. The
	// pagination parameters (limit, cursor, total) are managed by the
	// engine and ignored here, except that an "offset" value seeds the
	// starting offset of classic pagination.
	Params Params
	// PageSize overrides the session's default page size. Cursor-paginated
	// endpoints only receive a limit parameter when this is set.
	PageSize int
	// ItemHook, when non-nil, is invoked for each item before it is
	// yielded.
	ItemHook ItemHook
	// Total requests the server-side total count of results, passed to the
	// item hook; it is off by default because computing it slows index
	// queries down. Without it the hook receives TotalUnknown.
	Total bool
	// SilenceErrors stops iteration without surfacing request errors.
	// Classification errors (a URL that cannot be iterated) are always
	// surfaced.
	SilenceErrors bool
}

// IterAll iterates over all results from a resource collection index
// endpoint, transparently requesting pages as the consumer advances. The
// pagination style (classic offset or cursor-based) is selected by the
// endpoint. The sequence is lazy and single-use.
//
// The endpoint may be a path string or a resource object with a self
// attribute. A nil item with a non-nil error terminates the sequence.
func (c *Client) IterAll(ctx context.Context, resource any, opts *IterOptions) iter.Seq2[map[string]any, error] {
	if opts == nil {
		opts = &IterOptions{}
	}
	return func(yield func(map[string]any, error) bool) {
		url, err := resolveResourceURL(resource)
		if err != nil {
			yield(nil, err)
			return
		}
		path, err := CanonicalPath(c.baseURL, url)
		if err != nil {
			yield(nil, err)
			return
		}
		if isPathParam(lastNode(path)) {
			yield(nil, &URLError{msg: fmt.Sprintf(
				"path %s refers to an individual resource and cannot be iterated", path)})
			return
		}
		_, wrapper, err := EntityWrappers(http.MethodGet, path)
		if err != nil {
			yield(nil, err)
			return
		}
		if wrapper == "" {
			yield(nil, &URLError{msg: fmt.Sprintf(
				"path %s has entity wrapping disabled and cannot be iterated", path)})
			return
		}
		if supportsCursorPagination(path) {
			c.iterCursor(ctx, url, wrapper, opts, yield)
			return
		}
		c.iterOffset(ctx, url, wrapper, opts, yield)
	}
}

func (c *Client) pageSize(opts *IterOptions) int {
	if opts.PageSize > 0 {
		return opts.PageSize
	}
	return c.defaultPageSize
}

// iterOffset walks classic numeric pagination. After each page, both the
// offset and the next request's limit are recomputed from the number of
// records actually received rather than the requested limit, in case the
// server enforces a lower page size than requested; trusting the requested
// limit there would skip or duplicate records.
func (c *Client) iterOffset(ctx context.Context, url, wrapper string, opts *IterOptions, yield func(map[string]any, error) bool) {
	limit := c.pageSize(opts)
	offset := startingOffset(opts.Params)
	ordinal := 0
	for {
		if offset+limit > iterationLimit {
			c.logger.Warn("stopping iteration on endpoint: record limit exceeded",
				"url", url, "limit", iterationLimit)
			return
		}
		params := pageParams(opts.Params)
		params["limit"] = limit
		params["offset"] = offset
		if opts.Total {
			params["total"] = 1
		}
		body, resp, err := c.fetchPage(ctx, url, params)
		if err != nil {
			if !opts.SilenceErrors {
				yield(nil, err)
			}
			return
		}
		results, total, err := pageResults(body, wrapper, resp)
		if err != nil {
			if !opts.SilenceErrors {
				yield(nil, err)
			}
			return
		}
		for _, item := range results {
			ordinal++
			if opts.ItemHook != nil {
				opts.ItemHook(item, ordinal, total)
			}
			if !yield(item, nil) {
				return
			}
		}
		more, ok := body["more"].(bool)
		if !ok {
			c.logger.Warn("response from endpoint does not include a \"more\" property; assuming there are no more pages",
				"url", url)
			return
		}
		if !more || len(results) == 0 {
			return
		}
		offset += len(results)
		limit = len(results)
	}
}

// iterCursor walks cursor-based pagination, echoing each page's next_cursor
// until the API stops returning one. The page size is left to the server
// unless explicitly requested.
func (c *Client) iterCursor(ctx context.Context, url, wrapper string, opts *IterOptions, yield func(map[string]any, error) bool) {
	cursor := ""
	ordinal := 0
	for {
		params := pageParams(opts.Params)
		if opts.PageSize > 0 {
			params["limit"] = opts.PageSize
		}
		if cursor != "" {
			params["cursor"] = cursor
		}
		body, resp, err := c.fetchPage(ctx, url, params)
		if err != nil {
			if !opts.SilenceErrors {
				yield(nil, err)
			}
			return
		}
		results, _, err := pageResults(body, wrapper, resp)
		if err != nil {
			if !opts.SilenceErrors {
				yield(nil, err)
			}
			return
		}
		for _, item := range results {
			ordinal++
			if opts.ItemHook != nil {
				opts.ItemHook(item, ordinal, TotalUnknown)
			}
			if !yield(item, nil) {
				return
			}
		}
		next, _ := body["next_cursor"].(string)
		if next == "" {
			return
		}
		cursor = next
	}
}

// fetchPage requests one page and returns its decoded object body.
func (c *Client) fetchPage(ctx context.Context, url string, params Params) (map[string]any, *http.Response, error) {
	resp, err := c.Get(ctx, url, &RequestOptions{Params: params})
	if err != nil {
		return nil, nil, err
	}
	resp, err = successfulResponse(resp, "GET "+url)
	if err != nil {
		return nil, nil, err
	}
	decoded, err := tryDecoding(resp)
	if err != nil {
		return nil, nil, err
	}
	body, ok := decoded.(map[string]any)
	if !ok {
		return nil, nil, newServerError(fmt.Sprintf(
			"expected paginated response body from GET %s to be an object, but its type is %T", url, decoded), resp)
	}
	return body, resp, nil
}

// pageResults extracts the wrapped record list and the reported total (or
// TotalUnknown) from a page body.
func pageResults(body map[string]any, wrapper string, resp *http.Response) ([]map[string]any, int, error) {
	entity, err := unwrapBody(body, wrapper, resp)
	if err != nil {
		return nil, 0, err
	}
	list, ok := entity.([]any)
	if !ok {
		return nil, 0, newServerError(fmt.Sprintf(
			"expected the %q property of the paginated response to be a list, but its type is %T", wrapper, entity), resp)
	}
	results := make([]map[string]any, 0, len(list))
	for _, raw := range list {
		item, ok := raw.(map[string]any)
		if !ok {
			return nil, 0, newServerError(fmt.Sprintf(
				"expected entries of the %q list in the paginated response to be objects, but found a %T", wrapper, raw), resp)
		}
		results = append(results, item)
	}
	total := TotalUnknown
	if t, ok := body["total"].(float64); ok {
		total = int(t)
	}
	return results, total, nil
}

// startingOffset reads a caller-supplied starting offset for classic
// pagination.
func startingOffset(params Params) int {
	switch v := params["offset"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// pageParams copies user params so pagination keys never leak back into the
// caller's map.
func pageParams(params Params) Params {
	copied := make(Params, len(params)+3)
	for k, v := range params {
		switch k {
		case "limit", "offset", "cursor", "total":
			continue
		}
		copied[k] = v
	}
	return copied
}

// ListAll fetches every result from a resource collection index into a
// slice.
func (c *Client) ListAll(ctx context.Context, resource any, opts *IterOptions) ([]map[string]any, error) {
	var results []map[string]any
	for item, err := range c.IterAll(ctx, resource, opts) {
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, nil
}

// DictAll fetches every result from a resource collection index into a map
// keyed by the given attribute, "id" when empty. Records missing the
// attribute are skipped; later duplicates overwrite earlier ones.
func (c *Client) DictAll(ctx context.Context, resource any, opts *IterOptions, by string) (map[string]map[string]any, error) {
	if by == "" {
		by = "id"
	}
	results := map[string]map[string]any{}
	for item, err := range c.IterAll(ctx, resource, opts) {
		if err != nil {
			return nil, err
		}
		key, ok := item[by].(string)
		if !ok {
			continue
		}
		results[key] = item
	}
	return results, nil
}
