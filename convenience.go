package pdsession

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"strings"
)

// Find looks up a resource in a collection by exact, case-insensitive match
// of an attribute against a query string, applying the endpoint's query
// filter server-side to narrow the search. The attribute defaults to
// "name". It returns nil with no error when nothing matches.
func (c *Client) Find(ctx context.Context, resource any, query, attribute string) (map[string]any, error) {
	if attribute == "" {
		attribute = "name"
	}
	opts := &IterOptions{Params: Params{"query": query}}
	for item, err := range c.IterAll(ctx, resource, opts) {
		if err != nil {
			return nil, err
		}
		value, ok := item[attribute].(string)
		if ok && strings.EqualFold(value, query) {
			return item, nil
		}
	}
	return nil, nil
}

// Persist idempotently creates a resource, identified by the given unique
// attribute of the values object. When a resource with that attribute value
// already exists it is left alone, or, with update set, updated in place
// with the remaining values if any of them differ.
func (c *Client) Persist(ctx context.Context, resource any, attribute string, values map[string]any, update bool) (map[string]any, error) {
	query, ok := values[attribute].(string)
	if !ok {
		return nil, &ClientError{msg: fmt.Sprintf(
			"values object lacks a string value for the de-duplicating attribute %q", attribute)}
	}
	existing, err := c.Find(ctx, resource, query, attribute)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		created, err := c.RPost(ctx, resource, values)
		if err != nil {
			return nil, err
		}
		obj, ok := created.(map[string]any)
		if !ok {
			return nil, &ClientError{msg: fmt.Sprintf(
				"expected the created resource to be an object, but its type is %T", created)}
		}
		return obj, nil
	}
	if !update {
		return existing, nil
	}
	merged := maps.Clone(existing)
	maps.Copy(merged, values)
	if reflect.DeepEqual(merged, existing) {
		return existing, nil
	}
	updated, err := c.RPut(ctx, existing, merged)
	if err != nil {
		return nil, err
	}
	obj, ok := updated.(map[string]any)
	if !ok {
		return nil, &ClientError{msg: fmt.Sprintf(
			"expected the updated resource to be an object, but its type is %T", updated)}
	}
	return obj, nil
}
