package pdsession

import (
	"context"
	"net/http"
	neturl "net/url"
	"strings"
)

// Subdomain returns the subdomain of the PagerDuty account to which the
// credential grants access, derived from the HTML URL of a user in the
// account. The result is memoized for the lifetime of the credential.
func (c *Client) Subdomain(ctx context.Context) (string, error) {
	if c.subdomain.set {
		return c.subdomain.value, nil
	}
	body, err := c.RGet(ctx, "/users", Params{"limit": 1})
	if err != nil {
		return "", err
	}
	users, ok := body.([]any)
	if !ok || len(users) == 0 {
		return "", &ClientError{msg: "cannot determine the account subdomain: the users index returned no records"}
	}
	user, ok := users[0].(map[string]any)
	if !ok {
		return "", &ClientError{msg: "cannot determine the account subdomain: unexpected users index schema"}
	}
	htmlURL, _ := user["html_url"].(string)
	parsed, err := neturl.Parse(htmlURL)
	if err != nil || parsed.Hostname() == "" {
		return "", &ClientError{msg: "cannot determine the account subdomain: user record has no usable html_url"}
	}
	subdomain := strings.SplitN(parsed.Hostname(), ".", 2)[0]
	c.subdomain = memoCell{value: subdomain, set: true}
	return subdomain, nil
}

// APIKeyAccess reports the access level of the credential: "account" for an
// account-level access token, "user" otherwise. The result is memoized for
// the lifetime of the credential.
func (c *Client) APIKeyAccess(ctx context.Context) (string, error) {
	if c.apiKeyAccess.set {
		return c.apiKeyAccess.value, nil
	}
	resp, err := c.Get(ctx, "/users/me", nil)
	if err != nil {
		return "", err
	}
	access := "user"
	if resp.StatusCode == http.StatusBadRequest {
		// Account-level tokens have no corresponding user, and this
		// endpoint rejects them with a distinctive error message.
		if strings.Contains(responseText(resp), "account-level access token") {
			access = "account"
		} else {
			return "", newHTTPError(httpErrorMessage(resp, "GET /users/me"), resp)
		}
	} else if _, err := successfulResponse(resp, "GET /users/me"); err != nil {
		return "", err
	}
	drainBody(resp)
	c.apiKeyAccess = memoCell{value: access, set: true}
	return access, nil
}
