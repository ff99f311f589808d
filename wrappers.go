package pdsession

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// entityWrapping holds the envelope key used for each direction of a request.
// An empty string means the body passes through unwrapped in that direction.
type entityWrapping struct {
	request  string
	response string
}

// wrapNone disables wrapping in both directions.
var wrapNone = entityWrapping{}

func wrapBoth(name string) entityWrapping {
	return entityWrapping{request: name, response: name}
}

// entityWrapperConfig handles the endpoints that deviate from classic entity
// wrapping conventions. Keys are a capitalized HTTP method (or "*" to match
// any method), a space, and a canonical path as returned by CanonicalPath.
// Endpoints without an entry here are assumed to follow convention and their
// wrapper name is inferred (see inferEntityWrapper).
//
// An endpoint is said to have entity wrapping if the body (request or
// response) has only one property containing the content requested or
// transmitted, apart from properties used for pagination. If there are any
// secondary content-bearing properties, wrapping is disabled for it here to
// avoid discarding those properties.
var entityWrapperConfig = map[string]entityWrapping{
	// Analytics
	"* /analytics/metrics/incidents/all":       wrapNone,
	"* /analytics/metrics/incidents/services":  wrapNone,
	"* /analytics/metrics/incidents/teams":     wrapNone,
	"* /analytics/raw/incidents":               wrapNone,
	"* /analytics/raw/incidents/{id}":          wrapNone,
	"* /analytics/raw/incidents/{id}/responses": wrapNone,

	// Automation Actions
	"POST /automation_actions/actions/{id}/invocations": {response: "invocation"},

	// Paused Incident Reports
	"GET /paused_incident_reports/alerts": wrapBoth("paused_incident_reporting_counts"),
	"GET /paused_incident_reports/counts": wrapBoth("paused_incident_reporting_counts"),

	// Business Services
	"* /business_services/{id}/account_subscription":        wrapNone,
	"POST /business_services/{id}/subscribers":              {request: "subscribers", response: "subscriptions"},
	"POST /business_services/{id}/unsubscribe":              {request: "subscribers"},
	"* /business_services/priority_thresholds":              wrapNone,
	"GET /business_services/impacts":                        wrapBoth("services"),
	"GET /business_services/{id}/supporting_services/impacts": wrapBoth("services"),

	// Change Events
	"POST /change_events":                       wrapNone,
	"GET /incidents/{id}/related_change_events": wrapBoth("change_events"),

	// Event Orchestrations
	"* /event_orchestrations":                      wrapBoth("orchestrations"),
	"* /event_orchestrations/{id}":                 wrapBoth("orchestration"),
	"* /event_orchestrations/{id}/router":          wrapBoth("orchestration_path"),
	"* /event_orchestrations/{id}/unrouted":        wrapBoth("orchestration_path"),
	"* /event_orchestrations/services/{id}":        wrapBoth("orchestration_path"),
	"* /event_orchestrations/services/{id}/active": wrapNone,

	// Extensions
	"POST /extensions/{id}/enable": {response: "extension"},

	// Incidents
	"PUT /incidents":                                             wrapBoth("incidents"), // multi-update
	"PUT /incidents/{id}/merge":                                  {request: "source_incidents", response: "incident"},
	"POST /incidents/{id}/responder_requests":                    {response: "responder_request"},
	"POST /incidents/{id}/snooze":                                {response: "incident"},
	"POST /incidents/{id}/status_updates":                        {response: "status_update"},
	"POST /incidents/{id}/status_updates/subscribers":            {request: "subscribers", response: "subscriptions"},
	"POST /incidents/{id}/status_updates/unsubscribe":            {request: "subscribers"},
	"GET /incidents/{id}/business_services/impacts":              wrapBoth("services"),
	"PUT /incidents/{id}/business_services/{business_service_id}/impacts": wrapNone,

	// Incident Workflows
	"POST /incident_workflows/{id}/instances":        wrapBoth("incident_workflow_instance"),
	"POST /incident_workflows/triggers/{id}/services": {request: "service", response: "trigger"},

	// Response Plays
	"POST /response_plays/{response_play_id}/run": wrapNone,

	// Schedules
	"POST /schedules/{id}/overrides": {request: "overrides"},

	// Service Dependencies
	"POST /service_dependencies/associate": wrapBoth("relationships"),

	// Webhooks
	"POST /webhook_subscriptions/{id}/enable": {response: "webhook_subscription"},
	"POST /webhook_subscriptions/{id}/ping":   wrapNone,

	// Status Dashboards
	"GET /status_dashboards/{id}/service_impacts":                 wrapBoth("services"),
	"GET /status_dashboards/url_slugs/{url_slug}":                 wrapBoth("status_dashboard"),
	"GET /status_dashboards/url_slugs/{url_slug}/service_impacts": wrapBoth("services"),

	// Tags
	"POST /{entity_type}/{id}/change_tags": wrapNone,

	// Teams
	"PUT /teams/{id}/escalation_policies/{escalation_policy_id}": wrapNone,
	"POST /teams/{id}/notification_subscriptions":                {request: "subscribables", response: "subscriptions"},
	"POST /teams/{id}/notification_subscriptions/unsubscribe":    {request: "subscribables"},
	"PUT /teams/{id}/users/{user_id}":                            wrapNone,
	"GET /teams/{id}/notification_subscriptions":                 wrapBoth("subscriptions"),

	// Templates
	"POST /templates/{id}/render": wrapNone,

	// Users
	"* /users/{id}/notification_subscriptions":                {request: "subscribables", response: "subscriptions"},
	"POST /users/{id}/notification_subscriptions/unsubscribe": {request: "subscribables"},
	"GET /users/{id}/sessions":                                wrapBoth("user_sessions"),
	"GET /users/{id}/sessions/{type}/{session_id}":            wrapBoth("user_session"),
	"GET /users/me":                                           wrapBoth("user"),
}

// EntityWrappers returns the envelope keys used to wrap the request and
// response bodies for a given endpoint (method and canonical path). An empty
// string signals that the body in that direction passes through unmodified.
//
// The override table is consulted first; zero matches fall back to the
// inferred convention, and more than one match is a configuration error.
func EntityWrappers(method, path string) (request, response string, err error) {
	m := strings.ToUpper(method)
	var matches []string
	for pattern := range entityWrapperConfig {
		if endpointMatches(pattern, m, path) {
			matches = append(matches, pattern)
		}
	}
	switch len(matches) {
	case 0:
		w := inferEntityWrapper(m, path)
		return w, w, nil
	case 1:
		w := entityWrapperConfig[matches[0]]
		return w.request, w.response, nil
	default:
		sort.Strings(matches)
		return "", "", &ClientError{msg: fmt.Sprintf(
			"%s %s matches more than one wrapping config pattern: %s; this is most likely a bug",
			m, path, strings.Join(matches, ", "))}
	}
}

// endpointMatches reports whether a method and canonical path match an
// override table pattern of the form "METHOD PATH", where METHOD may be "*".
func endpointMatches(pattern, method, path string) bool {
	return (strings.HasPrefix(pattern, method) || strings.HasPrefix(pattern, "*")) &&
		strings.HasSuffix(pattern, " "+path)
}

// inferEntityWrapper infers the entity wrapper name from the endpoint using
// orthodox patterns: an individual resource's URL wraps under the singular of
// the collection segment, creation via POST under the singular of the index
// segment, and everything else (listing, multi-update) under the index
// segment as-is.
func inferEntityWrapper(method, path string) string {
	nodes := strings.Split(path, "/")
	last := nodes[len(nodes)-1]
	switch {
	case isPathParam(last):
		return singularName(nodes[len(nodes)-2])
	case strings.ToUpper(method) == http.MethodPost:
		return singularName(last)
	default:
		return last
	}
}

// pluralName pluralizes a resource name, i.e. the API name from an object's
// "type" property. A trailing "_reference" suffix is stripped first and not
// restored.
func pluralName(objType string) string {
	objType = strings.TrimSuffix(objType, "_reference")
	if strings.HasSuffix(objType, "y") {
		// Because English.
		return objType[:len(objType)-1] + "ies"
	}
	return objType + "s"
}

// singularName singularizes a resource collection name, i.e. for the entity
// wrapper in a POST request, undoing either pluralName suffix.
func singularName(name string) string {
	name = strings.TrimSuffix(name, "_reference")
	if strings.HasSuffix(name, "ies") {
		// Because English.
		return name[:len(name)-3] + "y"
	}
	return strings.TrimSuffix(name, "s")
}

// unwrapBody extracts the wrapped entity from a decoded response body. With
// an empty wrapper the body is returned as-is. The response is used only for
// error context.
func unwrapBody(body any, wrapper string, resp *http.Response) (any, error) {
	if wrapper == "" {
		return body, nil
	}
	endpoint := ""
	if resp.Request != nil {
		endpoint = resp.Request.Method + " " + resp.Request.URL.String()
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, newServerError(fmt.Sprintf(
			"expected response body from %s after JSON-decoding to be an object with a key %q, but its type is %T",
			endpoint, wrapper, body), resp)
	}
	entity, ok := obj[wrapper]
	if !ok {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, newServerError(fmt.Sprintf(
			"expected response body from %s after JSON-decoding to be an object with a key %q, but its keys are: %s",
			endpoint, wrapper, truncateText(strings.Join(keys, ", "))), resp)
	}
	return entity, nil
}

// unwrap decodes a response body and extracts the wrapped entity.
func unwrap(resp *http.Response, wrapper string) (any, error) {
	body, err := tryDecoding(resp)
	if err != nil {
		return nil, err
	}
	return unwrapBody(body, wrapper, resp)
}
