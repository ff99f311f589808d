package pdsession

import (
	"fmt"
	"strings"
)

// canonicalPaths is the explicit list of supported canonical REST API v2
// paths. It is immutable, process-wide configuration: supporting a new API
// for entity wrapping requires adding its patterns here, and possibly one or
// more entries in entityWrapperConfig if it does not follow standard naming
// conventions.
var canonicalPaths = []string{
	"/{entity_type}/{id}/change_tags",
	"/{entity_type}/{id}/tags",
	"/abilities",
	"/abilities/{id}",
	"/addons",
	"/addons/{id}",
	"/analytics/metrics/incidents/all",
	"/analytics/metrics/incidents/services",
	"/analytics/metrics/incidents/teams",
	"/analytics/raw/incidents",
	"/analytics/raw/incidents/{id}",
	"/analytics/raw/incidents/{id}/responses",
	"/audit/records",
	"/automation_actions/actions",
	"/automation_actions/actions/{id}",
	"/automation_actions/actions/{id}/invocations",
	"/automation_actions/actions/{id}/services",
	"/automation_actions/actions/{id}/services/{service_id}",
	"/automation_actions/actions/{id}/teams",
	"/automation_actions/actions/{id}/teams/{team_id}",
	"/automation_actions/invocations",
	"/automation_actions/invocations/{id}",
	"/automation_actions/runners",
	"/automation_actions/runners/{id}",
	"/automation_actions/runners/{id}/teams",
	"/automation_actions/runners/{id}/teams/{team_id}",
	"/business_services",
	"/business_services/{id}",
	"/business_services/{id}/account_subscription",
	"/business_services/{id}/subscribers",
	"/business_services/{id}/supporting_services/impacts",
	"/business_services/{id}/unsubscribe",
	"/business_services/impactors",
	"/business_services/impacts",
	"/business_services/priority_thresholds",
	"/change_events",
	"/change_events/{id}",
	"/customfields/fields",
	"/customfields/fields/{field_id}",
	"/customfields/fields/{field_id}/field_options",
	"/customfields/fields/{field_id}/field_options/{field_option_id}",
	"/customfields/fields/{field_id}/schemas",
	"/customfields/schema_assignments",
	"/customfields/schema_assignments/{id}",
	"/customfields/schemas",
	"/customfields/schemas/{schema_id}",
	"/customfields/schemas/{schema_id}/field_configurations",
	"/customfields/schemas/{schema_id}/field_configurations/{field_configuration_id}",
	"/escalation_policies",
	"/escalation_policies/{id}",
	"/escalation_policies/{id}/audit/records",
	"/event_orchestrations",
	"/event_orchestrations/{id}",
	"/event_orchestrations/{id}/router",
	"/event_orchestrations/{id}/unrouted",
	"/event_orchestrations/services/{id}",
	"/event_orchestrations/services/{id}/active",
	"/extension_schemas",
	"/extension_schemas/{id}",
	"/extensions",
	"/extensions/{id}",
	"/extensions/{id}/enable",
	"/incident_workflows",
	"/incident_workflows/{id}",
	"/incident_workflows/{id}/instances",
	"/incident_workflows/actions",
	"/incident_workflows/actions/{id}",
	"/incident_workflows/triggers",
	"/incident_workflows/triggers/{id}",
	"/incident_workflows/triggers/{id}/services",
	"/incident_workflows/triggers/{trigger_id}/services/{service_id}",
	"/incidents",
	"/incidents/{id}",
	"/incidents/{id}/alerts",
	"/incidents/{id}/alerts/{alert_id}",
	"/incidents/{id}/business_services/{business_service_id}/impacts",
	"/incidents/{id}/business_services/impacts",
	"/incidents/{id}/field_values",
	"/incidents/{id}/field_values/schema",
	"/incidents/{id}/log_entries",
	"/incidents/{id}/merge",
	"/incidents/{id}/notes",
	"/incidents/{id}/outlier_incident",
	"/incidents/{id}/past_incidents",
	"/incidents/{id}/related_change_events",
	"/incidents/{id}/related_incidents",
	"/incidents/{id}/responder_requests",
	"/incidents/{id}/snooze",
	"/incidents/{id}/status_updates",
	"/incidents/{id}/status_updates/subscribers",
	"/incidents/{id}/status_updates/unsubscribe",
	"/incidents/count",
	"/license_allocations",
	"/licenses",
	"/log_entries",
	"/log_entries/{id}",
	"/log_entries/{id}/channel",
	"/maintenance_windows",
	"/maintenance_windows/{id}",
	"/notifications",
	"/oncalls",
	"/paused_incident_reports/alerts",
	"/paused_incident_reports/counts",
	"/priorities",
	"/response_plays",
	"/response_plays/{id}",
	"/response_plays/{response_play_id}/run",
	"/rulesets",
	"/rulesets/{id}",
	"/rulesets/{id}/rules",
	"/rulesets/{id}/rules/{rule_id}",
	"/schedules",
	"/schedules/{id}",
	"/schedules/{id}/audit/records",
	"/schedules/{id}/overrides",
	"/schedules/{id}/overrides/{override_id}",
	"/schedules/{id}/users",
	"/schedules/preview",
	"/service_dependencies/associate",
	"/service_dependencies/business_services/{id}",
	"/service_dependencies/disassociate",
	"/service_dependencies/technical_services/{id}",
	"/services",
	"/services/{id}",
	"/services/{id}/audit/records",
	"/services/{id}/change_events",
	"/services/{id}/integrations",
	"/services/{id}/integrations/{integration_id}",
	"/services/{id}/rules",
	"/services/{id}/rules/{rule_id}",
	"/status_dashboards",
	"/status_dashboards/{id}",
	"/status_dashboards/{id}/service_impacts",
	"/status_dashboards/url_slugs/{url_slug}",
	"/status_dashboards/url_slugs/{url_slug}/service_impacts",
	"/tags",
	"/tags/{id}",
	"/tags/{id}/{entity_type}",
	"/teams",
	"/teams/{id}",
	"/teams/{id}/audit/records",
	"/teams/{id}/escalation_policies/{escalation_policy_id}",
	"/teams/{id}/members",
	"/teams/{id}/notification_subscriptions",
	"/teams/{id}/notification_subscriptions/unsubscribe",
	"/teams/{id}/users/{user_id}",
	"/templates",
	"/templates/{id}",
	"/templates/{id}/render",
	"/users",
	"/users/{id}",
	"/users/{id}/audit/records",
	"/users/{id}/contact_methods",
	"/users/{id}/contact_methods/{contact_method_id}",
	"/users/{id}/license",
	"/users/{id}/notification_rules",
	"/users/{id}/notification_rules/{notification_rule_id}",
	"/users/{id}/notification_subscriptions",
	"/users/{id}/notification_subscriptions/unsubscribe",
	"/users/{id}/oncall_handoff_notification_rules",
	"/users/{id}/oncall_handoff_notification_rules/{oncall_handoff_notification_rule_id}",
	"/users/{id}/sessions",
	"/users/{id}/sessions/{type}/{session_id}",
	"/users/{id}/status_update_notification_rules",
	"/users/{id}/status_update_notification_rules/{status_update_notification_rule_id}",
	"/users/me",
	"/vendors",
	"/vendors/{id}",
	"/webhook_subscriptions",
	"/webhook_subscriptions/{id}",
	"/webhook_subscriptions/{id}/enable",
	"/webhook_subscriptions/{id}/ping",
}

// cursorPaginationPaths is the explicit set of canonical paths that support
// cursor-based pagination.
var cursorPaginationPaths = map[string]struct{}{
	"/audit/records":                          {},
	"/automation_actions/actions":             {},
	"/automation_actions/runners":             {},
	"/escalation_policies/{id}/audit/records": {},
	"/incident_workflows/actions":             {},
	"/incident_workflows/triggers":            {},
	"/schedules/{id}/audit/records":           {},
	"/services/{id}/audit/records":            {},
	"/teams/{id}/audit/records":               {},
	"/users/{id}/audit/records":               {},
}

// CanonicalPath returns the canonical REST API path corresponding to a URL.
//
// This is used to identify and classify URLs according to which particular
// API within REST API v2 they belong to. The path for a given API is what is
// shown at the top of its reference page, i.e. "/users/{id}/contact_methods".
//
// Resolution must be unique: if more than one catalog pattern survives
// segment filtering, the literal input path must equal exactly one of them
// (an exact match always outranks a parameterized one), or a URLError is
// returned signaling a catalog defect.
func CanonicalPath(baseURL, url string) (string, error) {
	fullURL, err := normalizeURL(baseURL, url)
	if err != nil {
		return "", err
	}
	// Starting with / after the hostname, up until the query parameters.
	urlPath := strings.SplitN(strings.TrimPrefix(fullURL, strings.TrimRight(baseURL, "/")), "?", 2)[0]
	nodes := strings.Split(urlPath, "/")

	// Winnow the catalog down to paths with the same number of nodes; the
	// root node (blank) counts.
	var patterns []string
	for _, p := range canonicalPaths {
		if strings.Count(p, "/") == len(nodes)-1 {
			patterns = append(patterns, p)
		}
	}
	// Match against each node, skipping index zero because the root node
	// always matches. Don't break early at one survivor: an exact match is
	// still required at every position.
	for i := 1; i < len(nodes); i++ {
		kept := patterns[:0:0]
		for _, p := range patterns {
			pNode := strings.Split(p, "/")[i]
			if pNode == nodes[i] || isPathParam(pNode) {
				kept = append(kept, p)
			}
		}
		patterns = kept
	}

	switch len(patterns) {
	case 0:
		return "", &URLError{fmt.Sprintf(
			"URL %s does not match any canonical API path supported by this client", url)}
	case 1:
		return patterns[0], nil
	default:
		// If there's multiple matches but one matches exactly, return that;
		// otherwise the catalog itself is ambiguous.
		for _, p := range patterns {
			if p == urlPath {
				return p, nil
			}
		}
		return "", &URLError{fmt.Sprintf(
			"ambiguous URL %s matches more than one canonical path pattern: %s; this is likely a bug",
			url, strings.Join(patterns, ", "))}
	}
}

// isPathParam reports whether a node in a canonical path is a parameter
// placeholder.
func isPathParam(node string) bool {
	return strings.HasPrefix(node, "{") && strings.HasSuffix(node, "}")
}

// lastNode returns the final node of a canonical path.
func lastNode(path string) string {
	nodes := strings.Split(path, "/")
	return nodes[len(nodes)-1]
}

// supportsCursorPagination reports whether a canonical path is a member of
// the cursor-based pagination set.
func supportsCursorPagination(path string) bool {
	_, ok := cursorPaginationPaths[path]
	return ok
}

// normalizeURL composes a complete API URL whether the input is a path
// relative to the base URL or already a full URL. Absolute URLs that do not
// start with the base URL are rejected.
func normalizeURL(baseURL, url string) (string, error) {
	switch {
	case strings.HasPrefix(url, baseURL):
		return url, nil
	case !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://"):
		return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(url, "/"), nil
	default:
		return "", &URLError{fmt.Sprintf(
			"URL %s does not start with the API base URL %s", url, baseURL)}
	}
}
