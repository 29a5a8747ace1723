package catalog

import "github.com/prashantcloudsufi/zendesk/pkg/schema"

func nullable(t schema.Type) *schema.Schema {
	return schema.NullableOf(schema.Of(t))
}

func nlong() *schema.Schema   { return nullable(schema.Long) }
func nstring() *schema.Schema { return nullable(schema.String) }
func nbool() *schema.Schema   { return nullable(schema.Boolean) }

func longs() *schema.Schema {
	return schema.NullableOf(schema.ArrayOf(schema.Of(schema.Long)))
}

func strs() *schema.Schema {
	return schema.NullableOf(schema.ArrayOf(schema.Of(schema.String)))
}

func record(name string, fields ...schema.Field) *schema.Schema {
	return schema.RecordOf(name, fields...)
}

func f(name string, s *schema.Schema) schema.Field {
	return schema.NewField(name, s)
}

// minutes is the calendar/business pair Zendesk reports for ticket metric durations.
func minutes(name string) schema.Field {
	return f(name, schema.NullableOf(record(name,
		f("calendar", nlong()),
		f("business", nlong()),
	)))
}

func table() []Descriptor {
	return []Descriptor{
		{
			Name:     ArticleComments,
			Endpoint: "help_center/comments.json",
			ItemsKey: "comments",
			Style:    OffsetList,
			Schema: record("article_comments",
				f("id", nlong()),
				f("url", nstring()),
				f("html_url", nstring()),
				f("body", nstring()),
				f("author_id", nlong()),
				f("source_id", nlong()),
				f("source_type", nstring()),
				f("locale", nstring()),
				f("created_at", nstring()),
				f("updated_at", nstring()),
			),
		},
		{
			Name:     PostComments,
			Endpoint: "community/comments.json",
			ItemsKey: "comments",
			Style:    OffsetList,
			Schema: record("post_comments",
				f("id", nlong()),
				f("url", nstring()),
				f("html_url", nstring()),
				f("body", nstring()),
				f("author_id", nlong()),
				f("post_id", nlong()),
				f("official", nbool()),
				f("vote_sum", nlong()),
				f("vote_count", nlong()),
				f("created_at", nstring()),
				f("updated_at", nstring()),
			),
		},
		{
			Name:     RequestsComments,
			Endpoint: "requests/comments.json",
			ItemsKey: "comments",
			Style:    OffsetList,
			Schema: record("requests_comments",
				f("id", nlong()),
				f("type", nstring()),
				f("request_id", nlong()),
				f("body", nstring()),
				f("html_body", nstring()),
				f("plain_body", nstring()),
				f("public", nbool()),
				f("author_id", nlong()),
				f("attachments", nstring()),
				f("created_at", nstring()),
			),
		},
		{
			Name:       TicketComments,
			Endpoint:   "incremental/ticket_events.json",
			ItemsKey:   "ticket_events",
			Style:      CursorIncremental,
			DateFilter: true,
			Params:     map[string]string{"include": "comment_events"},
			Schema: record("ticket_comments",
				f("id", nlong()),
				f("ticket_id", nlong()),
				f("timestamp", nlong()),
				f("created_at", nstring()),
				f("updater_id", nlong()),
				f("via", nstring()),
				f("system", nstring()),
				f("event_type", nstring()),
				f("child_events", nstring()),
			),
		},
		{
			Name:     Groups,
			Endpoint: "groups.json",
			ItemsKey: "groups",
			Style:    OffsetList,
			Schema: record("groups",
				f("id", nlong()),
				f("url", nstring()),
				f("name", nstring()),
				f("description", nstring()),
				f("default", nbool()),
				f("deleted", nbool()),
				f("is_public", nbool()),
				f("created_at", nstring()),
				f("updated_at", nstring()),
			),
		},
		{
			Name:       Organizations,
			Endpoint:   "incremental/organizations.json",
			ItemsKey:   "organizations",
			Style:      CursorIncremental,
			DateFilter: true,
			Schema: record("organizations",
				f("id", nlong()),
				f("url", nstring()),
				f("name", nstring()),
				f("shared_tickets", nbool()),
				f("shared_comments", nbool()),
				f("external_id", nstring()),
				f("domain_names", strs()),
				f("details", nstring()),
				f("notes", nstring()),
				f("group_id", nlong()),
				f("tags", strs()),
				f("organization_fields", nstring()),
				f("created_at", nstring()),
				f("updated_at", nstring()),
			),
		},
		{
			Name:        SatisfactionRatings,
			Endpoint:    "satisfaction_ratings.json",
			ItemsKey:    "satisfaction_ratings",
			Style:       OffsetList,
			ScoreFilter: true,
			Schema: record("satisfaction_ratings",
				f("id", nlong()),
				f("url", nstring()),
				f("assignee_id", nlong()),
				f("group_id", nlong()),
				f("requester_id", nlong()),
				f("ticket_id", nlong()),
				f("score", nstring()),
				f("comment", nstring()),
				f("reason", nstring()),
				f("reason_id", nlong()),
				f("created_at", nstring()),
				f("updated_at", nstring()),
			),
		},
		{
			Name:     Tags,
			Endpoint: "tags.json",
			ItemsKey: "tags",
			Style:    OffsetList,
			Schema: record("tags",
				f("name", nstring()),
				f("count", nlong()),
			),
		},
		{
			Name:     TicketFields,
			Endpoint: "ticket_fields.json",
			ItemsKey: "ticket_fields",
			Style:    OffsetList,
			Schema: record("ticket_fields",
				f("id", nlong()),
				f("url", nstring()),
				f("type", nstring()),
				f("title", nstring()),
				f("raw_title", nstring()),
				f("description", nstring()),
				f("agent_description", nstring()),
				f("position", nlong()),
				f("active", nbool()),
				f("required", nbool()),
				f("collapsed_for_agents", nbool()),
				f("regexp_for_validation", nstring()),
				f("title_in_portal", nstring()),
				f("visible_in_portal", nbool()),
				f("editable_in_portal", nbool()),
				f("required_in_portal", nbool()),
				f("tag", nstring()),
				f("removable", nbool()),
				f("custom_field_options", nstring()),
				f("created_at", nstring()),
				f("updated_at", nstring()),
			),
		},
		{
			Name:       TicketMetrics,
			Endpoint:   "ticket_metrics.json",
			ItemsKey:   "ticket_metrics",
			Style:      OffsetList,
			DateFilter: true,
			Schema: record("ticket_metrics",
				f("id", nlong()),
				f("url", nstring()),
				f("ticket_id", nlong()),
				f("group_stations", nlong()),
				f("assignee_stations", nlong()),
				f("reopens", nlong()),
				f("replies", nlong()),
				f("assignee_updated_at", nstring()),
				f("requester_updated_at", nstring()),
				f("status_updated_at", nstring()),
				f("initially_assigned_at", nstring()),
				f("assigned_at", nstring()),
				f("solved_at", nstring()),
				f("latest_comment_added_at", nstring()),
				minutes("reply_time_in_minutes"),
				minutes("first_resolution_time_in_minutes"),
				minutes("full_resolution_time_in_minutes"),
				minutes("agent_wait_time_in_minutes"),
				minutes("requester_wait_time_in_minutes"),
				minutes("on_hold_time_in_minutes"),
				f("created_at", nstring()),
				f("updated_at", nstring()),
			),
		},
		{
			Name:       TicketMetricEvents,
			Endpoint:   "incremental/ticket_metric_events.json",
			ItemsKey:   "ticket_metric_events",
			Style:      CursorIncremental,
			DateFilter: true,
			Schema: record("ticket_metric_events",
				f("id", nlong()),
				f("ticket_id", nlong()),
				f("metric", nstring()),
				f("instance_id", nlong()),
				f("type", nstring()),
				f("time", nstring()),
				f("sla", nstring()),
				f("status", nstring()),
			),
		},
		{
			Name:       Tickets,
			Endpoint:   "incremental/tickets/cursor.json",
			ItemsKey:   "tickets",
			Style:      CursorIncremental,
			DateFilter: true,
			Schema: record("tickets",
				f("id", nlong()),
				f("url", nstring()),
				f("external_id", nstring()),
				f("type", nstring()),
				f("subject", nstring()),
				f("raw_subject", nstring()),
				f("description", nstring()),
				f("priority", nstring()),
				f("status", nstring()),
				f("recipient", nstring()),
				f("requester_id", nlong()),
				f("submitter_id", nlong()),
				f("assignee_id", nlong()),
				f("organization_id", nlong()),
				f("group_id", nlong()),
				f("brand_id", nlong()),
				f("collaborator_ids", longs()),
				f("follower_ids", longs()),
				f("email_cc_ids", longs()),
				f("sharing_agreement_ids", longs()),
				f("problem_id", nlong()),
				f("has_incidents", nbool()),
				f("is_public", nbool()),
				f("allow_channelback", nbool()),
				f("allow_attachments", nbool()),
				f("due_at", nstring()),
				f("tags", strs()),
				f("via", schema.NullableOf(record("ticket_via",
					f("channel", nstring()),
					f("source", nstring()),
				))),
				f("custom_fields", nstring()),
				f("satisfaction_rating", nstring()),
				f("generated_timestamp", nlong()),
				f("created_at", nstring()),
				f("updated_at", nstring()),
			),
		},
		{
			Name:       Users,
			Endpoint:   "incremental/users/cursor.json",
			ItemsKey:   "users",
			Style:      CursorIncremental,
			DateFilter: true,
			Schema: record("users",
				f("id", nlong()),
				f("url", nstring()),
				f("name", nstring()),
				f("email", nstring()),
				f("alias", nstring()),
				f("phone", nstring()),
				f("shared_phone_number", nbool()),
				f("photo", nstring()),
				f("time_zone", nstring()),
				f("iana_time_zone", nstring()),
				f("locale", nstring()),
				f("locale_id", nlong()),
				f("organization_id", nlong()),
				f("default_group_id", nlong()),
				f("role", nstring()),
				f("role_type", nlong()),
				f("custom_role_id", nlong()),
				f("verified", nbool()),
				f("active", nbool()),
				f("shared", nbool()),
				f("shared_agent", nbool()),
				f("suspended", nbool()),
				f("moderator", nbool()),
				f("restricted_agent", nbool()),
				f("only_private_comments", nbool()),
				f("two_factor_auth_enabled", nbool()),
				f("report_csv", nbool()),
				f("ticket_restriction", nstring()),
				f("external_id", nstring()),
				f("tags", strs()),
				f("signature", nstring()),
				f("details", nstring()),
				f("notes", nstring()),
				f("user_fields", nstring()),
				f("last_login_at", nstring()),
				f("created_at", nstring()),
				f("updated_at", nstring()),
			),
		},
	}
}
