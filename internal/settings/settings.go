// Copyright (c) 2026 NextDash. All rights reserved.

/*
Package settings manages application configuration that lives in the
database rather than the environment.

# Architecture

Two independent stores share the package:

  - Admin settings: a flat key/value table of platform-wide knobs,
    readable and writable only by administrators. A fixed allowlist of
    keys is additionally exposed unauthenticated through the public
    endpoint, cached in Redis.
  - User settings: a single JSON document per user holding personal
    dashboard preferences. Deleting the row resets the user to defaults.

Values are stored as JSONB so strings, booleans, and nested objects all
round-trip without a per-key type registry.
*/
package settings

import (
	"encoding/json"
	"time"
)

// AdminSetting is one platform-wide configuration entry.
type AdminSetting struct {
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Description string          `json:"description,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// publicKeys is the allowlist of admin settings safe to expose without
// authentication. Everything else stays behind the admin gate.
var publicKeys = []string{
	"app_name",
	"app_logo_url",
	"theme_mode",
	"css_style",
	"allow_guest_access",
	"allow_user_signup",
	"front_page_mode",
}
