// Package model defines the canonical record types shared by every layer of
// the keeper store: users, groups, memberships, keepers (document metadata),
// filedata (document payloads) and permits.
//
// There is exactly one record type per entity. Wire-facing projections live at
// the CLI boundary and never flow back into the core.
package model
