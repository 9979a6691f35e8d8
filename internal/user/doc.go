// Package user defines the user record model and its persistence layer.
//
// The package provides two Repository implementations selected by
// configuration: a SQLite-backed repository for durable deployments and
// an in-memory repository for ephemeral or test use. Both honour the
// same semantics: auto-assigned integer IDs, insertion-ordered listing,
// offset pagination, and case-insensitive substring search across the
// name, address, email, and telephone fields.
//
// Validation lives here too, so that every entry point (REST handlers,
// seeding) applies the same rules before a record reaches a store.
package user
