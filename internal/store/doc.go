// Package store provides SQLite-backed storage for keeper records.
//
// The package exposes one accessor per entity kind:
//   - Users, Groups: accounts and flat groupings
//   - Memberships: (group, user) links
//   - Keepers, Filedata: the metadata and payload halves of a document
//   - Permits: read grants targeting a user, a group, or both
//
// Accessors hold no business logic and never own a transaction. Each is bound
// to a caller-supplied DBTX (normally a unit of work) so that every read and
// write made through accessors sharing one DBTX joins the same transaction.
//
// # Errors
//
// Single-row reads, updates and deletes that match nothing return ErrNotFound.
// Every other failure is a data-access fault and is returned wrapped with the
// operation name. IsUniqueViolation and IsForeignKeyViolation classify
// constraint failures so callers can turn them into request failures.
//
// # Database Configuration
//
// Every pooled connection is opened with the same DSN parameters:
//   - foreign_keys=ON: dependent rows must be removed before their parents
//   - journal_mode (WAL by default) and synchronous=NORMAL
//   - busy_timeout: wait for the write lock instead of failing immediately
//   - txlock=immediate: BEGIN takes the write lock, so check-then-insert
//     sequences in concurrent transactions are serialized
//
// Uniqueness of names, filenames, memberships and permit triples is enforced
// by the schema; application-level checks only produce friendlier rejections.
package store
