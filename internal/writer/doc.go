// Package writer journals detected opportunities to PostgreSQL.
//
// Rows are batched and inserted with append-only semantics: an opportunity
// id already present is skipped, never updated. The journal is an audit log
// and is never read back into the price store.
package writer
