// Package repositories implements SQLite persistence for cached catalog items and library entries.
//
// Key Implementations:
//   - [CatalogItemRepository] : igdb_id keyed cache of normalized games; list fields stored as JSON text
//   - [LibraryRepository] : per-user entries referencing cached items, unique on (user, item, platform)
//
// Write methods accept a [Queryer] so a cache upsert and a library insert can share one transaction.
// The [NextSequence] function increments per-table sequence counters inside that same transaction,
// which orders entries by insertion.
package repositories
