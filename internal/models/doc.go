// Package models defines the domain entities shared by the catalog client, the cache, and the library store.
//
// The package contains two categories of types:
//
// 1. Catalog data: normalized records sourced from IGDB
//   - [CatalogItem] : a game with derived cover URLs and the earliest release date
//   - [Platform], [Company], [CoverURLs] : nested parts of an item
//   - [CatalogQuery] : a search-by-name or fetch-by-id request, consumed once by the query translator
//
// 2. Library data: per-user records persisted next to the cache
//   - [LibraryEntry] : a link from a user to a cached item, optionally qualified by platform
//   - [LibraryPage] : one page of a user's library plus the total count
//   - [LibraryExport] : every entry of one user, as written by the exporters
//
// A [CatalogItem] is keyed by its upstream ID alone. A [LibraryEntry] holds a non-owning reference to it.
package models
