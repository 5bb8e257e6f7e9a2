// Package library is the cache-aside store and the collaborator-facing facade over the game catalog.
//
// [Store] resolves catalog items from the local cache first and from upstream on a miss,
// sharing one upstream call between concurrent misses for the same id. Cached items are
// never evicted and carry no TTL; CachedAt is recorded so a freshness policy can be added
// without a schema change.
//
// [Service] validates requests before any network call and delegates to [Store] and the
// upstream [services.Catalog].
package library
