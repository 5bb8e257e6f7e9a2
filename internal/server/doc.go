// Package server exposes the game library over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /games/{id}").
//
// # Handler Interface
//
// Handlers implement [Handler], returning their [Route] table so route definitions live beside the
// handler methods. [GamesHandler] serves catalog search and detail; [LibraryHandler] serves a user's
// saved games and requires an X-User-ID header set by the authenticating proxy in front of the service.
//
// # Responses
//
// Successful responses wrap the payload as {"data": ..., "meta": {...}}. Errors are
// {"error": {"code", "message"}} with statuses mapped from the shared sentinel errors:
// invalid argument 400, not found 404, duplicate 409, upstream auth or malformed data 502,
// upstream unavailable 503.
package server
