// Package services talks to the IGDB catalog API.
//
// # Token lifecycle
//
// [TokenManager] owns the single Twitch client-credentials token. It exchanges credentials through
// [golang.org/x/oauth2/clientcredentials], keeps the token until a safety margin before it expires, and
// serializes renewal so concurrent callers share one exchange. One manager is built at process start and
// passed to every client.
//
// # Queries and normalization
//
// [BuildSearchQuery] and [BuildDetailQuery] produce APICalypse request bodies with a fixed field projection
// per query kind. [Normalize] decodes one raw game object against the v4 schema, derives the three cover
// URLs, and reduces release dates to the earliest one.
//
// # Catalog client
//
// [IGDBClient] composes the three: it takes a token, builds the body, posts it through a rate limiter, and
// normalizes the response. A 401 is retried once with a fresh token; everything else is surfaced.
package services
