// Package server exposes progress tracking as an HTTP JSON API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// Middleware is captured when a route is registered, so routes added before a [BasicRouter.Use] call do not get it.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("POST /api/modules/{slug}/advance").
//
// # Middleware
//
//   - request ids and access logging
//   - bearer token authentication ([auth.TokenProvider]); catalog reads are public
//   - per-user rate limiting with golang.org/x/time/rate
//   - CORS via github.com/rs/cors, wrapped around the whole router so preflight requests are answered
//
// # Routes
//
//	GET  /healthz
//	GET  /api/modules
//	GET  /api/modules/{slug}
//	POST /api/modules/{slug}/enter
//	POST /api/modules/{slug}/advance   {"submoduleIndex": n}
//	POST /api/modules/{slug}/jump
//	GET  /api/resume
//	GET  /api/progress
//
// Errors are JSON objects with an "error" message and a "retryable" flag; store outages map to
// 503 with a Retry-After header.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
