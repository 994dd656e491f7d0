// Package portal implements the client side of a login/register portal:
// a session Manager, pluggable session stores, an HTTP transport that
// attaches the bearer token, a route Guard and the login and register
// form pages.
//
// Session lifecycle:
//   - A Manager starts in StateRestoring. Restore reads the stored user
//     and token once; a complete record moves it to StateAuthenticated,
//     anything else (missing, partial or malformed) to
//     StateUnauthenticated. Malformed records are purged.
//   - Login and Register return a Result and never an error. Register
//     chains a Login with the same credentials on success.
//   - Logout always clears the local session, whatever the backend says.
//
// Transport:
//   - HTTPTransport sends JSON, attaches "Authorization: Bearer <token>"
//     when a token is stored and purges the session on any 401. Managers
//     built on it drop to StateUnauthenticated when that happens.
//
// Stores:
//   - MemoryStore, FileStore, BunStore (sqlite via bun) and RedisStore all
//     implement Store. The session is kept under the "user" and "token"
//     keys.
//
// Activity sinks:
//   - ActivitySink receives restore, login, register, logout and expiry
//     events. Sinks run best-effort (errors are logged). MetricsSink turns
//     them into prometheus counters.
package portal
