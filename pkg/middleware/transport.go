package middleware

// Transport groups the middlewares handed to the servers.
type Transport struct {
	GuardMiddleware Middleware
}
