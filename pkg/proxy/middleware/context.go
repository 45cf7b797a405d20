package middleware

type contextKey string

// RequestIDKey is the context key under which RequestIDMiddleware stores the ID.
const RequestIDKey contextKey = "request_id"
