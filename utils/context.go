package utils

import "context"

type contextKey string

func (c contextKey) String() string {
	return "admin/" + string(c)
}

const ctxKeySession = contextKey("sessionKey")
const ctxKeyUser = contextKey("userKey")

// SessionIDToContext pushes a session id into the supplied context for easier propagation.
func SessionIDToContext(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxKeySession, sessionID)
}

// SessionIDFromContext obtains a session id being propagated through the context.
func SessionIDFromContext(ctx context.Context) string {
	sessionID, ok := ctx.Value(ctxKeySession).(string)
	if !ok {
		return ""
	}

	return sessionID
}

// UserIDToContext pushes the authenticated user's id into the supplied context.
func UserIDToContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUser, userID)
}

// UserIDFromContext obtains the authenticated user's id from the context.
func UserIDFromContext(ctx context.Context) string {
	userID, ok := ctx.Value(ctxKeyUser).(string)
	if !ok {
		return ""
	}

	return userID
}
