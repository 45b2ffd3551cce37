package shared

import "context"

// Identity describes the authenticated caller for the current request.
type Identity struct {
	UserID int64
	Email  string
	Token  string
}

type identityContextKey struct{}

type identityRecorderKey struct{}

// IdentityRecorder captures the identity established deeper in the
// middleware chain so outer middleware can observe it after the handler
// returns. Each request gets its own recorder; no locking is needed.
type IdentityRecorder struct {
	identity *Identity
}

// Identity returns the recorded identity, if any was established.
func (r *IdentityRecorder) Identity() (Identity, bool) {
	if r.identity == nil {
		return Identity{}, false
	}
	return *r.identity, true
}

// ContextWithIdentityRecorder installs a recorder that ContextWithIdentity
// will fill once authentication succeeds.
func ContextWithIdentityRecorder(ctx context.Context) (context.Context, *IdentityRecorder) {
	rec := &IdentityRecorder{}
	return context.WithValue(ctx, identityRecorderKey{}, rec), rec
}

// ContextWithIdentity stores the caller identity in context and notifies
// any installed recorder.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	if rec, ok := ctx.Value(identityRecorderKey{}).(*IdentityRecorder); ok {
		rec.identity = &id
	}
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from context. The second
// return value is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
