package dispatcher

import "context"

type postIDKey struct{}
type currentContextKey struct{}

func withPostID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, postIDKey{}, id)
}

// PostID returns the id assigned to the Post a handler was invoked for.
func PostID(ctx context.Context) string {
	id, _ := ctx.Value(postIDKey{}).(string)
	return id
}

func withCurrentContext(ctx context.Context, name ContextName) context.Context {
	return context.WithValue(ctx, currentContextKey{}, name)
}

// CurrentContext reports the execution context a handler is running on, or
// Posting when ctx does not come from a dispatcher-scheduled handler.
func CurrentContext(ctx context.Context) ContextName {
	if name, ok := ctx.Value(currentContextKey{}).(ContextName); ok {
		return name
	}
	return Posting
}
