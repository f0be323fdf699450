// requester.go

package resource

import "context"

// Requester is the authenticated principal attached to a request.
// A nil *Requester means anonymous.
type Requester struct {
	ID            int64
	Name          string
	Email         string
	Administrator bool
}

type contextKey struct{}

var requesterKey contextKey

func WithRequester(ctx context.Context, req *Requester) context.Context {
	return context.WithValue(ctx, requesterKey, req)
}

func RequesterFrom(ctx context.Context) (*Requester, bool) {
	req, ok := ctx.Value(requesterKey).(*Requester)
	if !ok || req == nil {
		return nil, false
	}
	return req, true
}

// requesterSerializer renders the requester's own user entity for the
// "user" key on create responses. Set once at startup, after the user
// resource exists.
var requesterSerializer func(ctx context.Context, req *Requester) (map[string]any, error)

func SetRequesterSerializer(
	fn func(ctx context.Context, req *Requester) (map[string]any, error),
) {
	requesterSerializer = fn
}

func SerializeRequester(
	ctx context.Context,
	req *Requester,
) (map[string]any, error) {
	if requesterSerializer == nil || req == nil {
		return nil, nil
	}
	return requesterSerializer(ctx, req)
}
