package middleware

import (
	"context"
	"net/http"
)

// RequestKind tags a route with the kind of work it performs. It is used
// for logs, metrics and rate limiting only; handlers never branch on it.
type RequestKind string

const (
	KindCropRecommendation RequestKind = "crop_recommendation"
	KindFertilizerSchedule RequestKind = "fertilizer_schedule"
	KindFertilizerProduct  RequestKind = "fertilizer_product"
	KindChat               RequestKind = "chat"
	KindMarketSnapshots    RequestKind = "market_snapshots"
	KindOps                RequestKind = "ops"
)

type requestKindKey struct{}

// kindSlot is shared by pointer so middleware that wraps the router sees
// the kind set by a route-level Kind middleware.
type kindSlot struct {
	kind RequestKind
}

func withKindSlot(ctx context.Context) context.Context {
	if _, ok := ctx.Value(requestKindKey{}).(*kindSlot); ok {
		return ctx
	}
	return context.WithValue(ctx, requestKindKey{}, &kindSlot{})
}

// Kind returns a middleware that tags requests with kind.
func Kind(kind RequestKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if slot, ok := ctx.Value(requestKindKey{}).(*kindSlot); ok {
				slot.kind = kind
			} else {
				ctx = context.WithValue(ctx, requestKindKey{}, &kindSlot{kind: kind})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestKind retrieves the request kind from the context, or "" when
// the route was not tagged.
func GetRequestKind(ctx context.Context) RequestKind {
	if slot, ok := ctx.Value(requestKindKey{}).(*kindSlot); ok {
		return slot.kind
	}
	return ""
}
