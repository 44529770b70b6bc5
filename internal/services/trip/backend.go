package trip

import "context"

// MemberDoc is one raw member document from the member-collection stream
type MemberDoc struct {
	ID   string
	Data map[string]interface{}
}

// Backend is the keyed document store holding trips and their member
// sub-collections: point reads, merge writes and push subscriptions.
// Implementations stamp their own createdAt/updatedAt fields on writes.
//
// Subscription callbacks may fire on any goroutine and in any order relative
// to local writes; the returned stop handle must be idempotent.
type Backend interface {
	TripExists(ctx context.Context, code string) (bool, error)
	CreateTrip(ctx context.Context, code string, doc map[string]interface{}) error
	MergeTrip(ctx context.Context, code string, fields map[string]interface{}) error
	MergeMember(ctx context.Context, code, memberID string, fields map[string]interface{}) error

	// SubscribeTrip streams the trip document. exists=false means the
	// document is absent at the normalized code.
	SubscribeTrip(code string, fn func(data map[string]interface{}, exists bool)) (stop func(), err error)

	// SubscribeMembers streams the full member collection on every change.
	SubscribeMembers(code string, fn func(docs []MemberDoc)) (stop func(), err error)
}

// Journal is the optional local history sink. Writes are best-effort and must
// never block or fail the sync core.
type Journal interface {
	RecordEvent(tripCode, event, detail string)
	RecordSample(tripCode, memberID string, latitude, longitude float64, mode string)
}
