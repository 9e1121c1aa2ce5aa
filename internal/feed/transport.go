package feed

import "context"

// Variant identifies a logical feed within a column: home timeline, local,
// antenna, notifications, and so on. The engine treats it as opaque.
type Variant string

const (
	VariantHome   Variant = "home"
	VariantLocal  Variant = "local"
	VariantSocial Variant = "social"
	VariantGlobal Variant = "global"
)

// FetchOptions parameterizes a page fetch. SinceID asks for notes newer than
// the cursor (differential fetch); UntilID for notes older (backward
// pagination). Pages are returned newest-first.
type FetchOptions struct {
	SinceID string
	UntilID string
	Limit   int
	Filters map[string]string
}

// Subscription is a live channel subscription handle.
type Subscription interface {
	Dispose()
}

// Transport is the adapter the engine drives. Implementations perform the
// actual HTTP calls and own the stream socket; the engine only sees classified
// errors (TransportError) and parsed notes.
//
// The socket may be shared process-wide across columns; subscriptions and
// note captures issued here must be independently disposable.
type Transport interface {
	// FetchPage fetches one page of a feed variant.
	FetchPage(ctx context.Context, v Variant, opts FetchOptions) ([]*Note, error)

	// Subscribe opens a live subscription on a feed variant. Arrivals and
	// channel-scoped mutation events are delivered on the returned callbacks
	// until Dispose is called.
	Subscribe(v Variant, onNote func(*Note), onMutation func(MutationEvent)) (Subscription, error)

	// SubNote requests targeted mutation events for a single note that is not
	// covered by a channel subscription.
	SubNote(id string, onMutation func(MutationEvent)) error
	// UnsubNote releases a targeted capture.
	UnsubNote(id string) error

	// React persists the local user's reaction to a note.
	React(ctx context.Context, noteID, reaction string) error
	// Unreact removes the local user's reaction from a note.
	Unreact(ctx context.Context, noteID string) error
}

// CacheStore is the cold-start cache. Strictly best-effort: every error from
// it is treated as "no cache available".
type CacheStore interface {
	LoadCached(ctx context.Context, feedKey string, limit int) ([]*Note, error)
	Save(ctx context.Context, feedKey string, notes []*Note) error
}

// VariantResolver reports which feed variants the server currently permits.
// Consulted when a fetch fails with a policy error so the controller can fall
// back to a permitted variant.
type VariantResolver func(ctx context.Context) ([]Variant, error)
