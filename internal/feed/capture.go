package feed

import "github.com/rs/zerolog"

// maxCapture bounds the per-column set of targeted note subscriptions.
const maxCapture = 100

// NoteSubscriber is the slice of Transport the capture manager drives.
type NoteSubscriber interface {
	SubNote(id string, onMutation func(MutationEvent)) error
	UnsubNote(id string) error
}

// captureManager reconciles the bounded set of "currently interesting" note
// ids against the live subscription layer. Channel subscriptions push mutation
// events automatically for their own notes; anything that entered the column
// via plain fetch needs an explicit per-note capture, and captures must be
// released when the note scrolls out of the tracked window.
type captureManager struct {
	subs       NoteSubscriber
	onMutation func(MutationEvent)
	captured   map[string]struct{}
	log        zerolog.Logger
}

func newCaptureManager(subs NoteSubscriber, onMutation func(MutationEvent), log zerolog.Logger) *captureManager {
	return &captureManager{
		subs:       subs,
		onMutation: onMutation,
		captured:   make(map[string]struct{}),
		log:        log,
	}
}

// Sync reconciles the captured set against the first maxCapture visible notes,
// issuing subscribe/unsubscribe calls only for the delta. Subscription errors
// are best-effort: a miss means a note stops receiving live updates, nothing
// worse, so they are logged and swallowed.
func (m *captureManager) Sync(visible []*Note) {
	if len(visible) > maxCapture {
		visible = visible[:maxCapture]
	}
	current := make(map[string]struct{}, len(visible))
	for _, n := range visible {
		current[n.CaptureID()] = struct{}{}
	}

	for id := range current {
		if _, ok := m.captured[id]; ok {
			continue
		}
		if err := m.subs.SubNote(id, m.onMutation); err != nil {
			m.log.Debug().Err(err).Str("note_id", id).Msg("capture subscribe failed")
			continue
		}
		m.captured[id] = struct{}{}
	}
	for id := range m.captured {
		if _, ok := current[id]; ok {
			continue
		}
		if err := m.subs.UnsubNote(id); err != nil {
			m.log.Debug().Err(err).Str("note_id", id).Msg("capture unsubscribe failed")
		}
		delete(m.captured, id)
	}
}

// Cleanup releases every capture. Must run on teardown so a closed column
// never leaks subscriptions on a shared connection.
func (m *captureManager) Cleanup() {
	for id := range m.captured {
		if err := m.subs.UnsubNote(id); err != nil {
			m.log.Debug().Err(err).Str("note_id", id).Msg("capture unsubscribe failed")
		}
		delete(m.captured, id)
	}
}

func (m *captureManager) size() int {
	return len(m.captured)
}
