package exam

import (
	"context"
	"sync"

	eexam "github.com/dedis/e-exam"
	"github.com/dedis/e-exam/contracts/exam/types"
)

// feedBufferSize is the number of events kept for a slow watcher before
// events get dropped.
const feedBufferSize = 100

// eventFeed fans the notification events of successful transitions out to
// the watchers of the ledger. A transition never blocks on a watcher: when a
// subscriber's buffer is full the event is dropped for that subscriber.
type eventFeed struct {
	sync.Mutex

	subscribers map[chan types.Event]struct{}
}

func newEventFeed() *eventFeed {
	return &eventFeed{
		subscribers: make(map[chan types.Event]struct{}),
	}
}

// subscribe registers a new watcher. The returned channel closes when the
// context gets canceled.
func (f *eventFeed) subscribe(ctx context.Context) <-chan types.Event {
	ch := make(chan types.Event, feedBufferSize)

	f.Lock()
	f.subscribers[ch] = struct{}{}
	f.Unlock()

	go func() {
		<-ctx.Done()

		f.Lock()
		delete(f.subscribers, ch)
		f.Unlock()

		close(ch)
	}()

	return ch
}

// notify delivers the event to every subscriber.
func (f *eventFeed) notify(event types.Event) {
	f.Lock()
	defer f.Unlock()

	for ch := range f.subscribers {
		select {
		case ch <- event:
		default:
			eexam.Logger.Warn().Msg("watcher too slow, dropping event")
		}
	}
}
