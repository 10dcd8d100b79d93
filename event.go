package castore

// EventKind names the operation an Event reports.
type EventKind string

const (
	EventStored    EventKind = "stored"
	EventRetrieved EventKind = "retrieved"
)

// Event is emitted once per successful StoreFile or GetFile.
type Event struct {
	Kind EventKind
	Hash Digest
	Name string
}

// Observer receives store events. Observe is called synchronously, after the
// store has released its lock, so implementations may call back into the
// store but should return quickly.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans each event out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// ChanObserver sends events to ch without blocking. Events are dropped when
// ch is full.
func ChanObserver(ch chan<- Event) Observer {
	return ObserverFunc(func(e Event) {
		select {
		case ch <- e:
		default:
		}
	})
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
