package state

// Kind says what a Change was about.
type Kind int

const (
	// KindLoading is emitted when a reload starts.
	KindLoading Kind = iota + 1
	// KindLoaded is emitted when a reload finished successfully.
	KindLoaded
	// KindTasksChanged follows a create, update or delete.
	KindTasksChanged
	// KindFiltersChanged follows SetFilters or ClearFilters.
	KindFiltersChanged
	// KindFailed is emitted when an action failed and Error() was set.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindLoaded:
		return "loaded"
	case KindTasksChanged:
		return "tasks_changed"
	case KindFiltersChanged:
		return "filters_changed"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Change is delivered to listeners after every state mutation. Listeners
// re-read the Store through its getters; Version matches Store.Version at
// the time of emission.
type Change struct {
	Kind    Kind
	Version uint64
	TaskID  string
}

// Listener receives change notifications.
type Listener func(Change)

// Subscription identifies a registered listener.
type Subscription uint64

type subscriber struct {
	id Subscription
	fn Listener
}
