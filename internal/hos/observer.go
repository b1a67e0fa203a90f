package hos

// Observer receives notable simulation events (stop insertions, drive
// segments). The engine itself never logs; callers inject an observer when
// they want visibility. A nil observer is valid and means no-op.
type Observer interface {
	Event(name string, fields map[string]any)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(name string, fields map[string]any)

func (f ObserverFunc) Event(name string, fields map[string]any) { f(name, fields) }
