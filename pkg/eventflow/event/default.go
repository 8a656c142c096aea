package event

import "sync"

var defaultBus = sync.OnceValue(func() *Bus {
	return NewBus(BusConfig{})
})

// Default returns a process-wide bus for callers that do not inject one.
// Components accept a *Bus explicitly; Default only fills in when they are
// given nil.
func Default() *Bus {
	return defaultBus()
}
