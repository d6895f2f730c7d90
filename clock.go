package batch

import "time"

// Clock abstracts timer creation so tests can control simulated latency
// without real waiting.
type Clock interface {
	// After returns a channel that delivers the current time after d elapses.
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// SystemClock returns a Clock backed by the real time package.
func SystemClock() Clock {
	return systemClock{}
}
