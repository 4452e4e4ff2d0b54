package state

import "context"

// Effects tracks the side effects (local persist, remote sync) of one
// mutation. Callers may wait on it or ignore it; either way the in-memory
// change has already happened and effect failures are never reported here.
type Effects struct {
	done chan struct{}
}

func newEffects(parts ...<-chan struct{}) *Effects {
	e := &Effects{done: make(chan struct{})}
	go func() {
		for _, p := range parts {
			<-p
		}
		close(e.done)
	}()
	return e
}

func completedEffects() *Effects {
	e := &Effects{done: make(chan struct{})}
	close(e.done)
	return e
}

// Done is closed once every effect has finished, successfully or not.
func (e *Effects) Done() <-chan struct{} { return e.done }

// Wait blocks until the effects finish or ctx ends. It only returns ctx.Err().
func (e *Effects) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
