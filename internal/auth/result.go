package auth

import (
	"context"
	"sync"
	"sync/atomic"
)

// PendingResult is the outcome of one flow: an authorization code or a failure, settled exactly once.
type PendingResult struct {
	settled atomic.Bool
	done    chan struct{}
	code    string
	err     error
}

func newPendingResult() *PendingResult {
	return &PendingResult{done: make(chan struct{})}
}

// settle records the outcome if nothing has been recorded yet. The first caller wins; later callers get false
// and their outcome is dropped.
func (p *PendingResult) settle(code string, err error) bool {
	if !p.settled.CompareAndSwap(false, true) {
		return false
	}
	p.code, p.err = code, err
	close(p.done)
	return true
}

func (p *PendingResult) resolve(code string) bool { return p.settle(code, nil) }

func (p *PendingResult) reject(err error) bool { return p.settle("", err) }

// Settled reports whether an outcome has been claimed. It may turn true shortly before [PendingResult.Done]
// closes.
func (p *PendingResult) Settled() bool {
	return p.settled.Load()
}

// Done is closed once the outcome is available.
func (p *PendingResult) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the flow settles or ctx ends. On ctx expiry the flow is left untouched; callers that give
// up should call [Request.Close].
func (p *PendingResult) Wait(ctx context.Context) (string, error) {
	select {
	case <-p.done:
		return p.code, p.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Completion reports how the rest of the sign-in pipeline went once the code was handed over. A nil error, or
// closing the channel without a value, means success.
type Completion <-chan error

// NewCompletion returns a [Completion] and the function that settles it. Only the first call to settle has any
// effect.
func NewCompletion() (Completion, func(error)) {
	ch := make(chan error, 1)
	var once sync.Once
	settle := func(err error) {
		once.Do(func() {
			ch <- err
			close(ch)
		})
	}
	return ch, settle
}
