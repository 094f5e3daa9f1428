package domain

import "sync"

type pendingState int

const (
	pendingStaged pendingState = iota
	pendingConsumed
	pendingDiscarded
)

// Pending holds staged signup data that can be taken exactly once.
type Pending struct {
	mu    sync.Mutex
	state pendingState
	data  PendingSignupData
}

func Stage(data PendingSignupData) (*Pending, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &Pending{state: pendingStaged, data: data}, nil
}

// Take returns the data and moves the pending record to consumed.
func (p *Pending) Take() (PendingSignupData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case pendingConsumed:
		return PendingSignupData{}, ErrPendingConsumed
	case pendingDiscarded:
		return PendingSignupData{}, ErrPendingDiscarded
	}
	data := p.data
	p.data = PendingSignupData{}
	p.state = pendingConsumed
	return data, nil
}

// Discard wipes the data. It is a no-op once consumed.
func (p *Pending) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == pendingStaged {
		p.state = pendingDiscarded
	}
	p.data = PendingSignupData{}
}
