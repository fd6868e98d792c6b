package events

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

type (
	TransactionPreObserver  func(*TransactionPre) error
	TransactionPostObserver func(TransactionPost) error
	TransferPreObserver     func(*TransferPre) error
	TransferPostObserver    func(TransferPost) error
)

// observers is an ordered list of callbacks for one event type.
type observers[E any] struct {
	mu   sync.RWMutex
	list []func(E) error
}

func (o *observers[E]) add(fn func(E) error) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.list = append(o.list, fn)
	o.mu.Unlock()
}

func (o *observers[E]) snapshot() []func(E) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]func(E) error, len(o.list))
	copy(out, o.list)
	return out
}

// fire runs every observer in registration order and returns their combined failures.
func (o *observers[E]) fire(name EventType, event E) error {
	var errs error
	for i, fn := range o.snapshot() {
		errs = multierr.Append(errs, call(name, i, fn, event))
	}
	return errs
}

func call[E any](name EventType, index int, fn func(E) error, event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s observer #%d panicked: %v", name, index, r)
		}
	}()
	if ferr := fn(event); ferr != nil {
		return fmt.Errorf("%s observer #%d: %w", name, index, ferr)
	}
	return nil
}

// Gateway dispatches ledger events to observers registered at startup.
// Observers run synchronously in registration order; one failing observer
// never prevents the others from running.
type Gateway struct {
	transactionPre  observers[*TransactionPre]
	transactionPost observers[TransactionPost]
	transferPre     observers[*TransferPre]
	transferPost    observers[TransferPost]
}

func NewGateway() *Gateway {
	return &Gateway{}
}

func (g *Gateway) OnTransactionPre(fn TransactionPreObserver) {
	g.transactionPre.add(fn)
}

func (g *Gateway) OnTransactionPost(fn TransactionPostObserver) {
	g.transactionPost.add(fn)
}

func (g *Gateway) OnTransferPre(fn TransferPreObserver) {
	g.transferPre.add(fn)
}

func (g *Gateway) OnTransferPost(fn TransferPostObserver) {
	g.transferPost.add(fn)
}

// FireTransactionPre reports whether any observer cancelled the event.
func (g *Gateway) FireTransactionPre(event *TransactionPre) (bool, error) {
	err := g.transactionPre.fire(TransactionPreType, event)
	return event.Cancelled(), err
}

func (g *Gateway) FireTransactionPost(event TransactionPost) error {
	return g.transactionPost.fire(TransactionPostType, event)
}

// FireTransferPre reports whether any observer cancelled the event.
func (g *Gateway) FireTransferPre(event *TransferPre) (bool, error) {
	err := g.transferPre.fire(TransferPreType, event)
	return event.Cancelled(), err
}

func (g *Gateway) FireTransferPost(event TransferPost) error {
	return g.transferPost.fire(TransferPostType, event)
}
