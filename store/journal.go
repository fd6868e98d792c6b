package store

import (
	"sync"

	"economy-ledger/domain"
	"economy-ledger/events"
)

// JournalEntry is one completed operation in an account's history.
type JournalEntry struct {
	// Version is the position of the entry in the account stream, starting at 1.
	Version int
	Event   events.Event
}

// InMemoryJournal keeps the history of completed operations per account.
// It is fed by post-event observers.
type InMemoryJournal struct {
	sync.RWMutex
	streams map[domain.AccountKey][]JournalEntry
}

func NewInMemoryJournal() *InMemoryJournal {
	return &InMemoryJournal{
		streams: make(map[domain.AccountKey][]JournalEntry),
	}
}

// RecordTransaction is a TransactionPost observer.
func (j *InMemoryJournal) RecordTransaction(event events.TransactionPost) error {
	j.append(event.Account().Key(), event)
	return nil
}

// RecordTransfer is a TransferPost observer; the transfer joins both account streams.
func (j *InMemoryJournal) RecordTransfer(event events.TransferPost) error {
	j.append(event.From().Key(), event)
	j.append(event.To().Key(), event)
	return nil
}

func (j *InMemoryJournal) append(key domain.AccountKey, event events.Event) {
	j.Lock()
	defer j.Unlock()

	stream := j.streams[key]
	j.streams[key] = append(stream, JournalEntry{Version: len(stream) + 1, Event: event})
}

// GetEntriesAfterVersion returns a copy of the entries whose version is above version.
func (j *InMemoryJournal) GetEntriesAfterVersion(key domain.AccountKey, version int) []JournalEntry {
	j.RLock()
	defer j.RUnlock()

	stream := j.streams[key]
	if version < 0 {
		version = 0
	}
	if version >= len(stream) {
		return []JournalEntry{}
	}
	result := make([]JournalEntry, len(stream)-version)
	copy(result, stream[version:])
	return result
}

// Page returns at most limit entries after skipping skip. A non-positive limit means no limit.
func (j *InMemoryJournal) Page(key domain.AccountKey, skip, limit int) []JournalEntry {
	entries := j.GetEntriesAfterVersion(key, skip)
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// Forget drops the stream of a deleted account.
func (j *InMemoryJournal) Forget(key domain.AccountKey) {
	j.Lock()
	defer j.Unlock()
	delete(j.streams, key)
}
