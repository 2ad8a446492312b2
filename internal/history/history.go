// Package history keeps the bounded, most-recent-first log of past
// optimizations on top of a key-value Store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixbrock/promptstudio/internal/domain"
	"github.com/felixbrock/promptstudio/internal/logger"
)

const (
	MaxEntries = 20
	DefaultKey = "optimizerHistory"
)

var ErrNotFound = errors.New("history: key not found")

// Store is the persistence port. Get returns ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Updater is implemented by stores that can read, change and write a key as
// one step, even when other processes share the store. fn receives nil for a
// missing key; a nil result deletes the key.
type Updater interface {
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
}

// Log is safe for concurrent use. Storage failures are logged and never
// returned: the in-memory log still reflects every change.
type Log struct {
	mu      sync.Mutex
	store   Store
	key     string
	max     int
	entries []domain.HistoryEntry
	// dirty is set while memory holds changes the store failed to take.
	dirty bool
	log   *logger.Logger
}

func New(store Store, key string, maxEntries int, log *logger.Logger) *Log {
	if key == "" {
		key = DefaultKey
	}
	if maxEntries <= 0 {
		maxEntries = MaxEntries
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Log{store: store, key: key, max: maxEntries, log: log.With("component", "history", "key", key)}
}

// NewEntry wraps a canonical result into a history entry with a time-ordered id.
func NewEntry(userInput, customInstructions string, result domain.OptimizationResult, now time.Time) (domain.HistoryEntry, error) {
	id, err := uuid.NewV7()

	if err != nil {
		return domain.HistoryEntry{}, err
	}

	return domain.HistoryEntry{
		Id:                 id.String(),
		UserInput:          userInput,
		CustomInstructions: customInstructions,
		Result:             domain.StructuredResult(result),
		IsStructured:       true,
		Timestamp:          now.UTC().Format(time.RFC3339),
	}, nil
}

// Load returns the log newest first, migrating legacy entries on every call.
func (l *Log) Load(ctx context.Context) []domain.HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refresh(ctx)

	return l.snapshot()
}

func (l *Log) Get(ctx context.Context, id string) (domain.HistoryEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refresh(ctx)

	for _, e := range l.entries {
		if e.Id == id {
			return e, true
		}
	}

	return domain.HistoryEntry{}, false
}

// Append prepends entry and evicts the oldest entries beyond the bound.
func (l *Log) Append(ctx context.Context, entry domain.HistoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.mutate(ctx, func(current []domain.HistoryEntry) ([]domain.HistoryEntry, bool) {
		entries := make([]domain.HistoryEntry, 0, len(current)+1)
		entries = append(entries, entry)
		entries = append(entries, current...)
		if len(entries) > l.max {
			entries = entries[:l.max]
		}
		return entries, true
	})
}

// Remove deletes the entry with id. Unknown ids are a no-op.
func (l *Log) Remove(ctx context.Context, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.mutate(ctx, func(current []domain.HistoryEntry) ([]domain.HistoryEntry, bool) {
		entries := make([]domain.HistoryEntry, 0, len(current))
		for _, e := range current {
			if e.Id != id {
				entries = append(entries, e)
			}
		}
		return entries, len(entries) != len(current)
	})
}

func (l *Log) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	err := l.store.Delete(ctx, l.key)

	if err != nil && !errors.Is(err, ErrNotFound) {
		l.dirty = true
		l.log.Error("history clear failed", "error", err.Error())
		return
	}
	l.dirty = false
}

// mutate applies change to the stored log. Stores that implement Updater
// apply it atomically to what is stored now, so writers in other processes
// are not overwritten. change reports false when it left the log alone.
func (l *Log) mutate(ctx context.Context, change func([]domain.HistoryEntry) ([]domain.HistoryEntry, bool)) {
	u, ok := l.store.(Updater)
	if !ok || l.dirty {
		l.refresh(ctx)

		entries, changed := change(l.entries)
		if !changed {
			return
		}
		l.entries = entries

		l.persist(ctx)
		return
	}

	var next []domain.HistoryEntry
	err := u.Update(ctx, l.key, func(current []byte) ([]byte, error) {
		entries, changed := change(l.decode(current))
		next = entries
		if !changed {
			return current, nil
		}
		return encode(entries)
	})

	if err != nil {
		l.log.Error("history update failed", "error", err.Error())
		if entries, changed := change(l.entries); changed {
			l.entries = entries
			l.dirty = true
		}
		return
	}
	l.entries = next
}

// refresh replaces memory with the stored log unless memory holds changes
// the store has not taken yet.
func (l *Log) refresh(ctx context.Context) {
	if l.dirty {
		return
	}

	content, err := l.store.Get(ctx, l.key)

	if errors.Is(err, ErrNotFound) {
		l.entries = nil
		return
	} else if err != nil {
		l.log.Error("history read failed", "error", err.Error())
		return
	}

	l.entries = l.decode(content)
}

// decode reads a stored log, bounded to max. Missing or unreadable content
// is an empty log.
func (l *Log) decode(content []byte) []domain.HistoryEntry {
	if content == nil {
		return nil
	}

	entries, err := migrate(content)

	if err != nil {
		l.log.Error("history unreadable, starting empty", "error", err.Error())
		return nil
	}

	if len(entries) > l.max {
		entries = entries[:l.max]
	}
	return entries
}

func encode(entries []domain.HistoryEntry) ([]byte, error) {
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return json.Marshal(entries)
}

func (l *Log) persist(ctx context.Context) {
	content, err := encode(l.entries)

	if err != nil {
		l.dirty = true
		l.log.Error("history encode failed", "error", err.Error())
		return
	}

	err = l.store.Set(ctx, l.key, content)

	if err != nil {
		l.dirty = true
		l.log.Error("history write failed", "error", err.Error(), "entries", len(l.entries))
		return
	}
	l.dirty = false
}

func (l *Log) snapshot() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// migrate decodes a stored log. Entries without isStructured are
// unstructured, and entries with a generatedPrompt but no result take it as
// their legacy result. Entries that cannot be decoded are dropped.
func migrate(content []byte) ([]domain.HistoryEntry, error) {
	var raw []json.RawMessage
	err := json.Unmarshal(content, &raw)

	if err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		entry, ok := migrateEntry(item)
		if ok {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

type storedEntry struct {
	domain.HistoryEntry
	IsStructured    *bool  `json:"isStructured"`
	GeneratedPrompt string `json:"generatedPrompt"`
}

func migrateEntry(item json.RawMessage) (domain.HistoryEntry, bool) {
	var stored storedEntry
	err := json.Unmarshal(item, &stored)

	if err != nil {
		return domain.HistoryEntry{}, false
	}

	entry := stored.HistoryEntry
	entry.IsStructured = stored.IsStructured != nil && *stored.IsStructured

	if entry.Result.IsZero() && stored.GeneratedPrompt != "" {
		entry.Result = domain.LegacyResult(stored.GeneratedPrompt)
	}

	return entry, true
}
