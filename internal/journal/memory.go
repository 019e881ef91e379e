package journal

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"farmaledger.org/internal/ids"
	"farmaledger.org/internal/tax"
)

// InMemory implements Store and PartyRegistry with in-process concurrency
// safety. Used by tests and local development; production uses the Postgres
// store with the same interface.
type InMemory struct {
	mu      sync.RWMutex
	seq     uint64
	entries map[string]*Entry
	order   []string // entry ids in posting order
	idem    map[string]Entry
	taxDocs []tax.Document
	parties map[string]*Party
}

// NewInMemory creates an empty journal store.
func NewInMemory() *InMemory {
	return &InMemory{
		entries: make(map[string]*Entry),
		idem:    make(map[string]Entry),
		parties: make(map[string]*Party),
	}
}

func copyEntry(e Entry) Entry {
	out := e
	out.Lines = make([]Line, len(e.Lines))
	copy(out.Lines, e.Lines)
	return out
}

func (s *InMemory) SaveEntry(ctx context.Context, e Entry, taxDoc *tax.Document) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.IdempotencyKey != "" {
		if prev, ok := s.idem[e.IdempotencyKey]; ok {
			return copyEntry(prev), nil
		}
	}

	s.seq++
	e.Sequence = s.seq
	e.CreatedAt = time.Now().UTC()
	stored := copyEntry(e)
	s.entries[e.ID] = &stored
	s.order = append(s.order, e.ID)
	if taxDoc != nil {
		s.taxDocs = append(s.taxDocs, *taxDoc)
	}
	if e.IdempotencyKey != "" {
		s.idem[e.IdempotencyKey] = stored
	}
	return copyEntry(stored), nil
}

func (s *InMemory) Entry(ctx context.Context, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return copyEntry(*e), nil
}

func (s *InMemory) ListEntries(ctx context.Context, limit int, afterSeq uint64) ([]Entry, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := []Entry{}
	var last uint64
	for _, id := range s.order {
		e := s.entries[id]
		if e.Sequence <= afterSeq {
			continue
		}
		res = append(res, copyEntry(*e))
		last = e.Sequence
		if len(res) >= limit {
			break
		}
	}
	return res, last, nil
}

func (s *InMemory) collectLines(match func(Line) bool, from, to time.Time) []LedgerLine {
	res := []LedgerLine{}
	for _, id := range s.order {
		e := s.entries[id]
		if !inRange(e.Date, from, to) {
			continue
		}
		for _, l := range e.Lines {
			if !match(l) {
				continue
			}
			res = append(res, LedgerLine{
				EntryID:    e.ID,
				Sequence:   e.Sequence,
				Date:       e.Date,
				SourceType: e.SourceType,
				SourceID:   e.SourceID,
				AccountID:  l.AccountID,
				PartyID:    l.PartyID,
				Debit:      l.Debit,
				Credit:     l.Credit,
				Memo:       l.Memo,
			})
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if !res[i].Date.Equal(res[j].Date) {
			return res[i].Date.Before(res[j].Date)
		}
		return res[i].Sequence < res[j].Sequence
	})
	return res
}

func (s *InMemory) LinesByAccount(ctx context.Context, accountID string, from, to time.Time) ([]LedgerLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLines(func(l Line) bool { return l.AccountID == accountID }, from, to), nil
}

func (s *InMemory) LinesByParty(ctx context.Context, partyID string, from, to time.Time) ([]LedgerLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLines(func(l Line) bool { return l.PartyID == partyID }, from, to), nil
}

func (s *InMemory) LinesInRange(ctx context.Context, from, to time.Time) ([]LedgerLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLines(func(Line) bool { return true }, from, to), nil
}

func (s *InMemory) TaxDocuments(ctx context.Context, year int, month time.Month) ([]tax.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []tax.Document{}
	for _, d := range s.taxDocs {
		if d.Date.Year() == year && d.Date.Month() == month {
			res = append(res, d)
		}
	}
	return res, nil
}

func (s *InMemory) HasPostings(ctx context.Context, accountID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		for _, l := range e.Lines {
			if l.AccountID == accountID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *InMemory) CreateParty(ctx context.Context, p Party) (Party, error) {
	if strings.TrimSpace(p.Name) == "" {
		return Party{}, &ValidationError{Line: -1, Reason: "party name is required"}
	}
	if p.Kind != PartyCustomer && p.Kind != PartySupplier {
		return Party{}, &ValidationError{Line: -1, Reason: "party kind must be customer or supplier"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	p.CreatedAt = time.Now().UTC()
	s.parties[p.ID] = &p
	return p, nil
}

func (s *InMemory) Party(ctx context.Context, id string) (Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parties[id]
	if !ok {
		return Party{}, ErrPartyNotFound
	}
	return *p, nil
}

func (s *InMemory) Parties(ctx context.Context) ([]Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []Party{}
	for _, p := range s.parties {
		res = append(res, *p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}
