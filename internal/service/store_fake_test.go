package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/booking-service/internal/model"
	"github.com/iliyamo/booking-service/internal/queue"
	"github.com/iliyamo/booking-service/internal/repository"
	"github.com/iliyamo/booking-service/internal/slot"
)

// memStore mirrors the MySQL unique indexes on reference and slot key.
type memStore struct {
	mu       sync.Mutex
	nextID   uint64
	rows     map[uint64]model.Booking
	failList error
	// refCollisions forces the next n Create calls to report a duplicate
	// reference.
	refCollisions int
	// skipPrecheck hides rows from FindActiveInSlot so only the unique
	// index can catch a conflict.
	skipPrecheck bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[uint64]model.Booking{}}
}

func (m *memStore) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refCollisions > 0 {
		m.refCollisions--
		return repository.ErrDuplicateReference
	}
	if err := m.checkUnique(b, 0); err != nil {
		return err
	}
	m.nextID++
	b.ID = m.nextID
	m.rows[b.ID] = *b
	return nil
}

func (m *memStore) checkUnique(b *model.Booking, self uint64) error {
	key := b.SlotKey()
	for id, row := range m.rows {
		if id == self {
			continue
		}
		if row.BookingReference == b.BookingReference && self == 0 {
			return repository.ErrDuplicateReference
		}
		if key != nil {
			if other := row.SlotKey(); other != nil && *other == *key {
				return repository.ErrSlotTaken
			}
		}
	}
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (m *memStore) FindActiveInSlot(_ context.Context, day time.Time, minute int, excludeID uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipPrecheck {
		return nil, nil
	}
	want := slot.Key(day, slot.Clock(minute))
	for id, row := range m.rows {
		if id == excludeID {
			continue
		}
		if k := row.SlotKey(); k != nil && *k == want {
			return &row, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListActiveBetween(_ context.Context, from, to time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	var out []model.Booking
	for _, row := range m.rows {
		if !row.Active() || row.BookingDate == nil {
			continue
		}
		d := slot.Day(*row.BookingDate, from.Location())
		if !d.Before(from) && d.Before(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memStore) List(_ context.Context, email string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, row := range m.rows {
		if email == "" || strings.EqualFold(row.CustomerEmail, email) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) Update(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[b.ID]; !ok {
		return repository.ErrNotFound
	}
	if err := m.checkUnique(b, b.ID); err != nil {
		return err
	}
	m.rows[b.ID] = *b
	return nil
}

func (m *memStore) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (r *recordingEvents) Publish(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

type failingCache struct {
	mu     sync.Mutex
	purges int
}

func (c *failingCache) Purge(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purges++
	return errors.New("redis down")
}
