package service

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/adparams/internal/core"
)

// ErrDatasetNotFound is returned for unknown or expired dataset ids.
var ErrDatasetNotFound = errors.New("dataset not found")

// Dataset is one validated upload held in memory.
type Dataset struct {
	ID        string
	SchemaKey string
	ClientID  string
	FileName  string
	Header    []string
	Records   []core.Record
	Report    core.ValidationReport
	CreatedAt time.Time

	lastAccess time.Time
}

// datasetStore holds datasets by id. Records are never modified after Put,
// so readers may use a returned dataset without holding the lock.
type datasetStore struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
	max      int
}

func newDatasetStore(max int) *datasetStore {
	return &datasetStore{datasets: make(map[string]*Dataset), max: max}
}

// put stores ds and returns the datasets evicted to respect the cap, oldest first.
func (s *datasetStore) put(ds *Dataset, now time.Time) []*Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds.lastAccess = now
	s.datasets[ds.ID] = ds

	if s.max <= 0 || len(s.datasets) <= s.max {
		return nil
	}

	byAge := make([]*Dataset, 0, len(s.datasets))
	for _, d := range s.datasets {
		if d.ID != ds.ID {
			byAge = append(byAge, d)
		}
	}
	sort.Slice(byAge, func(i, j int) bool {
		return byAge[i].lastAccess.Before(byAge[j].lastAccess)
	})

	excess := len(s.datasets) - s.max
	evicted := byAge[:excess]
	for _, d := range evicted {
		delete(s.datasets, d.ID)
	}
	return evicted
}

// get returns the dataset and refreshes its last access time.
func (s *datasetStore) get(id string, now time.Time) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, ok := s.datasets[id]
	if !ok {
		return nil, ErrDatasetNotFound
	}
	ds.lastAccess = now
	return ds, nil
}

func (s *datasetStore) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[id]; !ok {
		return false
	}
	delete(s.datasets, id)
	return true
}

// expire removes datasets not accessed since cutoff.
func (s *datasetStore) expire(cutoff time.Time) []*Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*Dataset
	for id, d := range s.datasets {
		if d.lastAccess.Before(cutoff) {
			expired = append(expired, d)
			delete(s.datasets, id)
		}
	}
	return expired
}

func (s *datasetStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}
