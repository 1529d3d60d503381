package series

import (
	"sort"
	"sync"
	"time"

	"VolSignals/internal/domain/models"
)

// DefaultLookbackDays bounds how far back Lookup falls when the tick slot is empty.
const DefaultLookbackDays = 10

// slot is the sub-day granularity used for the backward scan.
const slot = time.Hour

// Series is a point-in-time store of samples for one source. Samples are
// bucketed by UTC hour; within a bucket they are kept in timestamp order.
type Series struct {
	name string

	mu      sync.RWMutex
	buckets map[int64][]models.SignalSample
	count   int
	first   time.Time
	last    time.Time
}

func New(name string) *Series {
	return &Series{
		name:    name,
		buckets: make(map[int64][]models.SignalSample),
	}
}

func (s *Series) Name() string { return s.name }

func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Span returns the earliest and latest sample timestamps.
func (s *Series) Span() (time.Time, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.first, s.last
}

func slotKey(t time.Time) int64 {
	return t.UTC().Truncate(slot).Unix()
}

// Add records a sample. A sample whose timestamp is already present is ignored;
// recorded samples are never overwritten. Reports whether the sample was stored.
func (s *Series) Add(sample models.SignalSample) bool {
	key := slotKey(sample.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.buckets[key]
	i := sort.Search(len(bucket), func(i int) bool {
		return !bucket[i].Timestamp.Before(sample.Timestamp)
	})
	if i < len(bucket) && bucket[i].Timestamp.Equal(sample.Timestamp) {
		return false
	}
	bucket = append(bucket, models.SignalSample{})
	copy(bucket[i+1:], bucket[i:])
	bucket[i] = sample
	s.buckets[key] = bucket

	if s.count == 0 || sample.Timestamp.Before(s.first) {
		s.first = sample.Timestamp
	}
	if s.count == 0 || sample.Timestamp.After(s.last) {
		s.last = sample.Timestamp
	}
	s.count++
	return true
}

// AddAll records samples in order and returns how many were stored.
func (s *Series) AddAll(samples []models.SignalSample) int {
	n := 0
	for _, sm := range samples {
		if s.Add(sm) {
			n++
		}
	}
	return n
}

// Get returns the latest sample of the hour slot containing at, not after at.
func (s *Series) Get(at time.Time) (models.SignalSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inSlot(slotKey(at), at)
}

func (s *Series) inSlot(key int64, at time.Time) (models.SignalSample, bool) {
	bucket := s.buckets[key]
	for i := len(bucket) - 1; i >= 0; i-- {
		if !bucket[i].Timestamp.After(at) {
			return bucket[i], true
		}
	}
	return models.SignalSample{}, false
}

// Lookup resolves the sample valid at the given tick. It tries the tick's own
// slot, then the earlier slots of the same day down to hour 0, then each of
// the previous lookbackDays days from hour 23 down to hour 0. A sample dated
// after at is never returned.
func (s *Series) Lookup(at time.Time, lookbackDays int) (models.SignalSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return models.SignalSample{}, false
	}

	at = at.UTC()
	if sm, ok := s.inSlot(slotKey(at), at); ok {
		return sm, true
	}

	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	for h := at.Hour() - 1; h >= 0; h-- {
		if sm, ok := s.inSlot(day.Add(time.Duration(h)*slot).Unix(), at); ok {
			return sm, true
		}
	}

	for d := 1; d <= lookbackDays; d++ {
		prev := day.AddDate(0, 0, -d)
		for h := 23; h >= 0; h-- {
			if sm, ok := s.inSlot(prev.Add(time.Duration(h)*slot).Unix(), at); ok {
				return sm, true
			}
		}
	}
	return models.SignalSample{}, false
}

// Samples returns every sample in timestamp order.
func (s *Series) Samples() []models.SignalSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SignalSample, 0, s.count)
	for _, bucket := range s.buckets {
		out = append(out, bucket...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
