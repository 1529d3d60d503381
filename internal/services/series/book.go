package series

import (
	"context"
	"fmt"
	"sync"
	"time"

	"VolSignals/internal/domain/models"
	"VolSignals/internal/domain/repository"
)

// Book holds the correlation series and instrument price series of a run and
// serves them as a SignalSource and a PriceFeed.
type Book struct {
	mu     sync.RWMutex
	series map[string]*Series

	signalLookback int
	priceLookback  int
}

type BookOption func(*Book)

// WithSignalLookback sets the day horizon of SignalValue.
func WithSignalLookback(days int) BookOption {
	return func(b *Book) { b.signalLookback = days }
}

// WithPriceLookback sets the day horizon of LatestPrice.
func WithPriceLookback(days int) BookOption {
	return func(b *Book) { b.priceLookback = days }
}

func NewBook(opts ...BookOption) *Book {
	b := &Book{
		series:         make(map[string]*Series),
		signalLookback: DefaultLookbackDays,
		priceLookback:  DefaultLookbackDays,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Series returns the named series, creating it on first use.
func (b *Book) Series(name string) *Series {
	b.mu.RLock()
	s, ok := b.series[name]
	b.mu.RUnlock()
	if ok {
		return s
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok = b.series[name]; !ok {
		s = New(name)
		b.series[name] = s
	}
	return s
}

func (b *Book) lookup(name string, at time.Time, days int) (float64, bool) {
	b.mu.RLock()
	s, ok := b.series[name]
	b.mu.RUnlock()
	if !ok {
		return 0, false
	}
	sm, ok := s.Lookup(at, days)
	if !ok {
		return 0, false
	}
	return sm.Close, true
}

func (b *Book) SignalValue(_ context.Context, source string, at time.Time) (float64, bool) {
	return b.lookup(source, at, b.signalLookback)
}

func (b *Book) LatestPrice(_ context.Context, instrument string, at time.Time) (float64, bool) {
	return b.lookup(instrument, at, b.priceLookback)
}

// Load fills the named series from a historical loader and returns the number
// of samples stored per series.
func (b *Book) Load(ctx context.Context, loader repository.SeriesLoader, names ...string) (map[string]int, error) {
	counts := make(map[string]int, len(names))
	for _, name := range names {
		samples, err := loader.LoadSeries(ctx, name)
		if err != nil {
			return counts, fmt.Errorf("load series %s: %w", name, err)
		}
		counts[name] = b.Series(name).AddAll(samples)
	}
	return counts, nil
}

// ApplyTick records a live tick: the instrument price and every signal value
// it carries become flat samples at the tick time.
func (b *Book) ApplyTick(t *models.LiveTick) {
	if t.Price > 0 && t.Instrument != "" {
		b.Series(t.Instrument).Add(models.FlatSample(t.Time, t.Price))
	}
	for name, v := range t.Signals {
		b.Series(name).Add(models.FlatSample(t.Time, v))
	}
}
