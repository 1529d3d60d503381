package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	drepo "VolSignals/internal/domain/repository"
)

// Fill is one simulated execution.
type Fill struct {
	At         time.Time `json:"at"`
	Instrument string    `json:"instrument"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
}

// PaperVenue fills target weights at the last marked price against a cash
// account. Short positions carry negative quantity.
type PaperVenue struct {
	mu       sync.Mutex
	cash     float64
	holdings map[string]float64
	prices   map[string]float64
	lastAt   time.Time
	fills    []Fill
}

func NewPaperVenue(startCash float64) *PaperVenue {
	return &PaperVenue{
		cash:     startCash,
		holdings: make(map[string]float64),
		prices:   make(map[string]float64),
	}
}

// Mark records the price fills of instrument execute at.
func (v *PaperVenue) Mark(instrument string, price float64, at time.Time) {
	v.mu.Lock()
	v.prices[instrument] = price
	v.lastAt = at
	v.mu.Unlock()
}

func (v *PaperVenue) equityLocked() float64 {
	eq := v.cash
	for inst, qty := range v.holdings {
		eq += qty * v.prices[inst]
	}
	return eq
}

// Equity is cash plus holdings at their last marked prices.
func (v *PaperVenue) Equity() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.equityLocked()
}

func (v *PaperVenue) Position(instrument string) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.holdings[instrument]
}

func (v *PaperVenue) Cash() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cash
}

func (v *PaperVenue) Fills() []Fill {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Fill(nil), v.fills...)
}

func (v *PaperVenue) SetTargetWeight(_ context.Context, instrument string, weight float64) error {
	if weight < -1 || weight > 1 || math.IsNaN(weight) {
		return fmt.Errorf("target weight %v outside [-1, 1]", weight)
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	price, ok := v.prices[instrument]
	if !ok || price <= 0 {
		return fmt.Errorf("no price marked for %s", instrument)
	}
	target := weight * v.equityLocked() / price
	v.tradeLocked(instrument, target-v.holdings[instrument], price)
	return nil
}

func (v *PaperVenue) Liquidate(_ context.Context, instrument string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	qty := v.holdings[instrument]
	if qty == 0 {
		return nil
	}
	price, ok := v.prices[instrument]
	if !ok {
		return fmt.Errorf("no price marked for %s", instrument)
	}
	v.tradeLocked(instrument, -qty, price)
	return nil
}

func (v *PaperVenue) tradeLocked(instrument string, qty, price float64) {
	if qty == 0 {
		return
	}
	v.holdings[instrument] += qty
	if v.holdings[instrument] == 0 {
		delete(v.holdings, instrument)
	}
	v.cash -= qty * price
	v.fills = append(v.fills, Fill{At: v.lastAt, Instrument: instrument, Quantity: qty, Price: price})
}

var _ drepo.Venue = (*PaperVenue)(nil)
