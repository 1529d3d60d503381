package repository

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"VolSignals/internal/domain/models"
	applogger "VolSignals/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2022, 3, 18, 21, 0, 0, 0, time.UTC)

func event(kind models.EventKind, i int) models.AuditEvent {
	return models.NewAuditEvent(kind, "VXX", t0.AddDate(0, 0, i), nil)
}

func TestRingSinkWrapsNewestFirst(t *testing.T) {
	r := NewRingSink(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		kind := models.EventEntry
		if i%2 == 1 {
			kind = models.EventExit
		}
		r.Emit(ctx, event(kind, i))
	}
	assert.Equal(t, 3, r.Len())

	all := r.Recent(10, "", time.Time{})
	require.Len(t, all, 3)
	assert.Equal(t, t0.AddDate(0, 0, 4), all[0].At)
	assert.Equal(t, t0.AddDate(0, 0, 2), all[2].At)

	exits := r.Recent(10, models.EventExit, time.Time{})
	require.Len(t, exits, 1)
	assert.Equal(t, t0.AddDate(0, 0, 3), exits[0].At)

	assert.Len(t, r.Recent(10, "", t0.AddDate(0, 0, 4)), 1)
	assert.Len(t, r.Recent(2, "", time.Time{}), 2)
}

func TestFanoutSinkSkipsNil(t *testing.T) {
	a, b := NewRingSink(4), NewRingSink(4)
	f := NewFanoutSink(a, nil, b)
	f.Emit(context.Background(), event(models.EventEntry, 0))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	NewLogSink(applogger.NewWriter(&buf)).Emit(context.Background(),
		models.NewAuditEvent(models.EventExit, "VXX", t0, &models.ExitEvent{Reason: models.ExitStopHit}))
	assert.Contains(t, buf.String(), "audit exit")
	assert.Contains(t, buf.String(), "STOP_HIT")
}

type fakePublisher struct {
	topic string
	key   []byte
	value interface{}
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return f.err
}

func TestKafkaAuditPublisher(t *testing.T) {
	var buf bytes.Buffer
	fp := &fakePublisher{}
	p := NewKafkaAuditPublisher(fp, "volsignals.audit", applogger.NewWriter(&buf))

	ev := event(models.EventEntry, 0)
	p.Emit(context.Background(), ev)
	assert.Equal(t, "volsignals.audit", fp.topic)
	assert.Equal(t, []byte("VXX"), fp.key)
	assert.Equal(t, ev, fp.value)
	assert.Empty(t, buf.String())

	fp.err = errors.New("broker down")
	p.Emit(context.Background(), ev)
	assert.Contains(t, buf.String(), "kafka audit publish failed")
}
