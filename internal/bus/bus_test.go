package bus_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrywatch/threatwatch/internal/bus"
	"github.com/sentrywatch/threatwatch/internal/models"
)

func newFinding(title string) *models.Finding {
	f := models.NewFinding(models.CapabilityExposureDiscovery, models.SeverityInfo, 5, title, "d")
	f.Evidence = map[string]interface{}{"job_id": "job-1"}
	return f
}

func TestFindingBus_OrderedGetSince(t *testing.T) {
	b := bus.NewFindingBus(nil)

	f1, f2, f3 := newFinding("f1"), newFinding("f2"), newFinding("f3")
	b.Add("job-1", f1)
	b.Add("job-1", f2)
	b.Add("job-1", f3)

	got := b.GetSince("job-1", time.Time{})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"f1", "f2", "f3"}, []string{got[0].Title, got[1].Title, got[2].Title})
}

func TestFindingBus_SnapshotExcludesLaterAppends(t *testing.T) {
	b := bus.NewFindingBus(nil)
	b.Add("job-1", newFinding("f1"))

	snapshotTime := time.Now()
	got := b.GetSince("job-1", snapshotTime)
	assert.Empty(t, got)

	b.Add("job-1", newFinding("f2"))
	got = b.GetSince("job-1", snapshotTime)
	require.Len(t, got, 1)
	assert.Equal(t, "f2", got[0].Title)
}

func TestObserverRegistry_SecondSubscribeSupersedesFirst(t *testing.T) {
	r := bus.NewObserverRegistry()
	first := r.Subscribe("job-1")
	second := r.Subscribe("job-1")

	select {
	case ev, ok := <-first:
		require.True(t, ok)
		assert.Equal(t, models.EventTypeSuperseded, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected superseded event")
	}

	_, ok := <-first
	assert.False(t, ok, "first sink should be closed")

	r.Publish("job-1", models.NewProgressEvent("job-1", 10, "hello"))
	select {
	case ev := <-second:
		assert.Equal(t, models.EventTypeProgress, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected progress event on second sink")
	}
}

func TestObserverRegistry_PublishDropsWhenBufferFull(t *testing.T) {
	r := bus.NewObserverRegistry()
	r.Subscribe("job-1")

	// Flood well past the buffer capacity; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			r.Publish("job-1", models.NewProgressEvent("job-1", i%100, "x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked under backpressure")
	}
}

func TestObserverRegistry_PublishWithNoSubscriberIsNoop(t *testing.T) {
	r := bus.NewObserverRegistry()
	assert.NotPanics(t, func() {
		r.Publish("unknown-job", models.NewProgressEvent("unknown-job", 1, "x"))
	})
}
