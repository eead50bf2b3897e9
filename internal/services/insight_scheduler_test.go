package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) RefreshInsights(ctx context.Context) InsightResult {
	r.calls.Add(1)
	return InsightResult{Source: SourceGemini}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestInsightSchedulerRunsImmediatelyAndOnSchedule(t *testing.T) {
	refresher := &countingRefresher{}
	scheduler := NewInsightScheduler(refresher, time.Second)

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer scheduler.Stop()

	waitFor(t, func() bool { return refresher.calls.Load() >= 1 })
	waitFor(t, func() bool { return refresher.calls.Load() >= 2 })

	status := scheduler.Status()
	if !status.Running || status.LastSource != SourceGemini || status.Runs < 2 {
		t.Errorf("Unexpected status: %+v", status)
	}
}

func TestInsightSchedulerStartTwice(t *testing.T) {
	scheduler := NewInsightScheduler(&countingRefresher{}, time.Hour)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer scheduler.Stop()

	if err := scheduler.Start(context.Background()); err == nil {
		t.Error("Expected an error when starting twice")
	}
}

func TestInsightSchedulerStop(t *testing.T) {
	refresher := &countingRefresher{}
	scheduler := NewInsightScheduler(refresher, time.Hour)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return refresher.calls.Load() == 1 })

	scheduler.Stop()
	scheduler.Stop()

	if scheduler.Status().Running {
		t.Error("Expected scheduler to be stopped")
	}
}
