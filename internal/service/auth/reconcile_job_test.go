package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"storelinker-service/internal/pkg/session"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (c *countingReconciler) ReconcileAll(ctx context.Context) (*session.ReconcileReport, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &session.ReconcileReport{Users: 1, SessionsAdded: 2}, nil
}

func TestReconcileJobRunOnce(t *testing.T) {
	rec := &countingReconciler{}
	job := NewReconcileJob(rec, time.Minute, zap.NewNop())

	report := job.RunOnce(context.Background())
	assert.Equal(t, 2, report.SessionsAdded)

	rec.err = errors.New("mongo down")
	assert.Nil(t, job.RunOnce(context.Background()))
}

func TestReconcileJobDisabled(t *testing.T) {
	rec := &countingReconciler{}
	done := make(chan struct{})
	go func() {
		NewReconcileJob(rec, 0, nil).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled job did not return")
	}
	assert.Zero(t, rec.calls.Load())
}

func TestReconcileJobTicksUntilCancelled(t *testing.T) {
	rec := &countingReconciler{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewReconcileJob(rec, 10*time.Millisecond, nil).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return rec.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop after cancel")
	}
}
