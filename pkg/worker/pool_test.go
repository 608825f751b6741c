package worker_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ytarchive/ytarchive/pkg/worker"
)

func Test_Pool_ProcessesAllWork(t *testing.T) {
	var (
		mu        sync.Mutex
		remaining = 20
		processed atomic.Int32
	)

	task := func(w worker.Worker) (bool, error) {
		mu.Lock()
		if remaining == 0 {
			mu.Unlock()
			return false, nil
		}
		remaining--
		mu.Unlock()

		processed.Add(1)
		return true, nil
	}

	pool := worker.NewWorkerPool()
	for i := 0; i < 4; i++ {
		assert.NoError(t, pool.PushWorker(worker.NewWorker(fmt.Sprintf("test-%d", i), task)))
	}
	assert.Equal(t, 4, pool.Size())
	assert.NoError(t, pool.Start())

	assert.Eventually(t, func() bool { return processed.Load() == 20 }, 2*time.Second, 10*time.Millisecond)
	pool.Close()
}

func Test_Pool_WakeupResumesSleepingWorkers(t *testing.T) {
	var (
		pending   atomic.Int32
		processed atomic.Int32
	)

	task := func(w worker.Worker) (bool, error) {
		if pending.Load() == 0 {
			return false, nil
		}
		pending.Add(-1)
		processed.Add(1)
		return true, nil
	}

	pool := worker.NewWorkerPool()
	w := worker.NewWorker("sleepy", task)
	assert.NoError(t, pool.PushWorker(w))
	assert.NoError(t, pool.Start())

	assert.Eventually(t, func() bool { return w.Status() == worker.Sleeping }, time.Second, 10*time.Millisecond)

	pending.Store(3)
	assert.NoError(t, pool.WakeupWorkers())
	assert.Eventually(t, func() bool { return processed.Load() == 3 }, time.Second, 10*time.Millisecond)

	pool.Close()
	assert.Equal(t, worker.Finished, w.Status())
}

func Test_Pool_RejectsLateWorkers(t *testing.T) {
	pool := worker.NewWorkerPool()
	assert.Error(t, pool.WakeupWorkers(), "waking an unstarted pool should fail")
	assert.NoError(t, pool.Start())
	assert.Error(t, pool.Start())
	assert.Error(t, pool.PushWorker(worker.NewWorker("late", func(worker.Worker) (bool, error) { return false, nil })))
	pool.Close()
}
