package utils

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tj/go-spin"
)

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool[J, R any] struct {
	NumWorkers int
	JobQueue   chan J
	Results    chan R
	wg         sync.WaitGroup
	started    bool
	mu         sync.Mutex
}

// NewWorkerPool creates a new worker pool with specified number of workers
func NewWorkerPool[J, R any](numWorkers int, jobBufferSize int, resultBufferSize int) *WorkerPool[J, R] {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	return &WorkerPool[J, R]{
		NumWorkers: numWorkers,
		JobQueue:   make(chan J, jobBufferSize),
		Results:    make(chan R, resultBufferSize),
	}
}

// StartWorkers starts the worker goroutines with the given work function
func (wp *WorkerPool[J, R]) StartWorkers(workFunc func(J) R) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}

	wp.started = true
	wp.wg.Add(wp.NumWorkers)

	for i := 0; i < wp.NumWorkers; i++ {
		go wp.worker(workFunc)
	}
}

func (wp *WorkerPool[J, R]) worker(workFunc func(J) R) {
	defer wp.wg.Done()

	for job := range wp.JobQueue {
		wp.Results <- workFunc(job)
	}
}

// SubmitJob adds a job to the job queue
func (wp *WorkerPool[J, R]) SubmitJob(job J) {
	wp.JobQueue <- job
}

// Wait closes the job queue and blocks until every worker returned.
func (wp *WorkerPool[J, R]) Wait() {
	close(wp.JobQueue)
	wp.wg.Wait()
	close(wp.Results)
}

// ProgressFunc receives progress snapshots from a ProgressTracker.
type ProgressFunc func(name string, processed, total int64, elapsed time.Duration)

// ProgressTracker tracks progress of concurrent operations
type ProgressTracker struct {
	Total     int64
	Processed int64
	StartTime time.Time
	Name      string
	Every     int64
	report    ProgressFunc
}

// NewProgressTracker creates a new progress tracker. report may be nil.
func NewProgressTracker(total int64, name string, report ProgressFunc) *ProgressTracker {
	return &ProgressTracker{
		Total:     total,
		StartTime: time.Now(),
		Name:      name,
		Every:     100,
		report:    report,
	}
}

// Increment increments the processed count atomically and reports every
// Every items and at completion.
func (pt *ProgressTracker) Increment() {
	processed := atomic.AddInt64(&pt.Processed, 1)
	if pt.report == nil {
		return
	}
	if (pt.Every > 0 && processed%pt.Every == 0) || processed == pt.Total {
		pt.report(pt.Name, processed, pt.Total, time.Since(pt.StartTime))
	}
}

// GetProgress returns the current progress
func (pt *ProgressTracker) GetProgress() (int64, int64, float64) {
	processed := atomic.LoadInt64(&pt.Processed)
	if pt.Total == 0 {
		return processed, 0, 100
	}
	percentage := float64(processed) / float64(pt.Total) * 100
	return processed, pt.Total, percentage
}

// SpinnerProgress draws a single updating terminal line per snapshot.
func SpinnerProgress(w io.Writer) ProgressFunc {
	s := spin.New()
	s.Set(spin.Box1)
	var mu sync.Mutex
	return func(name string, processed, total int64, elapsed time.Duration) {
		mu.Lock()
		defer mu.Unlock()

		rate := float64(processed) / elapsed.Seconds()
		fmt.Fprintf(w, "\r%s %s: %d/%d (%.1f items/sec)", s.Next(), name, processed, total, rate)
		if processed == total {
			fmt.Fprintln(w)
		}
	}
}

// ParallelProcessor provides utilities for parallel processing
type ParallelProcessor struct {
	NumWorkers int
	Progress   ProgressFunc
}

// NewParallelProcessor creates a new parallel processor
func NewParallelProcessor(numWorkers int) *ParallelProcessor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	return &ParallelProcessor{
		NumWorkers: numWorkers,
	}
}

type indexed[T any] struct {
	index int
	value T
}

// ProcessBatch runs workFunc over items on the processor's workers. The
// returned slice is aligned with items.
func ProcessBatch[T, R any](pp *ParallelProcessor, items []T, workFunc func(int, T) R, progressName string) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	numWorkers := pp.NumWorkers
	if numWorkers > len(items) {
		numWorkers = len(items)
	}

	tracker := NewProgressTracker(int64(len(items)), progressName, pp.Progress)
	wp := NewWorkerPool[indexed[T], indexed[R]](numWorkers, len(items), len(items))
	wp.StartWorkers(func(job indexed[T]) indexed[R] {
		result := workFunc(job.index, job.value)
		tracker.Increment()
		return indexed[R]{index: job.index, value: result}
	})

	for i, item := range items {
		wp.SubmitJob(indexed[T]{index: i, value: item})
	}
	wp.Wait()

	for r := range wp.Results {
		results[r.index] = r.value
	}
	return results
}
