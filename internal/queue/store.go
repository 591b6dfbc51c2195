// Package queue implements the priority-ordered job store (C1): a
// min-heap keyed by (priority, enqueue_time, id) plus status/capability/
// target indices, all guarded by a single mutex (§4.1, §5).
package queue

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// ErrQueueFull is returned by Put when the store is at capacity (§4.1, §7).
var ErrQueueFull = errors.New("QUEUE_FULL")

// ErrNotFound is returned when a job id is unknown.
var ErrNotFound = errors.New("job not found")

// ErrAlreadyQueued is returned when the same job id is enqueued twice.
var ErrAlreadyQueued = errors.New("job already enqueued")

// heapItem is one entry in the min-heap.
type heapItem struct {
	jobID      string
	priority   models.Priority
	enqueuedNs int64
	seq        int64
	index      int
}

type priorityHeap []*heapItem

func (h priorityHeap) Len() int { return len(h) }

func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	if h[i].enqueuedNs != h[j].enqueuedNs {
		return h[i].enqueuedNs < h[j].enqueuedNs
	}
	return h[i].jobID < h[j].jobID
}

func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *priorityHeap) Push(x interface{}) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *priorityHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// Filter narrows List results.
type Filter struct {
	Capability models.Capability
	Status     models.JobStatus
	Target     string
	Limit      int
	Offset     int
}

// Store is the thread-safe priority queue and job index (C1).
type Store struct {
	mu       sync.Mutex
	capacity int
	heap     priorityHeap
	items    map[string]*heapItem // jobID -> heap item, for jobs still queued
	jobs     map[string]*models.Job
	seq      int64

	byStatus     map[models.JobStatus]map[string]struct{}
	byCapability map[models.Capability]map[string]struct{}
	byTarget     map[string]map[string]struct{}
}

// NewStore creates an empty store with the given capacity (0 = unbounded).
func NewStore(capacity int) *Store {
	return &Store{
		capacity:     capacity,
		heap:         priorityHeap{},
		items:        map[string]*heapItem{},
		jobs:         map[string]*models.Job{},
		byStatus:     map[models.JobStatus]map[string]struct{}{},
		byCapability: map[models.Capability]map[string]struct{}{},
		byTarget:     map[string]map[string]struct{}{},
	}
}

// Put registers a new job and enqueues it into the priority heap.
// Queue operations never block on downstream I/O; at capacity, Put fails
// with ErrQueueFull (§4.1).
func (s *Store) Put(job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return ErrAlreadyQueued
	}
	if s.capacity > 0 && len(s.jobs) >= s.capacity {
		return ErrQueueFull
	}

	s.jobs[job.ID] = job
	s.seq++
	item := &heapItem{
		jobID:      job.ID,
		priority:   job.Priority,
		enqueuedNs: time.Now().UnixNano(),
		seq:        s.seq,
	}
	heap.Push(&s.heap, item)
	s.items[job.ID] = item

	s.indexAdd(job)
	return nil
}

// Get returns a job by id, or (nil, false) if unknown.
func (s *Store) Get(id string) (*models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}

// PopNext removes and returns the highest-priority queued job, or
// (nil, false) if the heap is empty. Pop never blocks (§8).
func (s *Store) PopNext() (*models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heap.Len() == 0 {
		return nil, false
	}
	item := heap.Pop(&s.heap).(*heapItem)
	delete(s.items, item.jobID)
	return s.jobs[item.jobID], true
}

// Remove removes a job from the pending heap (used for pre-run
// cancellation, §5) without deleting it from the index; the job's
// terminal status remains queryable via Get/List.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return false
	}
	heap.Remove(&s.heap, item.index)
	delete(s.items, id)
	return true
}

// UpdateStatus moves a job between status indices and updates its
// Status field in place. Callers are responsible for validating the
// transition against models.JobStatus.CanTransition.
func (s *Store) UpdateStatus(id string, status models.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	s.indexRemoveStatus(job)
	job.Status = status
	s.indexAddStatus(job)
	return nil
}

// List returns jobs matching the filter, applying limit/offset over a
// stable view sorted by creation time, then id, for determinism across
// pages.
func (s *Store) List(f Filter) []*models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := s.jobs
	var ids map[string]struct{}
	switch {
	case f.Capability != "":
		ids = s.byCapability[f.Capability]
	case f.Status != "":
		ids = s.byStatus[f.Status]
	case f.Target != "":
		ids = s.byTarget[f.Target]
	}

	var matched []*models.Job
	if ids != nil {
		for id := range ids {
			job := candidate[id]
			if job == nil || !matchesFilter(job, f) {
				continue
			}
			matched = append(matched, job)
		}
	} else {
		for _, job := range candidate {
			if matchesFilter(job, f) {
				matched = append(matched, job)
			}
		}
	}

	sortJobsByCreatedThenID(matched)

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched
}

func matchesFilter(job *models.Job, f Filter) bool {
	if f.Capability != "" && job.Capability != f.Capability {
		return false
	}
	if f.Status != "" && job.Status != f.Status {
		return false
	}
	if f.Target != "" && job.Target != f.Target {
		return false
	}
	return true
}

func sortJobsByCreatedThenID(jobs []*models.Job) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0; j-- {
			a, b := jobs[j-1], jobs[j]
			if a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID <= b.ID) {
				break
			}
			jobs[j-1], jobs[j] = jobs[j], jobs[j-1]
		}
	}
}

func (s *Store) indexAdd(job *models.Job) {
	s.indexAddStatus(job)
	if s.byCapability[job.Capability] == nil {
		s.byCapability[job.Capability] = map[string]struct{}{}
	}
	s.byCapability[job.Capability][job.ID] = struct{}{}
	if s.byTarget[job.Target] == nil {
		s.byTarget[job.Target] = map[string]struct{}{}
	}
	s.byTarget[job.Target][job.ID] = struct{}{}
}

func (s *Store) indexAddStatus(job *models.Job) {
	if s.byStatus[job.Status] == nil {
		s.byStatus[job.Status] = map[string]struct{}{}
	}
	s.byStatus[job.Status][job.ID] = struct{}{}
}

func (s *Store) indexRemoveStatus(job *models.Job) {
	if set, ok := s.byStatus[job.Status]; ok {
		delete(set, job.ID)
	}
}
