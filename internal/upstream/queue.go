package upstream

import "sync"

// Priority classes for upstream calls, 1 = highest.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
)

// PriorityQueue is a strict-priority FIFO: add() appends to the class's
// FIFO, next() scans priorities ascending and returns the head of the
// lowest non-empty class. Within a class, order is strictly FIFO.
type PriorityQueue struct {
	mu       sync.Mutex
	classes  map[int][]interface{}
	order    []int // known priority classes, kept sorted ascending
	draining bool  // reentry guard for the single draining worker
}

// NewPriorityQueue builds an empty queue.
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{classes: make(map[int][]interface{})}
}

// Add appends item to the FIFO for priority.
func (q *PriorityQueue) Add(item interface{}, priority int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.classes[priority]; !ok {
		q.order = insertSorted(q.order, priority)
	}
	q.classes[priority] = append(q.classes[priority], item)
}

// DropExcessLow enforces a queue-depth bound (spec.md §5 Backpressure):
// while the queue's total length exceeds maxDepth, it sheds the oldest
// LOW-priority item and reports it to shed via onDrop, stopping once
// either the bound is satisfied or no LOW items remain — MEDIUM,
// HIGH, and CRITICAL items are never shed by depth alone.
func (q *PriorityQueue) DropExcessLow(maxDepth int, onDrop func(item interface{})) {
	if maxDepth <= 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.lenLocked() > maxDepth {
		bucket := q.classes[PriorityLow]
		if len(bucket) == 0 {
			return
		}
		item := bucket[0]
		bucket[0] = nil
		q.classes[PriorityLow] = bucket[1:]
		onDrop(item)
	}
}

func (q *PriorityQueue) lenLocked() int {
	total := 0
	for _, bucket := range q.classes {
		total += len(bucket)
	}
	return total
}

// Next pops and returns the head of the lowest non-empty priority
// class. ok is false if the queue is empty.
func (q *PriorityQueue) Next() (item interface{}, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range q.order {
		bucket := q.classes[p]
		if len(bucket) == 0 {
			continue
		}
		item = bucket[0]
		bucket[0] = nil // drop the reference so the backing array doesn't pin it
		q.classes[p] = bucket[1:]
		return item, true
	}
	return nil, false
}

// Len reports the total number of queued items across all classes.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, bucket := range q.classes {
		total += len(bucket)
	}
	return total
}

// LenForPriority reports the queued item count for a single class.
func (q *PriorityQueue) LenForPriority(priority int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.classes[priority])
}

// DropOldest removes and returns the oldest queued item in priority.
func (q *PriorityQueue) DropOldest(priority int) (item interface{}, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	bucket := q.classes[priority]
	if len(bucket) == 0 {
		return nil, false
	}
	item = bucket[0]
	bucket[0] = nil // drop the reference so the backing array doesn't pin it
	q.classes[priority] = bucket[1:]
	return item, true
}

// TryStartDraining acquires the reentry guard for the single draining
// worker; it reports false if a drain is already in progress.
func (q *PriorityQueue) TryStartDraining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.draining {
		return false
	}
	q.draining = true
	return true
}

// StopDraining releases the reentry guard.
func (q *PriorityQueue) StopDraining() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.draining = false
}

func insertSorted(order []int, p int) []int {
	i := 0
	for i < len(order) && order[i] < p {
		i++
	}
	order = append(order, 0)
	copy(order[i+1:], order[i:])
	order[i] = p
	return order
}
