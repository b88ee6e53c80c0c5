package motionplan

import "container/heap"

// queueEntry pairs a node index with the priority it was enqueued at. Entries
// are never re-keyed; a node whose index has since been closed is skipped at
// pop time.
type queueEntry struct {
	index string
	cost  float64
}

// nodeQueue is a min-priority queue over queueEntry implementing heap.Interface.
type nodeQueue struct {
	entries []queueEntry
}

func (q *nodeQueue) Len() int { return len(q.entries) }
func (q *nodeQueue) Less(i, j int) bool {
	return q.entries[i].cost < q.entries[j].cost
}
func (q *nodeQueue) Swap(i, j int) { q.entries[i], q.entries[j] = q.entries[j], q.entries[i] }

func (q *nodeQueue) Push(x interface{}) {
	q.entries = append(q.entries, x.(queueEntry))
}

func (q *nodeQueue) Pop() interface{} {
	old := q.entries
	n := len(old)
	x := old[n-1]
	q.entries = old[:n-1]
	return x
}

func newNodeQueue() *nodeQueue {
	q := &nodeQueue{entries: make([]queueEntry, 0)}
	heap.Init(q)
	return q
}

func (q *nodeQueue) push(index string, cost float64) {
	heap.Push(q, queueEntry{index: index, cost: cost})
}

func (q *nodeQueue) pop() queueEntry {
	return heap.Pop(q).(queueEntry)
}

func (q *nodeQueue) empty() bool {
	return len(q.entries) == 0
}
