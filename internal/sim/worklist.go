package sim

import "container/heap"

type entry struct {
	node  string
	at    float64
	depth int
	seq   int
}

type worklist interface {
	push(entry)
	pop() entry
	len() int
}

// fifoList pops entries in push order.
type fifoList struct {
	items []entry
	head  int
}

func (f *fifoList) push(e entry) { f.items = append(f.items, e) }

func (f *fifoList) pop() entry {
	e := f.items[f.head]
	f.head++
	return e
}

func (f *fifoList) len() int { return len(f.items) - f.head }

// eventQueue pops the entry with the earliest scheduled time, breaking ties
// by push order.
type eventQueue struct {
	h   entryHeap
	seq int
}

func (q *eventQueue) push(e entry) {
	e.seq = q.seq
	q.seq++
	heap.Push(&q.h, e)
}

func (q *eventQueue) pop() entry { return heap.Pop(&q.h).(entry) }

func (q *eventQueue) len() int { return q.h.Len() }

func (q *eventQueue) peek() entry { return q.h[0] }

type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
