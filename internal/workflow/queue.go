package workflow

import "sync"

// fifo is an unbounded queue of work IDs. push never blocks; ready is signalled
// whenever an item arrives.
type fifo struct {
	mu    sync.Mutex
	items []string
	ready chan struct{}
}

func newFIFO() *fifo {
	return &fifo{ready: make(chan struct{}, 1)}
}

func (q *fifo) push(id string) int {
	q.mu.Lock()
	q.items = append(q.items, id)
	depth := len(q.items)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return depth
}

func (q *fifo) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	id := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return id, true
}

func (q *fifo) snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.items...)
}

func (q *fifo) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
