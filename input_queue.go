package av1bridge

import (
	"github.com/xaionaro-go/av1bridge/decoder"
)

// inputQueue keeps the packets the decoder did not accept yet, in push
// order.
type inputQueue struct {
	items    []*decoder.Data
	capacity int
}

func newInputQueue(capacity int) inputQueue {
	return inputQueue{
		items:    make([]*decoder.Data, 0, capacity),
		capacity: capacity,
	}
}

func (q *inputQueue) Len() int {
	return len(q.items)
}

func (q *inputQueue) HasCapacity() bool {
	return len(q.items) < q.capacity
}

// PushBack returns false (and keeps the queue untouched) if it is full.
func (q *inputQueue) PushBack(data *decoder.Data) bool {
	if !q.HasCapacity() {
		return false
	}
	q.items = append(q.items, data)
	return true
}

func (q *inputQueue) Front() *decoder.Data {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

func (q *inputQueue) PopFront() *decoder.Data {
	if len(q.items) == 0 {
		return nil
	}
	data := q.items[0]
	last := len(q.items) - 1
	copy(q.items, q.items[1:])
	q.items[last] = nil
	q.items = q.items[:last]
	return data
}

// Discard unrefs and removes every packet; returns how many there were.
func (q *inputQueue) Discard() int {
	n := len(q.items)
	for _, data := range q.items {
		data.Unref()
	}
	clear(q.items)
	q.items = q.items[:0]
	return n
}
