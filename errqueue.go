package arke

// ErrorQueueCapacity is the number of pending error reports kept.
const ErrorQueueCapacity = 16

// errorQueue is a fixed circular buffer of error codes. Pushing onto a full
// queue drops the new code.
type errorQueue struct {
	data [ErrorQueueCapacity]uint16
	size uint8
	head uint8
	tail uint8
}

func (q *errorQueue) push(code uint16) bool {
	if q.size == ErrorQueueCapacity {
		return false
	}
	q.data[q.tail] = code
	q.tail = (q.tail + 1) % ErrorQueueCapacity
	q.size++
	return true
}

func (q *errorQueue) peek() (uint16, bool) {
	if q.size == 0 {
		return 0, false
	}
	return q.data[q.head], true
}

func (q *errorQueue) pop() {
	if q.size == 0 {
		return
	}
	q.head = (q.head + 1) % ErrorQueueCapacity
	q.size--
}

func (q *errorQueue) len() int { return int(q.size) }
