package pool

import "github.com/tordynnar/wadup/internal/job"

// unboundedQueue turns a pair of channels into a queue whose enqueue side
// never blocks on the consumer: a single pump goroutine buffers items in a
// growable slice between the inbound and outbound channels. This matters
// because carve/output fan-out sends new jobs onto the queue from inside
// the very worker goroutines that also drain it — a bounded channel can
// deadlock every worker against a full buffer with nobody left to receive.
// Closing the inbound channel drains the buffer and then closes the
// outbound channel, the same observable behavior as closing a plain
// channel.
type unboundedQueue struct {
	in  chan job.Item
	out chan job.Item
}

func newUnboundedQueue() *unboundedQueue {
	q := &unboundedQueue{
		in:  make(chan job.Item),
		out: make(chan job.Item),
	}
	go q.pump()
	return q
}

func (q *unboundedQueue) pump() {
	defer close(q.out)

	var buf []job.Item
	in := q.in

	for in != nil || len(buf) > 0 {
		if len(buf) == 0 {
			item, ok := <-in
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, item)
			continue
		}

		select {
		case item, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, item)
		case q.out <- buf[0]:
			buf = buf[1:]
		}
	}
}
