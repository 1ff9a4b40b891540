package media

import (
	"context"
	"errors"
	"io"
	"sync"
)

var errEndOfStream = errors.New("append after end of stream")

type queuedSegment struct {
	data     []byte
	start    float64
	duration float64
}

// segmentQueue is the SourceBuffer handed to the adaptive client. The decoder
// drains it through readContext.
type segmentQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	segments []queuedSegment
	current  []byte
	end      float64
	bytes    int64
	maxBytes int64
	eos      bool
	closed   bool
}

func newSegmentQueue(maxBytes int64) *segmentQueue {
	q := &segmentQueue{maxBytes: maxBytes}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *segmentQueue) Append(data []byte, duration float64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case q.closed:
		return ErrClosed
	case q.eos:
		return errEndOfStream
	case q.maxBytes > 0 && q.bytes+int64(len(data)) > q.maxBytes:
		return ErrBufferFull
	}

	q.segments = append(q.segments, queuedSegment{data: data, start: q.end, duration: duration})
	q.end += duration
	q.bytes += int64(len(data))
	q.cond.Broadcast()
	return nil
}

// Remove drops whole queued segments lying inside [start, end)
func (q *segmentQueue) Remove(start, end float64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	kept := q.segments[:0]
	for _, seg := range q.segments {
		if seg.start >= start && seg.start+seg.duration <= end {
			q.bytes -= int64(len(seg.data))
			continue
		}
		kept = append(kept, seg)
	}
	q.segments = kept
	return nil
}

func (q *segmentQueue) BufferedBytes() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.bytes
}

// QueuedSeconds is the duration of segments not yet handed to the decoder
func (q *segmentQueue) QueuedSeconds() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	var total float64
	for _, seg := range q.segments {
		total += seg.duration
	}
	return total
}

func (q *segmentQueue) EndOfStream() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.eos = true
	q.cond.Broadcast()
}

func (q *segmentQueue) Ended() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.eos && len(q.segments) == 0 && len(q.current) == 0
}

// Reset drops everything queued but keeps the buffer open
func (q *segmentQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.segments = nil
	q.current = nil
	q.bytes = 0
	q.cond.Broadcast()
}

func (q *segmentQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	q.segments = nil
	q.current = nil
	q.bytes = 0
	q.cond.Broadcast()
	return nil
}

// readContext blocks until data is queued, the stream ends or ctx is done
func (q *segmentQueue) readContext(ctx context.Context, p []byte) (int, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.current) == 0 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if q.closed {
			return 0, io.EOF
		}
		if len(q.segments) > 0 {
			q.current = q.segments[0].data
			q.segments = q.segments[1:]
			continue
		}
		if q.eos {
			return 0, io.EOF
		}
		q.cond.Wait()
	}

	n := copy(p, q.current)
	q.current = q.current[n:]
	q.bytes -= int64(n)
	q.cond.Broadcast()
	return n, nil
}

type queueReader struct {
	ctx   context.Context
	queue *segmentQueue
}

func (r queueReader) Read(p []byte) (int, error) {
	return r.queue.readContext(r.ctx, p)
}
