package media

import (
	"io"
	"sync"
)

// PCM output format: s16le, 48 kHz, stereo
const (
	SampleRate     = 48000
	Channels       = 2
	bytesPerSample = 2
	frameSize      = bytesPerSample * Channels
	bytesPerSecond = SampleRate * frameSize
)

// pcmBuffer is a bounded FIFO between the decoder and the audio device.
// Writes block while full, reads block while empty. Consumed bytes are
// counted to derive the playback position.
type pcmBuffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []byte
	capacity int
	closed   bool
	consumed int64
	received int64
}

func newPCMBuffer(capacity int) *pcmBuffer {
	b := &pcmBuffer{
		buf:      make([]byte, 0, capacity),
		capacity: capacity,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *pcmBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	written := 0
	for written < len(p) {
		for len(b.buf) >= b.capacity && !b.closed {
			b.cond.Wait()
		}
		if b.closed {
			return written, io.ErrClosedPipe
		}

		n := min(b.capacity-len(b.buf), len(p)-written)
		b.buf = append(b.buf, p[written:written+n]...)
		written += n
		b.received += int64(n)
		b.cond.Broadcast()
	}
	return written, nil
}

func (b *pcmBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.buf) == 0 && !b.closed {
		b.cond.Wait()
	}
	if len(b.buf) == 0 {
		return 0, io.EOF
	}

	n := copy(p, b.buf)
	b.buf = append(b.buf[:0], b.buf[n:]...)
	b.consumed += int64(n)
	b.cond.Broadcast()
	return n, nil
}

// Skip discards up to n bytes (frame aligned) as if they had been played
func (b *pcmBuffer) Skip(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n = min(n, len(b.buf))
	n -= n % frameSize
	if n <= 0 {
		return 0
	}
	b.buf = append(b.buf[:0], b.buf[n:]...)
	b.consumed += int64(n)
	b.cond.Broadcast()
	return n
}

// Reset drops buffered data and zeroes the consumed counter
func (b *pcmBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = b.buf[:0]
	b.consumed = 0
	b.cond.Broadcast()
}

func (b *pcmBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

func (b *pcmBuffer) Consumed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consumed
}

func (b *pcmBuffer) Received() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.received
}

func (b *pcmBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

func bytesToSeconds(n int64) float64 {
	return float64(n) / bytesPerSecond
}

func secondsToBytes(s float64) int {
	return int(s * bytesPerSecond)
}
