package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// pcmBufferSeconds bounds decoded audio held in memory
	pcmBufferSeconds = 2
	// maxQueuedBytes bounds segments appended by the adaptive client
	maxQueuedBytes = 64 * 1024 * 1024
	// stallTimeout is how long playback may go without PCM before "stalled"
	stallTimeout = 5 * time.Second
	monitorTick  = time.Second
)

var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

// audioContext returns the process-wide oto context. Only one may exist.
func audioContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// pipeline is one running decode: ffmpeg -> pcmBuffer -> oto player
type pipeline struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cmd      *exec.Cmd
	pcm      *pcmBuffer
	player   *oto.Player
	attached bool
	lastData atomic.Int64 // unix nanos of the last decoded chunk
}

// FFmpegSink is a Sink that decodes with an ffmpeg child process and plays
// PCM through oto. It also accepts appended segments (MediaSourceHost).
type FFmpegSink struct {
	logger     *zap.Logger
	ffmpegPath string
	events     *dispatcher

	mu           sync.Mutex
	src          string
	queue        *segmentQueue
	pipeline     *pipeline
	paused       bool
	muted        bool
	volume       float64
	network      NetworkState
	basePosition float64
	closed       bool

	// gain is the effective volume read by the audio thread without s.mu
	gain atomic.Uint64
}

var _ Sink = (*FFmpegSink)(nil)
var _ MediaSourceHost = (*FFmpegSink)(nil)

// NewFFmpegSink creates a sink. An empty ffmpegPath looks ffmpeg up on PATH;
// if it cannot be found the sink reports that it can play nothing.
func NewFFmpegSink(logger *zap.Logger, ffmpegPath string, initialVolume float64) *FFmpegSink {
	if ffmpegPath == "" {
		if p, err := exec.LookPath("ffmpeg"); err == nil {
			ffmpegPath = p
		} else {
			logger.Warn("ffmpeg not found on PATH, playback disabled", zap.Error(err))
		}
	}

	s := &FFmpegSink{
		logger:     logger,
		ffmpegPath: ffmpegPath,
		events:     newDispatcher(logger),
		paused:     true,
		volume:     clampVolume(initialVolume),
		network:    NetworkEmpty,
	}
	s.updateGainLocked()
	return s
}

func (s *FFmpegSink) On(fn Listener) func() {
	return s.events.subscribe(fn)
}

func (s *FFmpegSink) SetSource(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasPlaying := !s.paused
	s.stopPipelineLocked()
	s.detachQueueLocked()

	s.src = url
	s.basePosition = 0
	s.paused = true
	if url == "" {
		s.network = NetworkEmpty
	} else {
		s.network = NetworkIdle
	}

	if wasPlaying {
		s.events.emit(EventPause, nil)
	}
}

func (s *FFmpegSink) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.src == "" && s.queue == nil {
		return ErrNoSource
	}

	s.stopPipelineLocked()
	s.basePosition = 0
	s.paused = true

	if s.ffmpegPath == "" {
		s.network = NetworkNoSource
		return errors.New("ffmpeg is not available")
	}
	s.network = NetworkIdle
	return nil
}

func (s *FFmpegSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.src == "" && s.queue == nil {
		return ErrNoSource
	}
	if !s.paused && s.pipeline != nil {
		return nil
	}

	octx, err := audioContext()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlaybackRejected, err)
	}

	p, err := s.startPipelineLocked(octx)
	if err != nil {
		s.network = NetworkNoSource
		return fmt.Errorf("failed to start decoder: %w", err)
	}

	s.pipeline = p
	s.paused = false
	s.network = NetworkLoading
	s.events.emit(EventPlay, nil)
	return nil
}

func (s *FFmpegSink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return
	}
	s.stopPipelineLocked()
	s.paused = true
	if s.network == NetworkLoading {
		s.network = NetworkIdle
	}
	s.events.emit(EventPause, nil)
}

func (s *FFmpegSink) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *FFmpegSink) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

func (s *FFmpegSink) positionLocked() float64 {
	if s.pipeline == nil {
		return s.basePosition
	}
	return s.basePosition + bytesToSeconds(s.pipeline.pcm.Consumed())
}

// SetPosition moves forward within decoded audio, or rebases the timeline
// otherwise. A live stream cannot seek back; the next Play resumes at the
// live edge.
func (s *FFmpegSink) SetPosition(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.positionLocked()
	if seconds > current {
		if s.pipeline != nil {
			s.pipeline.pcm.Skip(secondsToBytes(seconds - current))
		}
		return
	}

	if s.pipeline != nil {
		s.pipeline.pcm.Reset()
	}
	if s.queue != nil {
		s.queue.Reset()
	}
	s.basePosition = max(seconds, 0)
}

func (s *FFmpegSink) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *FFmpegSink) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
	s.updateGainLocked()
}

func (s *FFmpegSink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *FFmpegSink) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = clampVolume(volume)
	s.updateGainLocked()
}

func (s *FFmpegSink) updateGainLocked() {
	gain := s.volume
	if s.muted {
		gain = 0
	}
	s.gain.Store(math.Float64bits(gain))
}

func (s *FFmpegSink) effectiveVolume() float64 {
	return math.Float64frombits(s.gain.Load())
}

func (s *FFmpegSink) ReadyState() ReadyState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline == nil {
		if s.queue != nil && s.queue.BufferedBytes() > 0 {
			return HaveMetadata
		}
		return HaveNothing
	}

	buffered := s.pipeline.pcm.Len()
	switch {
	case buffered >= bytesPerSecond:
		return HaveEnoughData
	case buffered > 0:
		return HaveFutureData
	case s.pipeline.pcm.Received() > 0:
		return HaveCurrentData
	default:
		return HaveMetadata
	}
}

func (s *FFmpegSink) NetworkState() NetworkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

func (s *FFmpegSink) Buffered() []TimeRange {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == "" && s.queue == nil {
		return nil
	}

	start := s.positionLocked()
	end := start
	if s.pipeline != nil {
		end += bytesToSeconds(int64(s.pipeline.pcm.Len()))
	}
	if s.queue != nil {
		end += s.queue.QueuedSeconds()
	}
	if end <= start {
		return nil
	}
	return []TimeRange{{Start: start, End: end}}
}

func (s *FFmpegSink) CanPlayType(mime string) CanPlay {
	if s.ffmpegPath == "" {
		return CanPlayNo
	}
	switch {
	case mime == MIMEHLS:
		return CanPlayMaybe
	case strings.HasPrefix(mime, "audio/"):
		return CanPlayProbably
	default:
		return CanPlayNo
	}
}

func (s *FFmpegSink) MediaSourceSupported() bool {
	return s.ffmpegPath != ""
}

func (s *FFmpegSink) OpenSourceBuffer() (SourceBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.ffmpegPath == "" {
		return nil, errors.New("ffmpeg is not available")
	}

	wasPlaying := !s.paused
	s.stopPipelineLocked()
	s.detachQueueLocked()

	s.src = ""
	s.queue = newSegmentQueue(maxQueuedBytes)
	s.basePosition = 0
	s.network = NetworkIdle

	// Re-attaching media keeps the element playing; the decoder restarts on
	// the new buffer.
	if wasPlaying {
		if octx, err := audioContext(); err == nil {
			if p, err := s.startPipelineLocked(octx); err == nil {
				s.pipeline = p
				s.network = NetworkLoading
			} else {
				s.paused = true
				s.logger.Warn("Failed to restart decoder on new source buffer", zap.Error(err))
			}
		}
	}
	return s.queue, nil
}

func (s *FFmpegSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	err := s.stopPipelineLocked()
	if s.queue != nil {
		err = multierr.Append(err, s.queue.Close())
		s.queue = nil
	}
	s.paused = true
	s.network = NetworkEmpty
	s.mu.Unlock()

	s.events.close()
	return err
}

func (s *FFmpegSink) detachQueueLocked() {
	if s.queue != nil {
		_ = s.queue.Close()
		s.queue = nil
	}
}

func (s *FFmpegSink) startPipelineLocked(octx *oto.Context) (*pipeline, error) {
	if s.ffmpegPath == "" {
		return nil, errors.New("ffmpeg is not available")
	}

	ctx, cancel := context.WithCancel(context.Background())
	args := []string{"-hide_banner", "-loglevel", "error"}
	if s.queue == nil {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "10",
			"-i", s.src,
		)
	} else {
		args = append(args, "-i", "pipe:0")
	}
	args = append(args,
		"-vn",
		"-f", "s16le",
		"-ar", fmt.Sprint(SampleRate),
		"-ac", fmt.Sprint(Channels),
		"-fflags", "+nobuffer",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}
	var stdin io.WriteCloser
	if s.queue != nil {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	p := &pipeline{
		ctx:      ctx,
		cancel:   cancel,
		cmd:      cmd,
		pcm:      newPCMBuffer(pcmBufferSeconds * bytesPerSecond),
		attached: s.queue != nil,
	}
	p.lastData.Store(time.Now().UnixNano())

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		s.decode(p, stdout)
	}()
	go func() {
		defer readers.Done()
		s.logStderr(p, stderr)
	}()
	if stdin != nil {
		go s.feed(p, s.queue, stdin)
	}
	go func() {
		readers.Wait()
		s.handleExit(p, cmd.Wait())
	}()
	go s.monitor(p)

	p.player = octx.NewPlayer(newVolumeReader(p.pcm, s.effectiveVolume))
	p.player.Play()

	s.logger.Debug("Decoder started", zap.String("source", s.src), zap.Bool("attached", p.attached))
	return p, nil
}

// stopPipelineLocked tears down the running decode without waiting for its
// goroutines; they all exit once the context is cancelled.
func (s *FFmpegSink) stopPipelineLocked() error {
	p := s.pipeline
	if p == nil {
		return nil
	}
	s.pipeline = nil
	s.basePosition += bytesToSeconds(p.pcm.Consumed())

	p.cancel()
	p.pcm.Close()

	var err error
	if p.player != nil {
		err = p.player.Close()
	}
	return err
}

func (s *FFmpegSink) decode(p *pipeline, stdout io.Reader) {
	reader := bufio.NewReaderSize(stdout, 32768)
	buf := make([]byte, 8192)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			p.lastData.Store(time.Now().UnixNano())
			if _, werr := p.pcm.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *FFmpegSink) feed(p *pipeline, queue *segmentQueue, stdin io.WriteCloser) {
	defer stdin.Close()
	if _, err := io.Copy(stdin, queueReader{ctx: p.ctx, queue: queue}); err != nil && p.ctx.Err() == nil {
		s.logger.Debug("Segment feed ended", zap.Error(err))
	}
}

func (s *FFmpegSink) logStderr(p *pipeline, stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		s.logger.Warn("ffmpeg", zap.String("line", scanner.Text()))
	}
}

func (s *FFmpegSink) handleExit(p *pipeline, err error) {
	if p.ctx.Err() != nil {
		// Stopped on purpose.
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline != p {
		return
	}
	s.basePosition += bytesToSeconds(p.pcm.Consumed())
	s.pipeline = nil
	p.cancel()
	p.pcm.Close()
	if p.player != nil {
		_ = p.player.Close()
	}

	if err == nil && p.attached && s.queue != nil && s.queue.Ended() {
		s.paused = true
		s.network = NetworkIdle
		s.events.emit(EventPause, nil)
		return
	}

	if err == nil {
		err = errors.New("stream ended unexpectedly")
	}
	s.network = NetworkNoSource
	s.logger.Error("Decoder exited", zap.String("source", s.src), zap.Error(err))
	s.events.emit(EventError, fmt.Errorf("decoder exited: %w", err))
}

// monitor reports stalled/waiting/progress while the pipeline runs
func (s *FFmpegSink) monitor(p *pipeline) {
	ticker := time.NewTicker(monitorTick)
	defer ticker.Stop()

	var lastReceived int64
	stalled := false
	waiting := false

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			received := p.pcm.Received()
			if received > lastReceived {
				lastReceived = received
				stalled = false
				s.events.emit(EventProgress, nil)
			}

			since := time.Since(time.Unix(0, p.lastData.Load()))
			if since > stallTimeout && !stalled {
				stalled = true
				s.events.emit(EventStalled, nil)
			}

			empty := p.pcm.Len() == 0
			if empty && !waiting {
				s.events.emit(EventWaiting, nil)
			}
			waiting = empty
		}
	}
}
