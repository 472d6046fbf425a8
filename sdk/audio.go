package stagelink

import (
	"context"
	"sync"
)

// Recorder captures microphone audio. Start acquires the capture device and
// may suspend while doing so; failures are device errors. Implementations
// must tolerate Stop without a preceding successful Start.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() error
}

// Player controls agent audio output.
type Player interface {
	// StopPlayback halts any audio currently playing.
	StopPlayback()

	// ClearQueue discards queued audio that has not started playing, so
	// nothing bleeds through after a close.
	ClearQueue()

	// PlayWorkaround plays a near-silent clip once, to satisfy platform
	// autoplay-gesture restrictions before the first real audio output.
	PlayWorkaround() error
}

// NopRecorder is the default Recorder; it captures nothing.
type NopRecorder struct{}

func (NopRecorder) Start(context.Context) error { return nil }
func (NopRecorder) Stop() error                 { return nil }

// NopPlayer is the default Player; it plays nothing.
type NopPlayer struct{}

func (NopPlayer) StopPlayback()         {}
func (NopPlayer) ClearQueue()           {}
func (NopPlayer) PlayWorkaround() error { return nil }

// ChunkPlayer queues PCM chunks for a consumer (for example an external
// playback process) and implements the Player control surface. Chunks are
// dropped rather than blocking the producer when the consumer stalls.
type ChunkPlayer struct {
	mu      sync.Mutex
	chunks  chan []byte
	stopped bool
}

// NewChunkPlayer creates a ChunkPlayer with the given queue depth.
func NewChunkPlayer(depth int) *ChunkPlayer {
	if depth <= 0 {
		depth = 64
	}
	return &ChunkPlayer{chunks: make(chan []byte, depth)}
}

// Chunks yields queued PCM chunks in arrival order.
func (p *ChunkPlayer) Chunks() <-chan []byte {
	return p.chunks
}

// Enqueue adds one PCM chunk to the playback queue.
func (p *ChunkPlayer) Enqueue(pcm []byte) {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}
	select {
	case p.chunks <- pcm:
	default:
		// Queue full; drop rather than stall the event pump.
	}
}

// StopPlayback marks the player stopped; the consumer sees an empty queue.
func (p *ChunkPlayer) StopPlayback() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.drain()
}

// ClearQueue discards everything queued but keeps the player usable.
func (p *ChunkPlayer) ClearQueue() {
	p.drain()
}

// Resume re-enables a stopped player.
func (p *ChunkPlayer) Resume() {
	p.mu.Lock()
	p.stopped = false
	p.mu.Unlock()
}

// PlayWorkaround enqueues a short run of silence.
func (p *ChunkPlayer) PlayWorkaround() error {
	p.Enqueue(make([]byte, 512))
	return nil
}

func (p *ChunkPlayer) drain() {
	for {
		select {
		case <-p.chunks:
		default:
			return
		}
	}
}
