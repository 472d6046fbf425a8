package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"

	stagelink "github.com/stagelink-ai/stagelink-go/sdk"
)

const (
	micSampleRateHz      = 16000
	playbackSampleRateHz = 24000
)

// ffmpegRecorder captures mono s16le PCM from the default microphone via an
// ffmpeg child process and forwards chunks to the sink.
type ffmpegRecorder struct {
	sink func([]byte) error

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	done   chan struct{}
}

func newFFmpegRecorder(sink func([]byte) error) *ffmpegRecorder {
	return &ffmpegRecorder{sink: sink}
}

func micFFmpegArgs(goos string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", "1", "-ar", fmt.Sprintf("%d", micSampleRateHz),
			"-f", "s16le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", fmt.Sprintf("%d", micSampleRateHz),
			"-f", "s16le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("mic capture is not implemented for %s; supported platforms: darwin, linux", goos)
	}
}

func (r *ffmpegRecorder) Start(ctx context.Context) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return errors.New("ffmpeg is required for mic capture (install ffmpeg and ensure it is in PATH)")
	}
	args, err := micFFmpegArgs(runtime.GOOS)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return nil
	}

	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg mic capture: %w", err)
	}

	r.cmd = cmd
	r.stdout = stdout
	r.done = make(chan struct{})
	go r.pump(stdout, r.done)
	return nil
}

func (r *ffmpegRecorder) pump(stdout io.Reader, done chan struct{}) {
	defer close(done)
	buf := make([]byte, 1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buf[:n])
			if sendErr := r.sink(frame); sendErr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (r *ffmpegRecorder) Stop() error {
	r.mu.Lock()
	cmd := r.cmd
	done := r.done
	r.cmd = nil
	r.stdout = nil
	r.done = nil
	r.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	if done != nil {
		<-done
	}
	return nil
}

// ffplayPlayer feeds a ChunkPlayer's queue into an ffplay child process.
type ffplayPlayer struct {
	*stagelink.ChunkPlayer

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func newFFplayPlayer() (*ffplayPlayer, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, errors.New("ffplay is required for playback (install ffmpeg/ffplay and ensure it is in PATH)")
	}
	p := &ffplayPlayer{ChunkPlayer: stagelink.NewChunkPlayer(128)}
	if err := p.start(); err != nil {
		return nil, err
	}
	go p.feed()
	return p, nil
}

func (p *ffplayPlayer) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cmd := exec.Command("ffplay",
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", playbackSampleRateHz),
		"-ac", "1",
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffplay stdin: %w", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	p.cmd = cmd
	p.stdin = stdin
	return nil
}

func (p *ffplayPlayer) feed() {
	for chunk := range p.Chunks() {
		p.mu.Lock()
		stdin := p.stdin
		p.mu.Unlock()
		if stdin == nil {
			continue
		}
		if _, err := stdin.Write(chunk); err != nil {
			return
		}
	}
}

func (p *ffplayPlayer) Close() error {
	p.StopPlayback()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
	}
	p.stdin = nil
	p.cmd = nil
	return nil
}
