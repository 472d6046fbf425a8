package stagelink

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stagelink-ai/stagelink-go/pkg/core"
	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
	"github.com/stagelink-ai/stagelink-go/pkg/protocol"
)

func TestSendText_RequiresOpenSession(t *testing.T) {
	t.Parallel()

	client, _, _, _ := newTestClient(t, newFakeConn())
	err := client.SendText("hello")
	if !core.IsType(err, core.ErrPrecondition) {
		t.Fatalf("err=%v, want precondition error", err)
	}
}

func TestSendText_ForwardsFrameAndPlaysWorkaroundOnce(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client, _, _, player := newTestClient(t, conn)

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := client.SendText("first"); err != nil {
		t.Fatalf("send text failed: %v", err)
	}
	if err := client.SendText("second"); err != nil {
		t.Fatalf("send text failed: %v", err)
	}

	if got := player.workaroundCount(); got != 1 {
		t.Fatalf("workaround played %d times, want exactly once", got)
	}

	var texts []string
	for _, frame := range conn.sentFrames() {
		if f, ok := frame.(protocol.ClientText); ok {
			texts = append(texts, f.Text)
		}
	}
	if len(texts) != 2 || texts[0] != "first" || texts[1] != "second" {
		t.Fatalf("forwarded texts=%v", texts)
	}
}

func TestSendText_WorkaroundResetsPerSession(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client, dialer, _, player := newTestClient(t, conn)

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := client.SendText("one"); err != nil {
		t.Fatalf("send text failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	dialer.conn = newFakeConn()
	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if err := client.SendText("two"); err != nil {
		t.Fatalf("send text failed: %v", err)
	}
	if got := player.workaroundCount(); got != 2 {
		t.Fatalf("workaround played %d times across two sessions, want 2", got)
	}
}

func TestStartRecording_SignalsSessionThenAcquiresCapture(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client, _, recorder, _ := newTestClient(t, conn)

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := client.StartRecording(context.Background()); err != nil {
		t.Fatalf("start recording failed: %v", err)
	}
	if !client.IsRecording() {
		t.Fatalf("recording flag not set")
	}
	if starts, _ := recorder.counts(); starts != 1 {
		t.Fatalf("capture starts=%d, want 1", starts)
	}

	frames := conn.sentFrames()
	if len(frames) != 1 {
		t.Fatalf("frames sent=%d, want 1", len(frames))
	}
	if f, ok := frames[0].(protocol.ClientAudioSession); !ok || f.Type != protocol.TypeAudioSessionStart {
		t.Fatalf("frame=%+v, want audio_session_start", frames[0])
	}
}

func TestStartRecording_NoopWhileAlreadyRecording(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client, _, recorder, _ := newTestClient(t, conn)

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := client.StartRecording(context.Background()); err != nil {
		t.Fatalf("start recording failed: %v", err)
	}
	if err := client.StartRecording(context.Background()); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if starts, _ := recorder.counts(); starts != 1 {
		t.Fatalf("capture starts=%d, want exactly 1", starts)
	}
	if got := len(conn.sentFrames()); got != 1 {
		t.Fatalf("frames sent=%d, want exactly 1", got)
	}
}

func TestStartRecording_BeforeOpenIsNoop(t *testing.T) {
	t.Parallel()

	client, _, recorder, _ := newTestClient(t, newFakeConn())
	if err := client.StartRecording(context.Background()); err != nil {
		t.Fatalf("start recording errored: %v", err)
	}
	if client.IsRecording() {
		t.Fatalf("recording flag set without a session")
	}
	if starts, _ := recorder.counts(); starts != 0 {
		t.Fatalf("capture starts=%d, want 0", starts)
	}
}

func TestStartRecording_CaptureFailureClosesAudioSession(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client, _, recorder, _ := newTestClient(t, conn)
	recorder.startErr = context.DeadlineExceeded

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := client.StartRecording(context.Background()); err != nil {
		t.Fatalf("start recording should swallow capture errors, got %v", err)
	}
	if client.IsRecording() {
		t.Fatalf("recording flag set despite capture failure")
	}

	frames := conn.sentFrames()
	if len(frames) != 2 {
		t.Fatalf("frames sent=%d, want start then end", len(frames))
	}
	if f, ok := frames[1].(protocol.ClientAudioSession); !ok || f.Type != protocol.TypeAudioSessionEnd {
		t.Fatalf("frame=%+v, want audio_session_end after capture failure", frames[1])
	}
}

func TestStartRecording_SessionClosedDuringAcquisition(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client, _, recorder, _ := newTestClient(t, conn)
	recorder.startGate = make(chan struct{})

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- client.StartRecording(context.Background()) }()
	waitFor(t, func() bool {
		starts, _ := recorder.counts()
		return starts == 1
	}, "capture acquisition entered")

	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	close(recorder.startGate)
	if err := <-done; err != nil {
		t.Fatalf("start recording errored: %v", err)
	}

	if client.IsRecording() {
		t.Fatalf("recording flag set after session was closed")
	}
	// The acquired device is released again.
	waitFor(t, func() bool {
		_, stops := recorder.counts()
		return stops >= 1
	}, "capture released")
}

func TestStopRecording_StopsCaptureAndSignalsEnd(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client, _, recorder, _ := newTestClient(t, conn)

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := client.StartRecording(context.Background()); err != nil {
		t.Fatalf("start recording failed: %v", err)
	}
	if err := client.StopRecording(); err != nil {
		t.Fatalf("stop recording failed: %v", err)
	}
	if client.IsRecording() {
		t.Fatalf("recording flag still set")
	}
	if _, stops := recorder.counts(); stops != 1 {
		t.Fatalf("capture stops=%d, want 1", stops)
	}

	frames := conn.sentFrames()
	if len(frames) != 2 {
		t.Fatalf("frames sent=%d, want start then end", len(frames))
	}
	if f, ok := frames[1].(protocol.ClientAudioSession); !ok || f.Type != protocol.TypeAudioSessionEnd {
		t.Fatalf("frame=%+v, want audio_session_end", frames[1])
	}
}

func TestStopRecording_NoopWhenNotRecording(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client, _, recorder, _ := newTestClient(t, conn)

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := client.StopRecording(); err != nil {
		t.Fatalf("stop recording errored: %v", err)
	}
	if _, stops := recorder.counts(); stops != 0 {
		t.Fatalf("capture stops=%d, want 0", stops)
	}
	if got := len(conn.sentFrames()); got != 0 {
		t.Fatalf("frames sent=%d, want 0", got)
	}
}

func TestSendAudio_EncodesChunkAndSequences(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client, _, _, _ := newTestClient(t, conn)

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := client.StartRecording(context.Background()); err != nil {
		t.Fatalf("start recording failed: %v", err)
	}

	pcm := []byte{0x01, 0x02, 0x03}
	if err := client.SendAudio(pcm); err != nil {
		t.Fatalf("send audio failed: %v", err)
	}
	if err := client.SendAudio(pcm); err != nil {
		t.Fatalf("send audio failed: %v", err)
	}

	var audio []protocol.ClientAudioFrame
	for _, frame := range conn.sentFrames() {
		if f, ok := frame.(protocol.ClientAudioFrame); ok {
			audio = append(audio, f)
		}
	}
	if len(audio) != 2 {
		t.Fatalf("audio frames=%d, want 2", len(audio))
	}
	if audio[0].Seq != 1 || audio[1].Seq != 2 {
		t.Fatalf("seq=%d,%d, want 1,2", audio[0].Seq, audio[1].Seq)
	}
	if want := base64.StdEncoding.EncodeToString(pcm); audio[0].DataB64 != want {
		t.Fatalf("payload=%q, want %q", audio[0].DataB64, want)
	}
}

func TestSendAudio_DroppedWhileNotRecording(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client, _, _, _ := newTestClient(t, conn)

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := client.SendAudio([]byte{1}); err != nil {
		t.Fatalf("send audio errored: %v", err)
	}
	if got := len(conn.sentFrames()); got != 0 {
		t.Fatalf("frames sent=%d, want dropped chunk", got)
	}
}

func TestInterrupt_RequiresCapability(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	conn.capabilities = types.Capabilities{Interruptions: false}
	client, _, _, _ := newTestClient(t, conn)

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	err := client.Interrupt()
	if !core.IsType(err, core.ErrPrecondition) {
		t.Fatalf("err=%v, want precondition error", err)
	}
	if got := len(conn.sentFrames()); got != 0 {
		t.Fatalf("frames sent=%d, want 0", got)
	}
}

func TestInterrupt_SendsCancelResponses(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	client, _, _, _ := newTestClient(t, conn)

	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := client.Interrupt(); err != nil {
		t.Fatalf("interrupt failed: %v", err)
	}

	frames := conn.sentFrames()
	if len(frames) != 1 {
		t.Fatalf("frames sent=%d, want 1", len(frames))
	}
	if f, ok := frames[0].(protocol.ClientControl); !ok || f.Type != protocol.TypeCancelResponses {
		t.Fatalf("frame=%+v, want cancel_responses", frames[0])
	}
}
