// Command avatar-chat is a terminal front-end for the Stagelink SDK: it
// opens a session, forwards typed text, optionally streams mic audio via
// ffmpeg, plays agent audio via ffplay, and prints emotion, phoneme, and
// transcript updates as they arrive.
//
// Configuration comes from STAGELINK_* environment variables or an optional
// avatar-chat.yaml; a .env file is honored when present.
//
// Commands: /record, /stop, /interrupt, /history, /quit.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
	stagelink "github.com/stagelink-ai/stagelink-go/sdk"
)

func main() {
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.TokenURL == "" || cfg.ServiceURL == "" {
		fmt.Fprintln(os.Stderr, "STAGELINK_TOKEN_URL and STAGELINK_SERVICE_URL are required")
		os.Exit(1)
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "avatar-chat: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg chatConfig, logger *slog.Logger) error {
	var client *stagelink.Client

	opts := []stagelink.ClientOption{
		stagelink.WithTokenURL(cfg.TokenURL),
		stagelink.WithServiceURL(cfg.ServiceURL),
		stagelink.WithScene(cfg.Scene),
		stagelink.WithCharacter(cfg.Character),
		stagelink.WithLogger(logger),
	}

	if cfg.Mic {
		recorder := newFFmpegRecorder(func(pcm []byte) error {
			return client.SendAudio(pcm)
		})
		player, err := newFFplayPlayer()
		if err != nil {
			return err
		}
		defer player.Close()
		opts = append(opts,
			stagelink.WithRecorder(recorder),
			stagelink.WithPlayer(player),
		)
	}

	client = stagelink.NewClient(opts...)

	if err := client.Open(ctx); err != nil {
		return err
	}
	defer client.Close()

	if char := client.Character(); char != nil {
		fmt.Printf("connected, talking to %s\n", displayName(char))
	} else {
		fmt.Printf("connected, %d character(s) in scene\n", len(client.Characters()))
	}
	fmt.Println("commands: /record, /stop, /interrupt, /history, /quit")

	go printUpdates(ctx, client)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/record":
			if err := client.StartRecording(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "record error: %v\n", err)
			} else if client.IsRecording() {
				fmt.Println("recording (use /stop to end)")
			} else {
				fmt.Println("could not start recording, see logs")
			}
		case "/stop":
			if err := client.StopRecording(); err != nil {
				fmt.Fprintf(os.Stderr, "stop error: %v\n", err)
			}
		case "/interrupt":
			if err := client.Interrupt(); err != nil {
				fmt.Fprintf(os.Stderr, "interrupt error: %v\n", err)
			}
		case "/history":
			printHistory(client.ChatHistory())
		default:
			if err := client.SendText(line); err != nil {
				fmt.Fprintf(os.Stderr, "send error: %v\n", err)
			}
		}
	}
}

// printUpdates mirrors lifecycle and emotion changes onto the terminal.
func printUpdates(ctx context.Context, client *stagelink.Client) {
	var lastState stagelink.ConnectionState = -1
	var lastEmotion types.EmotionBehavior
	var lastHistory int

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-client.Updates():
			if !ok {
				return
			}
			if snap.State != lastState {
				lastState = snap.State
				fmt.Printf("\n[state] %s\n> ", snap.State)
			}
			if snap.EmotionEvent != nil && snap.EmotionEvent.Behavior != lastEmotion {
				lastEmotion = snap.EmotionEvent.Behavior
				fmt.Printf("\n[emotion] %s\n> ", lastEmotion)
			}
			if n := len(snap.ChatHistory); n != lastHistory {
				if n < lastHistory {
					lastHistory = 0
				}
				for _, item := range snap.ChatHistory[lastHistory:] {
					fmt.Printf("\n[%s] %s\n> ", item.Author, item.Text)
				}
				lastHistory = n
			}
		}
	}
}

func printHistory(items []types.HistoryItem) {
	if len(items) == 0 {
		fmt.Println("(no history yet)")
		return
	}
	for _, item := range items {
		fmt.Printf("[%s] %s\n", item.Author, item.Text)
	}
}

func displayName(a *types.Agent) string {
	if a.GivenName != "" {
		return a.GivenName
	}
	if a.BrainName != "" {
		return a.BrainName
	}
	return "agent"
}
