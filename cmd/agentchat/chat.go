package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	chatSession string
	chatEvents  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <tool>",
	Short: "Hold a multi-turn conversation with a tool",
	Long: `Chat reads one prompt per line from stdin and runs each as a turn of the
same session, so the tool's thread (or persistent process) carries over.
/reset tears the session down and /exit quits.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "Session id (default: a new random id)")
	chatCmd.Flags().BoolVar(&chatEvents, "events", false, "Show parsed events as groups instead of raw output")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	eng, err := loadEngine(logger)
	if err != nil {
		return err
	}
	defer eng.exec.Close()

	sessionID := chatSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	interactive := isTerminal(os.Stdin)
	t := &turn{
		exec:    eng.exec,
		out:     os.Stdout,
		render:  newRenderer(!isTerminal(os.Stdout)),
		events:  chatEvents,
		toolID:  args[0],
		session: sessionID,
	}

	// Ctrl-C cancels the running turn, not the chat.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if interactive {
			fmt.Fprint(os.Stderr, "> ")
		}
		if !scanner.Scan() {
			break
		}
		prompt := strings.TrimSpace(scanner.Text())
		switch prompt {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			eng.exec.CleanupSession(sessionID)
			logger.Info("session reset", "session", sessionID)
			continue
		}

		drainSignals(interrupts)
		turnCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			select {
			case <-interrupts:
				cancel()
			case <-done:
			}
		}()
		err := t.run(turnCtx, prompt)
		close(done)
		cancel()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// drainSignals drops interrupts received while no turn was running.
func drainSignals(ch <-chan os.Signal) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
