package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/group"
	"github.com/bazelment/yoloswe/agentchat/orchestrator"
	"github.com/bazelment/yoloswe/agentchat/stream"
)

var (
	runSession string
	runThread  string
	runEvents  bool
)

var runCmd = &cobra.Command{
	Use:   "run <tool> <prompt...>",
	Short: "Run a single turn and stream the output",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runSession, "session", "", "Session id (default: a new random id)")
	runCmd.Flags().StringVar(&runThread, "thread", "", "Resume this tool thread id")
	runCmd.Flags().BoolVar(&runEvents, "events", false, "Show parsed events as groups instead of raw output")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	eng, err := loadEngine(logger)
	if err != nil {
		return err
	}
	defer eng.exec.Close()

	sessionID := runSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if runThread != "" {
		eng.exec.SetThreadID(sessionID, runThread)
	}

	t := &turn{
		exec:    eng.exec,
		out:     os.Stdout,
		render:  newRenderer(!isTerminal(os.Stdout)),
		events:  runEvents,
		toolID:  args[0],
		session: sessionID,
	}
	if err := t.run(ctx, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	if thread, ok := eng.exec.ThreadID(sessionID); ok {
		logger.Info("turn finished", "session", sessionID, "thread", thread)
	}
	return nil
}

// turn prints the output of one tool invocation.
type turn struct {
	exec    *orchestrator.Executor
	out     io.Writer
	render  *renderer
	toolID  string
	session string
	events  bool
}

// run streams one turn to t.out. With events set and a stream-parsing
// adapter, stdout lines are folded into groups and rendered at the end
// followed by the assistant's reply; otherwise output is copied as it
// arrives. The error is the terminal chunk's message, if any.
func (t *turn) run(ctx context.Context, prompt string) error {
	var a adapter.Adapter
	if t.events && t.exec.SupportsStreamParsing(t.toolID) {
		a = t.exec.Adapter(t.toolID)
	}
	var builder *group.Builder
	var stdout strings.Builder
	if a != nil {
		builder = group.NewBuilder(a.EventTitle)
	}

	var failure error
	for chunk := range t.exec.ExecuteStream(ctx, t.session, t.toolID, prompt) {
		if chunk.Terminal() {
			if chunk.IsError {
				failure = errors.New(chunk.ErrorMessage)
			}
			continue
		}
		if builder == nil || chunk.Source == stream.Stderr {
			fmt.Fprint(t.out, chunk.Content)
			continue
		}
		stdout.WriteString(chunk.Content)
		for _, line := range strings.Split(strings.TrimRight(chunk.Content, "\n"), "\n") {
			if ev := adapter.ParseLine(a, line); ev != nil {
				builder.Add(*ev)
			}
		}
	}

	if builder != nil {
		writeGroups(t.out, t.render, builder.Groups())
		raw := stdout.String()
		if reply := adapter.AssistantText(a, raw); reply != "" && reply != raw {
			fmt.Fprintln(t.out, reply)
		}
	}
	return failure
}
