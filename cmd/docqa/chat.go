package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	qauc "github.com/kailas-cloud/docqa/internal/usecase/qa"
)

// asker is the question answering surface the chat loop needs.
type asker interface {
	Ask(ctx context.Context, question string, evaluate bool) (qauc.Result, error)
	CanEvaluate() bool
	Threshold() float64
}

func newChatCommand(opts *globalOptions) *cobra.Command {
	var evaluate bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive question answering on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			app, err := wire(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			s := &chatSession{
				qa:       app.qa,
				in:       cmd.InOrStdin(),
				out:      newPrinter(cmd.OutOrStdout()),
				evaluate: evaluate && app.qa.CanEvaluate(),
			}
			return s.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&evaluate, "eval", false, "Score every answer for faithfulness and relevancy")
	return cmd
}

// chatSession is one interactive loop. Errors from a question are printed and the loop goes on.
type chatSession struct {
	qa       asker
	in       io.Reader
	out      *printer
	evaluate bool
}

// Run reads questions until /quit, EOF or ctx is done.
func (s *chatSession) Run(ctx context.Context) error {
	s.out.printf("Ask a question about the documentation. /examples, /eval on|off, /quit\n")

	sc := bufio.NewScanner(s.in)
	for {
		s.out.printf("> ")
		if !sc.Scan() {
			s.out.printf("\n")
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "/"):
			if s.command(line) {
				return nil
			}
		default:
			s.ask(ctx, line)
		}
	}
}

// command handles a slash command. Returns true to end the session.
func (s *chatSession) command(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/examples":
		s.out.examples()
	case "/eval":
		s.toggleEval(fields[1:])
	default:
		s.out.printf("Unknown command %s. Commands: /examples, /eval on|off, /quit\n", fields[0])
	}
	return false
}

func (s *chatSession) toggleEval(args []string) {
	if len(args) == 0 {
		s.out.printf("Evaluation is %s\n", onOff(s.evaluate))
		return
	}
	switch args[0] {
	case "on":
		if !s.qa.CanEvaluate() {
			s.out.printf("Evaluation is disabled in the configuration\n")
			return
		}
		s.evaluate = true
	case "off":
		s.evaluate = false
	default:
		s.out.printf("Usage: /eval on|off\n")
		return
	}
	s.out.printf("Evaluation %s\n", onOff(s.evaluate))
}

func (s *chatSession) ask(ctx context.Context, question string) {
	res, err := s.qa.Ask(ctx, question, s.evaluate)
	if err != nil {
		s.out.printf("Error: %v\n", err)
		return
	}
	s.out.result(res, s.qa.Threshold())
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
