package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	indexinguc "github.com/kailas-cloud/docqa/internal/usecase/indexing"
)

type indexOptions struct {
	yes   bool
	watch bool
	reset bool
}

// AddFlags registers the index flags on fs.
func (o *indexOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&o.yes, "yes", "y", false, "Index without asking for confirmation")
	fs.BoolVarP(&o.watch, "watch", "w", false, "Re-index whenever the document changes")
	fs.BoolVar(&o.reset, "reset", false,
		"Drop the index and every stored chunk first, e.g. after changing embedding.dimensions")
}

func newIndexCommand(opts *globalOptions) *cobra.Command {
	idxOpts := &indexOptions{}

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Load, chunk, embed and store a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			path := cfg.RAG.DocumentPath
			if len(args) == 1 {
				path = args[0]
			}

			app, err := wire(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			run := &indexRun{
				svc:        app.indexer,
				count:      app.index.Count,
				in:         cmd.InOrStdin(),
				out:        newPrinter(cmd.OutOrStdout()),
				collection: cfg.Database.Collection,
				yes:        idxOpts.yes,
			}
			if idxOpts.reset {
				run.reset = app.index.Reset
			}
			if err := run.Once(cmd.Context(), path); err != nil {
				return err
			}
			if idxOpts.watch {
				return run.Watch(cmd.Context(), path)
			}
			return nil
		},
	}
	idxOpts.AddFlags(cmd.Flags())
	return cmd
}

// indexer is the indexing surface the command drives.
type indexer interface {
	Prepare(path string) (indexinguc.Plan, error)
	Commit(ctx context.Context, plan indexinguc.Plan) (indexinguc.Report, error)
	Watch(ctx context.Context, path string, debounce time.Duration, onIndexed func(indexinguc.Report, error)) error
}

type indexRun struct {
	svc        indexer
	count      func(ctx context.Context) (int, error)
	in         io.Reader
	out        *printer
	collection string
	yes        bool
	// reset, when set, empties the index before the first commit
	reset func(ctx context.Context) (int, error)
}

// Once indexes path after confirmation. Declining is not an error.
func (r *indexRun) Once(ctx context.Context, path string) error {
	r.out.printf("Loading %s\n", path)
	plan, err := r.svc.Prepare(path)
	if err != nil {
		return err
	}
	r.out.printf("  Loaded %d pages\n  Split into %d chunks\n", plan.Document.Pages(), len(plan.Chunks))

	prompt := fmt.Sprintf("Index %d chunks into %s? (y/n): ", len(plan.Chunks), r.collection)
	if r.reset != nil {
		prompt = fmt.Sprintf("Drop every chunk in %s and index %d chunks? (y/n): ", r.collection, len(plan.Chunks))
	}
	if !r.yes && !r.confirm(prompt) {
		r.out.printf("Indexing cancelled.\n")
		return nil
	}

	if r.reset != nil {
		n, err := r.reset(ctx)
		if err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
		r.out.printf("Cleared %d chunks from %s\n", n, r.collection)
	}

	report, err := r.svc.Commit(ctx, plan)
	if err != nil {
		return err
	}
	r.report(ctx, report)
	return nil
}

// Watch re-indexes path on every change until ctx is done.
func (r *indexRun) Watch(ctx context.Context, path string) error {
	r.out.printf("Watching %s for changes (Ctrl+C to stop)\n", path)
	err := r.svc.Watch(ctx, path, indexinguc.DefaultDebounce, func(report indexinguc.Report, err error) {
		if err != nil {
			r.out.printf("Re-index failed: %v\n", err)
			return
		}
		r.report(ctx, report)
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (r *indexRun) report(ctx context.Context, rep indexinguc.Report) {
	r.out.printf("Indexed %d chunks from %s in %s (%d tokens, %d stale removed)\n",
		rep.Chunks, rep.Source, rep.Duration.Round(time.Millisecond), rep.Tokens, rep.Removed)
	if n, err := r.count(ctx); err == nil {
		r.out.printf("Index %s now holds %d chunks\n", r.collection, n)
	}
}

func (r *indexRun) confirm(prompt string) bool {
	r.out.printf("%s", prompt)
	line, err := bufio.NewReader(r.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
