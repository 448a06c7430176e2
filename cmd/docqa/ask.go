package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAskCommand(opts *globalOptions) *cobra.Command {
	var evaluate bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			res, err := app.qa.Ask(cmd.Context(), strings.Join(args, " "), evaluate)
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).result(res, app.qa.Threshold())
			return nil
		},
	}
	cmd.Flags().BoolVar(&evaluate, "eval", false, "Score the answer for faithfulness and relevancy")
	return cmd
}
