package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appengine-ltd/intentgrammar/internal/recognize"
)

func newSampleCmd(a *app) *cobra.Command {
	opts := recognize.SampleOptions{}
	var withIntent bool
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print sentences the templates accept",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.recognizer()
			if err != nil {
				return err
			}
			opts.Random = cmd.Flags().Changed("seed") || opts.Random
			w := cmd.OutOrStdout()
			for s := range r.Samples(opts) {
				if withIntent {
					_, err = fmt.Fprintf(w, "%s\t%s\n", s.Intent, s.Text)
				} else {
					_, err = fmt.Fprintln(w, s.Text)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&opts.Intents, "intent", nil, "only sample these intents")
	flags.IntVarP(&opts.Limit, "limit", "n", 0, "samples per template (0 for all)")
	flags.BoolVar(&opts.SkipOptionals, "skip-optionals", false, "leave out optional parts")
	flags.BoolVar(&opts.Random, "random", false, "draw random samples")
	flags.Int64Var(&opts.Seed, "seed", 0, "random seed (implies --random)")
	flags.BoolVar(&withIntent, "with-intent", false, "prefix each sample with its intent")
	return cmd
}
