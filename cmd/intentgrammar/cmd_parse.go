package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appengine-ltd/intentgrammar/internal/expr"
)

func newParseCmd(_ *app) *cobra.Command {
	var (
		showRegex bool
		samples   int
	)
	cmd := &cobra.Command{
		Use:   "parse template...",
		Short: "Check sentence templates and show how they parse",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			var failed int
			for _, template := range args {
				sentence, err := expr.Parse(template)
				if err != nil {
					failed++
					var syntax *expr.SyntaxError
					if errors.As(err, &syntax) {
						fmt.Fprintf(w, "%s\n%*s^ %s\n", template, syntax.Col-1, "", syntax.Msg)
						continue
					}
					fmt.Fprintf(w, "%s: %v\n", template, err)
					continue
				}

				fmt.Fprintln(w, expr.Format(sentence.Exp))
				if showRegex {
					fmt.Fprintln(w, "  regex:", expr.RegexPattern(sentence.Exp))
				}
				n := 0
				for text := range expr.Sample(sentence.Exp, expr.SampleOptions{}) {
					if n >= samples {
						break
					}
					fmt.Fprintln(w, "  -", text)
					n++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d templates failed to parse", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showRegex, "regex", false, "show the pre-filter regex")
	cmd.Flags().IntVarP(&samples, "samples", "n", 3, "sample sentences to show")
	return cmd
}
