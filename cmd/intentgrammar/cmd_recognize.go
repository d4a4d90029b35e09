package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/appengine-ltd/intentgrammar/internal/recognize"
)

type recognizeFlags struct {
	all          bool
	jsonOut      bool
	fuzzy        bool
	fuzzyLimit   int
	context      map[string]string
	skipWords    []string
	bestSlot     string
	bestMetadata string
}

func newRecognizeCmd(a *app) *cobra.Command {
	f := &recognizeFlags{}
	cmd := &cobra.Command{
		Use:   "recognize [text...]",
		Short: "Recognize intents in an utterance",
		Long: `Recognize matches the utterance given as arguments, or each line of
standard input when there are none, and prints the best result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.recognizer()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("fuzzy") {
				f.fuzzy = a.cfg.Fuzzy
			}
			if !cmd.Flags().Changed("fuzzy-limit") {
				f.fuzzyLimit = a.cfg.FuzzyLimit
			}

			if len(args) > 0 {
				return f.run(cmd.Context(), r, a, cmd.OutOrStdout(), strings.Join(args, " "))
			}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if err := f.run(cmd.Context(), r, a, cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&f.all, "all", false, "print every result instead of the best")
	flags.BoolVar(&f.jsonOut, "json", false, "print results as JSON")
	flags.BoolVar(&f.fuzzy, "fuzzy", false, "fall back to the closest sentences when nothing matches")
	flags.IntVar(&f.fuzzyLimit, "fuzzy-limit", 0, "maximum fuzzy results")
	flags.StringToStringVar(&f.context, "context", nil, "intent context as key=value pairs")
	flags.StringSliceVar(&f.skipWords, "skip", nil, "extra words to ignore")
	flags.StringVar(&f.bestSlot, "best-slot", "", "prefer results binding this slot")
	flags.StringVar(&f.bestMetadata, "best-metadata", "", "prefer results whose metadata sets this key")
	return cmd
}

func (f *recognizeFlags) options(a *app) recognize.Options {
	opts := recognize.Options{
		SkipWords:   f.skipWords,
		Language:    a.cfg.Language,
		Fuzzy:       f.fuzzy,
		FuzzyLimit:  f.fuzzyLimit,
		Parallelism: a.cfg.Parallelism,
	}
	if len(f.context) > 0 {
		opts.Context = make(map[string]any, len(f.context))
		for k, v := range f.context {
			opts.Context[k] = v
		}
	}
	return opts
}

func (f *recognizeFlags) run(ctx context.Context, r *recognize.Recognizer, a *app, w io.Writer, text string) error {
	opts := f.options(a)

	var results []recognize.Result
	if f.all {
		all, err := r.RecognizeAll(ctx, text, opts)
		if err != nil {
			return err
		}
		results = all
	} else {
		best, err := r.RecognizeBest(ctx, text, opts, recognize.BestOptions{
			MetadataKey: f.bestMetadata,
			SlotName:    f.bestSlot,
		})
		if err != nil {
			return err
		}
		if best != nil {
			results = append(results, *best)
		}
	}

	if f.jsonOut {
		return writeJSON(w, text, results)
	}
	return writeText(w, text, results)
}

type jsonEntity struct {
	Name       string         `json:"name"`
	Value      any            `json:"value"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IsWildcard bool           `json:"is_wildcard,omitempty"`
}

type jsonResult struct {
	Intent            string         `json:"intent"`
	Sentence          string         `json:"sentence"`
	Response          string         `json:"response"`
	Entities          []jsonEntity   `json:"entities"`
	Context           map[string]any `json:"context,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	TextChunksMatched int            `json:"text_chunks_matched"`
	Fuzzy             bool           `json:"fuzzy,omitempty"`
	Distance          int            `json:"distance,omitempty"`
}

func writeJSON(w io.Writer, text string, results []recognize.Result) error {
	out := struct {
		Text    string       `json:"text"`
		Results []jsonResult `json:"results"`
	}{Text: text, Results: make([]jsonResult, 0, len(results))}

	for _, res := range results {
		jr := jsonResult{
			Intent:            res.Intent.Name,
			Sentence:          res.Sentence.Text,
			Response:          res.Response,
			Context:           res.Context,
			Metadata:          res.Metadata,
			TextChunksMatched: res.TextChunksMatched,
			Fuzzy:             res.Fuzzy,
			Distance:          res.Distance,
			Entities:          []jsonEntity{},
		}
		for _, e := range res.EntitiesList {
			jr.Entities = append(jr.Entities, jsonEntity{
				Name:       e.Name,
				Value:      e.Value,
				Text:       e.Text,
				Metadata:   e.Metadata,
				IsWildcard: e.IsWildcard,
			})
		}
		out.Results = append(out.Results, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeText(w io.Writer, text string, results []recognize.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintf(w, "%s\t(no match)\n", text)
		return err
	}
	for _, res := range results {
		names := make([]string, 0, len(res.Entities))
		for name := range res.Entities {
			names = append(names, name)
		}
		slices.Sort(names)

		var slotText []string
		for _, name := range names {
			slotText = append(slotText, fmt.Sprintf("%s=%v", name, res.Entities[name].Value))
		}
		line := fmt.Sprintf("%s\t%s", text, res.Intent.Name)
		if len(slotText) > 0 {
			line += "\t" + strings.Join(slotText, " ")
		}
		if res.Fuzzy {
			line += fmt.Sprintf("\t(fuzzy, distance %d)", res.Distance)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
