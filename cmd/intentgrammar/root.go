package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/appengine-ltd/intentgrammar/internal/config"
	"github.com/appengine-ltd/intentgrammar/internal/intents"
	"github.com/appengine-ltd/intentgrammar/internal/recognize"
)

// app carries what the subcommands share once flags and the config file
// have been read.
type app struct {
	configPath  string
	intentFiles []string
	language    string
	logLevel    string
	strict      bool

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "intentgrammar",
		Short: "Match utterances against sentence template grammars",
		Long: `intentgrammar recognizes intents in short utterances using YAML files of
sentence templates, slot lists and expansion rules.

Examples:
  intentgrammar recognize -i lights.yaml "turn on the kitchen light"
  intentgrammar sample -i lights.yaml --intent TurnOn --limit 5
  intentgrammar parse "turn (on|off) [the] {area} light[s]"`,
		Version:       fmt.Sprintf("%s (%s) %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.config/intentgrammar/config.yaml)")
	flags.StringSliceVarP(&a.intentFiles, "intents", "i", nil, "intent YAML files, merged in order")
	flags.StringVar(&a.language, "language", "", "language override")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&a.strict, "strict", false, "fail on templates that do not parse")

	root.AddCommand(
		newRecognizeCmd(a),
		newSampleCmd(a),
		newParseCmd(a),
		newInitConfigCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.configPath == "" {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		a.configPath = path
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("%s: %w", a.configPath, err)
	}

	flags := cmd.Flags()
	if flags.Changed("intents") {
		cfg.IntentFiles = a.intentFiles
	}
	if flags.Changed("language") {
		cfg.Language = a.language
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("strict") {
		cfg.Strict = a.strict
	}
	a.cfg = cfg

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) recognizer() (*recognize.Recognizer, error) {
	if len(a.cfg.IntentFiles) == 0 {
		return nil, errors.New("no intent files: pass --intents or set intent_files in the config")
	}
	doc, err := intents.LoadFiles(a.cfg.IntentFiles...)
	if err != nil {
		return nil, err
	}
	if a.cfg.Language != "" {
		doc.Language = a.cfg.Language
	}

	opts := []recognize.Option{recognize.WithLogger(a.logger)}
	if a.cfg.Strict {
		opts = append(opts, recognize.WithStrict())
	}
	a.logger.Debug("loaded intents", "files", a.cfg.IntentFiles, "intents", len(doc.Intents), "language", doc.Language)
	return recognize.New(doc, opts...)
}
