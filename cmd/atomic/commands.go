package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pipeline"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/password"
	"github.com/chnghia/atomic-inference-boilerplate/internal/schedule"
	"github.com/chnghia/atomic-inference-boilerplate/internal/service"
)

type unitFlags struct {
	vars        string
	varsFile    string
	systemVars  string
	memoryQuery string
	topK        int
}

func (f *unitFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.vars, "vars", "", "template variables as a JSON object")
	cmd.Flags().StringVar(&f.varsFile, "vars-file", "", "file holding the template variables as JSON")
	cmd.Flags().StringVar(&f.systemVars, "system-vars", "", "system template variables as a JSON object")
	cmd.Flags().StringVar(&f.memoryQuery, "memory-query", "", "retrieve memories for this query and inject them")
	cmd.Flags().IntVar(&f.topK, "top-k", 0, "number of memories to inject")
}

func (f *unitFlags) input() (*service.RunInput, error) {
	in := &service.RunInput{MemoryQuery: f.memoryQuery, MemoryTopK: f.topK}
	raw := f.vars
	if f.varsFile != "" {
		data, err := os.ReadFile(f.varsFile)
		if err != nil {
			return nil, fmt.Errorf("read vars file: %w", err)
		}
		raw = string(data)
	}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Vars); err != nil {
			return nil, fmt.Errorf("parse vars: %w", err)
		}
	}
	if f.systemVars != "" {
		if err := json.Unmarshal([]byte(f.systemVars), &in.SystemVars); err != nil {
			return nil, fmt.Errorf("parse system vars: %w", err)
		}
	}
	return in, nil
}

func newPreviewCmd(withApp appRunner) *cobra.Command {
	var flags unitFlags
	cmd := &cobra.Command{
		Use:   "preview <unit>",
		Short: "render a unit's prompt without calling the model",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			in, err := flags.input()
			if err != nil {
				return err
			}
			res, err := a.inference.Preview(ctx, args[0], in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, res.Prompt)
			return err
		}),
	}
	flags.bind(cmd)
	return cmd
}

func newInferCmd(withApp appRunner) *cobra.Command {
	var flags unitFlags
	cmd := &cobra.Command{
		Use:   "infer <unit>",
		Short: "run a unit and print its structured output",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			in, err := flags.input()
			if err != nil {
				return err
			}
			res, err := a.inference.Run(ctx, args[0], in)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, res)
		}),
	}
	flags.bind(cmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list the available units",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			return printJSON(os.Stdout, a.inference.List())
		}),
	})
	return cmd
}

func newLoadCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "load <path>",
		Short: "load a document and print its raw text and sections",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			doc, err := a.documents.Load(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, doc)
		}),
	}
}

func newExtractCmd(withApp appRunner) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "extract <path>",
		Short: "run the extraction pipeline on one document",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			res, err := a.documents.Extract(ctx, args[0], save)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, res)
		}),
	}
	cmd.Flags().BoolVar(&save, "save", false, "write <stem>.json to the configured file store")
	return cmd
}

func newBatchCmd(withApp appRunner) *cobra.Command {
	var report, spec string
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "extract every document under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if spec == "" {
				res, err := a.documents.Batch(ctx, args[0], report)
				if res != nil {
					if perr := printJSON(os.Stdout, res.Summary); perr != nil {
						return perr
					}
				}
				return err
			}
			if err := schedule.ValidateSpec(spec); err != nil {
				return err
			}
			logger := logutil.GetLogger(ctx)
			sched := schedule.NewCronScheduler()
			batchJob := pipeline.NewBatchJob(a.documents.Pipeline(), args[0], report, func(res *pipeline.BatchResult) {
				logger.Info("scheduled batch finished",
					zap.String("run_id", res.RunID),
					zap.Int("successful", res.Summary.Successful),
					zap.Int("failed", res.Summary.Failed),
				)
			})
			if err := sched.AddJob(batchJob, spec); err != nil {
				return err
			}
			sched.Start(ctx)
			if next, ok := sched.Next(batchJob.Name()); ok {
				logger.Info("batch scheduled", zap.Time("next", next))
			}
			<-ctx.Done()
			sched.Stop()
			return nil
		}),
	}
	cmd.Flags().StringVar(&report, "report", "", "write an xlsx report to this path")
	cmd.Flags().StringVar(&spec, "schedule", "", "cron spec; keep running and repeat the batch on it")
	return cmd
}

func newMemoryCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "add to or search the configured memory store",
	}
	var source string
	add := &cobra.Command{
		Use:   "add <text>...",
		Short: "add one memory per argument",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			docs := make([]memory.Document, 0, len(args))
			for _, text := range args {
				var meta map[string]interface{}
				if source != "" {
					meta = map[string]interface{}{memory.SourceKey: source}
				}
				docs = append(docs, memory.Document{Content: text, Metadata: meta})
			}
			ids, err := a.memories.Add(ctx, docs)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, ids)
		}),
	}
	add.Flags().StringVar(&source, "source", "", "source recorded with each memory")

	var topK int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "search memories",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			chunks, err := a.memories.Search(ctx, strings.Join(args, " "), topK)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, chunks)
		}),
	}
	search.Flags().IntVar(&topK, "top-k", 0, "number of results")

	cmd.AddCommand(add, search)
	return cmd
}

func newAgentCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "run an example agent graph",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "react <question>",
			Short: "answer with the think, act, observe loop",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(func(ctx context.Context, a *app, args []string) error {
				state, err := a.agents.React(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, state)
			}),
		},
		&cobra.Command{
			Use:   "route <query>",
			Short: "route a query to the search, analyze or chat specialist",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(func(ctx context.Context, a *app, args []string) error {
				state, err := a.agents.Route(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, state)
			}),
		},
	)
	return cmd
}

func newHashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [key]",
		Short: "hash an API key for auth.api_key_hash, generating one when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				hash, err := password.Hash(args[0])
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, map[string]string{"api_key_hash": hash})
			}
			plain, hash, err := password.NewAPIKey()
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, map[string]string{"api_key": plain, "api_key_hash": hash})
		},
	}
}

func newTokenCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "token [subject]",
		Short: "sign a bearer token with auth.jwt_secret",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			subject := ""
			if len(args) == 1 {
				subject = args[0]
			}
			tok, err := service.NewAuthService(cfg.Auth).Issue(subject)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, tok)
		},
	}
}
