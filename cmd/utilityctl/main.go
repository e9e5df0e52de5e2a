package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"utilityfn/internal/modelconfig"
	"utilityfn/pkg/utilityfn"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := modelconfig.LoadEnv()
	if err != nil {
		return err
	}
	root := newRootCmd(cfg, os.Stdout, os.Stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	store    string
	dbPath   string
	logLevel string
	maxDepth int
	workers  int
	output   string
}

func newRootCmd(cfg modelconfig.Env, stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "utilityctl",
		Short:         "Evaluate and differentiate utility models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.store, "store", cfg.Store, "store backend: memory|sqlite (default "+utilityfn.DefaultStoreKind()+")")
	flags.StringVar(&opts.dbPath, "db-path", cfg.DBPath, "sqlite database path")
	flags.StringVar(&opts.logLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	flags.IntVar(&opts.maxDepth, "max-depth", cfg.MaxDepth, "nested evaluation depth limit")
	flags.IntVar(&opts.workers, "workers", cfg.Workers, "concurrent sweep workers")
	flags.StringVar(&opts.output, "output", "auto", "output format: auto|table|json")

	root.AddCommand(
		newFormulasCmd(opts),
		newVariantsCmd(opts),
		newEvalCmd(opts),
		newDeriveCmd(opts),
		newSweepCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

func (o *globalOptions) logger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := modelconfig.ParseLogLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

func (o *globalOptions) client(cmd *cobra.Command) (*utilityfn.Client, error) {
	logger, err := o.logger(cmd)
	if err != nil {
		return nil, err
	}
	client, err := utilityfn.New(utilityfn.Options{
		StoreKind: o.storeKind(),
		DBPath:    o.dbPath,
		MaxDepth:  o.maxDepth,
		Workers:   o.workers,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (o *globalOptions) storeKind() string {
	if o.store == "" {
		return utilityfn.DefaultStoreKind()
	}
	return o.store
}

func (o *globalOptions) printer(cmd *cobra.Command) (*printer, error) {
	return newPrinter(cmd.OutOrStdout(), o.output)
}
