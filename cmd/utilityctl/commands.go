package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"utilityfn/pkg/utilityfn"
)

func newFormulasCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "formulas",
		Short: "List built-in function and index formulas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			var rows []map[string]any
			for _, id := range utilityfn.FunctionFormulas() {
				rows = append(rows, map[string]any{"kind": utilityfn.KindFunction.String(), "formula": id})
			}
			for _, id := range utilityfn.IndexFormulas() {
				rows = append(rows, map[string]any{"kind": utilityfn.KindIndex.String(), "formula": id})
			}
			return p.rows([]string{"kind", "formula"}, rows)
		},
	}
}

func newVariantsCmd(opts *globalOptions) *cobra.Command {
	var modelPath string
	cmd := &cobra.Command{
		Use:   "variants",
		Short: "List the variants a model registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			m, err := client.LoadModel(modelPath)
			if err != nil {
				return err
			}
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			var rows []map[string]any
			for _, v := range m.Registry.Variants() {
				rows = append(rows, map[string]any{
					"name":         v.Name,
					"kind":         v.Kind.String(),
					"formula":      v.Formula,
					"parameters":   v.Parameters,
					"coefficients": v.Coefficients,
				})
			}
			return p.rows([]string{"name", "kind", "formula", "parameters", "coefficients"}, rows)
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model file (.yaml|.yml|.toml)")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newEvalCmd(opts *globalOptions) *cobra.Command {
	var (
		modelPath string
		rawArgs   []string
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a model root at one point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := utilityfn.ParseArgs(rawArgs)
			if err != nil {
				return err
			}
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			m, err := client.LoadModel(modelPath)
			if err != nil {
				return err
			}
			result, err := client.Evaluate(cmd.Context(), m, args)
			if err != nil {
				return err
			}
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			return p.rows([]string{"model", "root", "value", "id"}, []map[string]any{
				resultRow(m, result, nil),
			})
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model file (.yaml|.yml|.toml)")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "argument name=value (repeatable)")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newDeriveCmd(opts *globalOptions) *cobra.Command {
	var (
		modelPath string
		rawPath   string
		rawArgs   []string
	)
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Differentiate a model root along a dotted parameter path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := splitPath(rawPath)
			if len(path) == 0 {
				return fmt.Errorf("%w: --path is empty", utilityfn.ErrInvalidDerivativePath)
			}
			args, err := utilityfn.ParseArgs(rawArgs)
			if err != nil {
				return err
			}
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			m, err := client.LoadModel(modelPath)
			if err != nil {
				return err
			}
			result, err := client.Derivative(cmd.Context(), m, path, args)
			if err != nil {
				return err
			}
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			row := resultRow(m, result, nil)
			row["path"] = strings.Join(path, ".")
			return p.rows([]string{"model", "root", "path", "value", "id"}, []map[string]any{row})
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model file (.yaml|.yml|.toml)")
	cmd.Flags().StringVar(&rawPath, "path", "", "dotted parameter path, e.g. housing.rooms")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "argument name=value (repeatable)")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newSweepCmd(opts *globalOptions) *cobra.Command {
	var (
		modelPath string
		rawGrid   []string
		rawArgs   []string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate a model over a grid of argument values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			base, err := utilityfn.ParseArgs(rawArgs)
			if err != nil {
				return err
			}
			axes := make([]utilityfn.Axis, 0, len(rawGrid))
			for _, raw := range rawGrid {
				axis, err := utilityfn.ParseAxis(raw)
				if err != nil {
					return err
				}
				axes = append(axes, axis)
			}
			if len(axes) == 0 {
				return errors.New("sweep needs at least one --grid axis")
			}
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			m, err := client.LoadModel(modelPath)
			if err != nil {
				return err
			}
			points, err := client.Sweep(cmd.Context(), m, utilityfn.ExpandGrid(base, axes...))
			if err != nil {
				return err
			}
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			header := []string{"args", "value", "error"}
			rows := make([]map[string]any, 0, len(points))
			for _, pt := range points {
				row := resultRow(m, pt.Result, pt.Err)
				row["args"] = formatArgs(pt.Args)
				rows = append(rows, row)
			}
			return p.rows(header, rows)
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model file (.yaml|.yml|.toml)")
	cmd.Flags().StringArrayVar(&rawGrid, "grid", nil, "axis name=lo:hi:steps (repeatable)")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "fixed argument name=value (repeatable)")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

const memoryHistoryNote = "note: the memory store only holds evaluations from this process; " +
	"use --store sqlite (binary built with -tags sqlite) to keep history across runs"

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var (
		modelName string
		limit     int
		purge     bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded evaluations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if opts.storeKind() == "memory" {
				fmt.Fprintln(cmd.ErrOrStderr(), memoryHistoryNote)
			}
			if purge {
				return client.ClearHistory(cmd.Context(), modelName)
			}
			records, err := client.History(cmd.Context(), modelName, limit)
			if err != nil {
				return err
			}
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			rows := make([]map[string]any, 0, len(records))
			for _, rec := range records {
				row := map[string]any{
					"id":    rec.ID,
					"model": rec.Model,
					"kind":  string(rec.Kind),
					"path":  strings.Join(rec.Path, "."),
					"args":  formatArgs(rec.Args),
					"error": rec.Error,
					"when":  humanize.Time(rec.RecordedAt),
				}
				switch {
				case rec.Error != "":
				case rec.Infeasible:
					row["value"] = "infeasible"
				default:
					row["value"] = rec.Value
				}
				rows = append(rows, row)
			}
			return p.rows([]string{"when", "model", "kind", "path", "args", "value", "error"}, rows)
		},
	}
	cmd.Flags().StringVar(&modelName, "model", "", "limit to one model name")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum records, 0 for all")
	cmd.Flags().BoolVar(&purge, "clear", false, "delete matching records instead of listing them")
	return cmd
}

func resultRow(m *utilityfn.Model, result utilityfn.Result, err error) map[string]any {
	row := map[string]any{
		"model": m.Name,
		"root":  m.RootName,
		"id":    result.ID,
	}
	switch {
	case err != nil:
		row["error"] = err.Error()
	case result.Infeasible:
		row["value"] = "infeasible"
	default:
		row["value"] = result.Value
	}
	return row
}

func splitPath(raw string) []string {
	var path []string
	for _, part := range strings.Split(raw, ".") {
		if part = strings.TrimSpace(part); part != "" {
			path = append(path, part)
		}
	}
	return path
}

// formatArgs renders args as sorted name=value pairs.
func formatArgs(args utilityfn.Args) string {
	pairs := make([]string, 0, len(args))
	for name, v := range args {
		pairs = append(pairs, fmt.Sprintf("%s=%g", name, v))
	}
	slices.Sort(pairs)
	return strings.Join(pairs, " ")
}
