// Command recon reconciles the sources named by a manifest and exports one
// view of the result: a filtered category, a brand/reference search, an
// exclusivity set or the whole primary catalog.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/JonMunkholm/catalogrecon/internal/core"
	"github.com/JonMunkholm/catalogrecon/internal/ingest"
	"github.com/JonMunkholm/catalogrecon/internal/logging"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// listFlag collects every occurrence of a repeated flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	manifest  string
	category  string
	extra     string
	stock     bool
	filters   listFlag
	contains  listFlag
	brand     string
	reference string
	exclusive string
	columns   string
	format    string
	out       string
	maxPairs  int
	logLevel  string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := flag.NewFlagSet("recon", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.manifest, "manifest", "", "YAML manifest naming the source files (required)")
	fs.StringVar(&o.category, "category", "", "category to filter")
	fs.StringVar(&o.extra, "extra", "", "extra attribute to make filterable")
	fs.BoolVar(&o.stock, "stock", false, "include the stock column")
	fs.Var(&o.filters, "filter", "attribute filter attr=v1|v2 (repeatable)")
	fs.Var(&o.contains, "contains", "substring filter attr=text (repeatable)")
	fs.StringVar(&o.brand, "brand", "", "search by vehicle brand")
	fs.StringVar(&o.reference, "reference", "", "narrow the brand search to one reference")
	fs.StringVar(&o.exclusive, "exclusive", "", "records of one catalog absent from another, a:b")
	fs.StringVar(&o.columns, "columns", "", "comma-separated export columns")
	fs.StringVar(&o.format, "format", "csv", "export format: csv or xlsx")
	fs.StringVar(&o.out, "out", "", "output file (default stdout)")
	fs.IntVar(&o.maxPairs, "max-pairs", core.DefaultMaxPairs, "highest brand_i/reference_i index read")
	fs.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.manifest == "" {
		return nil, errors.New("-manifest is required")
	}
	modes := 0
	for _, set := range []bool{o.category != "", o.brand != "", o.exclusive != ""} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return nil, errors.New("-category, -brand and -exclusive are mutually exclusive")
	}
	if o.reference != "" && o.brand == "" {
		return nil, errors.New("-reference requires -brand")
	}
	return &o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "recon:", err)
		return 2
	}
	logger := logging.New(stderr, o.logLevel, "text")

	if err := export(ctx, o, stdout, logger); err != nil {
		logger.Error("recon failed", "error", err)
		fmt.Fprintln(stderr, "recon:", core.FormatUserError(err))
		return 1
	}
	return 0
}

func export(ctx context.Context, o *options, stdout io.Writer, logger *slog.Logger) error {
	format, err := core.ParseExportFormat(o.format)
	if err != nil {
		return err
	}
	m, err := ingest.LoadManifest(o.manifest)
	if err != nil {
		return err
	}
	src, err := m.Load(ctx)
	if err != nil {
		return err
	}
	for _, report := range src.Validate(0) {
		logger.Warn("source has invalid rows",
			"source", report.Source,
			"invalid_rows", report.InvalidRows,
			"missing_columns", report.MissingColumns,
			"fields", report.Fields(),
		)
	}
	snap, err := core.Reconcile(ctx, src, core.Options{MaxPairs: o.maxPairs})
	if err != nil {
		return err
	}
	for _, w := range snap.Warnings {
		logger.Warn("feature disabled", "source", w.Source, "column", w.Column, "feature", w.Feature)
	}

	v, err := selectView(snap, o, logger)
	if err != nil {
		return err
	}

	var columns []string
	if o.columns != "" {
		columns = strings.Split(o.columns, ",")
	}
	write := func(w io.Writer) error {
		return core.ExportProjection(w, v, columns, format)
	}
	if o.out == "" {
		err = write(stdout)
	} else {
		var f *os.File
		if f, err = os.Create(o.out); err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		err = closeAfter(f, write)
	}
	if err != nil {
		return err
	}
	logger.Info("exported", "rows", v.Len(), "format", format)
	return nil
}

// closeAfter runs write on wc and closes it. The write error wins over the
// close error.
func closeAfter(wc io.WriteCloser, write func(io.Writer) error) error {
	if err := write(wc); err != nil {
		wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func selectView(snap *core.Snapshot, o *options, logger *slog.Logger) (*core.View, error) {
	switch {
	case o.exclusive != "":
		a, b, ok := strings.Cut(o.exclusive, ":")
		if !ok {
			return nil, fmt.Errorf("%w: -exclusive wants a:b, got %q", core.ErrInvalidSelection, o.exclusive)
		}
		ka, err := core.ParseSourceKind(a)
		if err != nil {
			return nil, err
		}
		kb, err := core.ParseSourceKind(b)
		if err != nil {
			return nil, err
		}
		return snap.ExclusiveOf(ka, kb)

	case o.brand != "":
		res, err := snap.SearchByBrandReference(o.brand, o.reference)
		if err != nil {
			return nil, err
		}
		return res.Rows, nil

	case o.category != "" || len(o.filters) > 0 || len(o.contains) > 0:
		st, err := filterState(o)
		if err != nil {
			return nil, err
		}
		res, err := snap.Filter(st)
		if err != nil {
			return nil, err
		}
		if len(res.Ignored) > 0 {
			logger.Warn("filters ignored", "attributes", res.Ignored)
		}
		return res.Rows, nil
	}
	return snap.View(core.SourcePrimary)
}

func filterState(o *options) (core.FilterState, error) {
	st := core.NewFilterState()
	if o.category != "" {
		st = st.WithCategory(o.category)
	}
	st = st.WithExtraAttribute(o.extra).WithStock(o.stock)

	add := func(raw string, op core.FilterOperator) error {
		attr, value, ok := strings.Cut(raw, "=")
		if !ok {
			return fmt.Errorf("%w: filter wants attr=value, got %q", core.ErrInvalidSelection, raw)
		}
		sel := core.Selection{Attribute: strings.TrimSpace(attr), Op: op}
		if op == core.OpIn {
			sel.Values = strings.Split(value, "|")
		} else {
			sel.Text = value
		}
		if err := sel.Validate(); err != nil {
			return err
		}
		st = st.WithFilter(sel)
		return nil
	}
	for _, f := range o.filters {
		if err := add(f, core.OpIn); err != nil {
			return core.FilterState{}, err
		}
	}
	for _, f := range o.contains {
		if err := add(f, core.OpContains); err != nil {
			return core.FilterState{}, err
		}
	}
	return st, nil
}
