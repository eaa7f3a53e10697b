package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/gwasnorm/internal/gwas"
	"github.com/inodb/gwasnorm/internal/lookup"
	"github.com/inodb/gwasnorm/internal/reader"
	"github.com/inodb/gwasnorm/internal/tabix"
)

type convertOptions struct {
	columnOptions
	skipRows      int
	stopOnError   bool
	dest          string
	index         bool
	columns       []string
	requirePvalue bool
}

func (a *app) newConvertCmd() *cobra.Command {
	var o convertOptions

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a GWAS file to the canonical format",
		Long: `Convert reads summary statistics from a file (plain or gzipped) or from
stdin, and writes them in the canonical tab-delimited format. Columns are
given explicitly with the --*-col flags, or inferred with --auto.`,
		Example: `  gwasnorm convert --auto study.tsv.gz --dest study.std.tsv --index
  gwasnorm convert --chrom-col 1 --pos-col 2 --ref-col 3 --alt-col 4 --pvalue-col 5 --skip-rows 1 study.txt
  zcat study.tsv.gz | gwasnorm convert --auto --rsid-lookup rsid.lmdb > out.tsv`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return a.runConvert(cmd, path, o)
		},
	}

	f := cmd.Flags()
	o.addFlags(f)
	f.IntVar(&o.skipRows, "skip-rows", 0, "Number of header rows to skip (ignored with --auto)")
	f.BoolVar(&o.stopOnError, "stop-on-error", false, "Fail on the first unparseable line")
	f.StringVarP(&o.dest, "dest", "o", "", "Output file (default: stdout)")
	f.BoolVar(&o.index, "index", false, "Compress the output with bgzip and index it with tabix")
	f.StringSliceVar(&o.columns, "columns", nil, "Output columns (default: all canonical fields)")
	f.BoolVar(&o.requirePvalue, "require-pvalue", false, "Drop rows without a p-value")
	f.Int("max-errors", reader.DefaultMaxErrors, "Stop after this many unparseable lines")
	f.String("rsid-lookup", "", "Fill rsids from this reference store")
	f.String("lookup-backend", "lmdb", "Reference store format: lmdb, bolt or duckdb")

	viper.BindPFlag("convert.max_errors", f.Lookup("max-errors"))
	viper.BindPFlag("lookup.path", f.Lookup("rsid-lookup"))
	viper.BindPFlag("lookup.backend", f.Lookup("lookup-backend"))

	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, path string, o convertOptions) error {
	ropts := reader.Options{
		SkipRows:   o.skipRows,
		SkipErrors: viper.GetBool("convert.skip_errors") && !o.stopOnError,
		MaxErrors:  viper.GetInt("convert.max_errors"),
		Logger:     a.logger,
	}
	r, err := a.openReader(inputSource(path, cmd.InOrStdin()), o.columnOptions, ropts)
	if err != nil {
		return err
	}
	defer r.Close()

	if o.requirePvalue {
		if err := r.AddFilter(gwas.FieldPvalue); err != nil {
			return err
		}
	}
	if storePath := viper.GetString("lookup.path"); storePath != "" {
		store, err := openLookup(viper.GetString("lookup.backend"), storePath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := r.AddLookup(gwas.FieldRsid, lookup.RsidLookup(store)); err != nil {
			return err
		}
	}

	wopts := reader.WriteOptions{
		Columns:   o.columns,
		MakeIndex: o.index,
		Indexer:   tabix.Indexer{Command: viper.GetString("tabix.command"), Logger: a.logger},
	}
	if o.dest == "" {
		err = r.WriteTo(cmd.OutOrStdout(), wopts)
	} else {
		var out string
		if out, err = r.Write(o.dest, wopts); err == nil {
			a.logger.Info("conversion complete", zap.String("output", out))
		}
	}
	reportExcluded(a.logger, r.Errors())
	return err
}

// reportExcluded logs every line left out of the output.
func reportExcluded(logger *zap.Logger, errs []gwas.LineError) {
	if len(errs) == 0 {
		return
	}
	logger.Error("lines excluded from output", zap.Int("count", len(errs)))
	for _, e := range errs {
		logger.Error("excluded line",
			zap.Int("line", e.Line),
			zap.String("reason", e.Message),
			zap.String("content", truncate(e.Raw, 200)))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}

// formatRegion renders a 0-based half-open region the way users type it.
func formatRegion(contig string, start, end int64) string {
	return fmt.Sprintf("%s:%d-%d", contig, start+1, end)
}
