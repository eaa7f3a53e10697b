package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/gwasnorm/internal/gwas"
	"github.com/inodb/gwasnorm/internal/output"
	"github.com/inodb/gwasnorm/internal/reader"
)

func (a *app) newFetchCmd() *cobra.Command {
	var o columnOptions

	cmd := &cobra.Command{
		Use:   "fetch <file> <chrom:start-end>",
		Short: "Print the rows of an indexed file within a region",
		Long: `Fetch queries a bgzip-compressed file with a tabix index (file.tbi) and
prints the parsed rows overlapping the region. Coordinates are 1-based and
inclusive.`,
		Example: `  gwasnorm fetch study.std.tsv.gz 1:10000-20000
  gwasnorm fetch --marker-col 1 --pvalue-col 2 markers.tsv.gz 2:500`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFetch(cmd, args[0], args[1], o)
		},
	}
	o.addFlags(cmd.Flags())
	return cmd
}

func (a *app) runFetch(cmd *cobra.Command, path, region string, o columnOptions) error {
	contig, start, end, err := parseRegion(region)
	if err != nil {
		return err
	}
	r, err := a.openReader(reader.FileSource{Path: path}, o, reader.Options{SkipErrors: true, Logger: a.logger})
	if err != nil {
		return err
	}
	defer r.Close()

	lister, ok := r.Parser().(gwas.FieldLister)
	if !ok {
		return &gwas.ConfigError{Message: "fetch needs a parser that yields named fields"}
	}
	tw := output.NewTabWriter(cmd.OutOrStdout(), lister.Fields(), "\t")
	if err := tw.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	n := 0
	for row, err := range r.Fetch(contig, start, end) {
		if err != nil {
			return err
		}
		if err := tw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		n++
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	a.logger.Debug("fetched region", zap.String("region", formatRegion(contig, start, end)), zap.Int("rows", n))
	reportExcluded(a.logger, r.Errors())
	return nil
}

// parseRegion turns "chrom:start-end" or "chrom:pos" (1-based, inclusive,
// thousands separators allowed) into a 0-based half-open interval.
func parseRegion(s string) (string, int64, int64, error) {
	contig, span, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || contig == "" || span == "" {
		return "", 0, 0, &usageError{fmt.Errorf("region %q must look like chrom:start-end", s)}
	}
	from, to, isRange := strings.Cut(span, "-")
	start, err := strconv.ParseInt(strings.ReplaceAll(from, ",", ""), 10, 64)
	if err != nil || start < 1 {
		return "", 0, 0, &usageError{fmt.Errorf("region %q has an invalid start", s)}
	}
	end := start
	if isRange {
		end, err = strconv.ParseInt(strings.ReplaceAll(to, ",", ""), 10, 64)
		if err != nil || end < start {
			return "", 0, 0, &usageError{fmt.Errorf("region %q has an invalid end", s)}
		}
	}
	return contig, start - 1, end, nil
}
