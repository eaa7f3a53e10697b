package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/gwasnorm/internal/reader"
)

// sniffReport is the YAML printed by the sniff command.
type sniffReport struct {
	Delimiter      string         `yaml:"delimiter"`
	HeaderRows     int            `yaml:"header_rows"`
	Columns        map[string]int `yaml:"columns"`
	IsNegLogPvalue bool           `yaml:"is_neg_log_pvalue"`
	IsAltEffect    bool           `yaml:"is_alt_effect"`
	Headers        []string       `yaml:"headers,omitempty"`
	Warnings       []string       `yaml:"warnings,omitempty"`
}

func (a *app) newSniffCmd() *cobra.Command {
	var o columnOptions

	cmd := &cobra.Command{
		Use:   "sniff [file]",
		Short: "Show the columns inferred for a file",
		Long: `Sniff inspects the header and the first rows of a file and prints the
inferred layout as YAML, with 1-based column numbers. Column flags pin
individual columns.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return a.runSniff(cmd, path, o)
		},
	}
	o.addFlags(cmd.Flags())
	return cmd
}

func (a *app) runSniff(cmd *cobra.Command, path string, o columnOptions) error {
	cfg, err := o.config()
	if err != nil {
		return err
	}
	ropts := reader.Options{SkipErrors: true, MaxErrors: viper.GetInt("convert.max_errors"), Logger: a.logger}
	inf, _, err := a.guess(inputSource(path, cmd.InOrStdin()), o, cfg, ropts)
	if err != nil {
		return err
	}

	rep := sniffReport{
		Delimiter:      inf.Config.Delimiter,
		HeaderRows:     inf.HeaderRows,
		Columns:        make(map[string]int),
		IsNegLogPvalue: inf.Config.IsNegLogPvalue,
		IsAltEffect:    inf.Config.IsAltEffect,
		Headers:        inf.Headers,
		Warnings:       inf.Warnings,
	}
	for _, r := range columnRoles(inf.Config) {
		rep.Columns[r.name] = r.column
	}
	out, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}
