// Command cli compiles and inspects semantic queries without a running
// server: feed it a query JSON and it prints the SQL the service would run.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cpg-insights/internal/catalog"
	"cpg-insights/internal/compiler"
	"cpg-insights/internal/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var catalogPath string
	var atDate string

	root := &cobra.Command{
		Use:          "cpg-insights",
		Short:        "Compile and inspect semantic sales queries",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&catalogPath, "catalog", "configs/cpg.yaml", "semantic catalog YAML path")
	root.PersistentFlags().StringVar(&atDate, "at", "", "reference date for time windows (YYYY-MM-DD, default today)")

	root.AddCommand(newCompileCmd(&catalogPath, &atDate))
	root.AddCommand(newValidateCmd(&catalogPath))
	root.AddCommand(newCatalogCmd(&catalogPath))
	return root
}

func newCompileCmd(catalogPath, atDate *string) *cobra.Command {
	return &cobra.Command{
		Use:   "compile [query.json]",
		Short: "Compile a semantic query to SQL",
		Long:  "Reads a semantic query as JSON from the given file or stdin, validates it, applies the intent pattern, and prints the compiled SQL.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.Load(*catalogPath)
			if err != nil {
				return err
			}
			q, err := readQuery(args)
			if err != nil {
				return err
			}
			if errs := compiler.Validate(q, snap); len(errs) > 0 {
				return domain.ErrValidationList(errs)
			}

			now, err := referenceTime(*atDate)
			if err != nil {
				return err
			}
			optimized := compiler.Optimize(q, snap)
			c := compiler.New(snap, compiler.WithClock(func() time.Time { return now }))
			sql, explanation, err := c.CompileSQL(optimized)
			if err != nil {
				return err
			}

			fmt.Println("-- " + explanation)
			fmt.Println(sql)
			return nil
		},
	}
}

func newValidateCmd(catalogPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [query.json]",
		Short: "Validate a semantic query against the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.Load(*catalogPath)
			if err != nil {
				return err
			}
			q, err := readQuery(args)
			if err != nil {
				return err
			}
			errs := compiler.Validate(q, snap)
			if len(errs) == 0 {
				fmt.Println("ok")
				return nil
			}
			for _, e := range errs {
				fmt.Println("- " + e)
			}
			os.Exit(1)
			return nil
		},
	}
}

func newCatalogCmd(catalogPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the semantic catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "metrics",
		Short: "List metric definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.Load(*catalogPath)
			if err != nil {
				return err
			}
			for _, m := range snap.Metrics() {
				distinct := ""
				if m.Distinct {
					distinct = "DISTINCT "
				}
				fmt.Printf("%-28s %s(%s%s) on %s\n", m.Name, m.Aggregate, distinct, m.Argument, m.Table)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dimensions",
		Short: "List dimension definitions and their attributes",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.Load(*catalogPath)
			if err != nil {
				return err
			}
			for _, d := range snap.Dimensions() {
				fmt.Printf("%s (%s, key %s)\n", d.Name, d.Table, d.Key)
				for attr, col := range d.Attributes {
					fmt.Printf("  %-24s %s.%s\n", attr, d.Alias, col)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "windows",
		Short: "List the supported time window tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, w := range compiler.Windows() {
				fmt.Println(w)
			}
			return nil
		},
	})
	return cmd
}

func readQuery(args []string) (domain.SemanticQuery, error) {
	var raw []byte
	var err error
	if len(args) == 1 && args[0] != "-" {
		raw, err = os.ReadFile(args[0])
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return domain.SemanticQuery{}, fmt.Errorf("read query: %w", err)
	}

	var q domain.SemanticQuery
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.SemanticQuery{}, fmt.Errorf("parse query JSON: %w", err)
	}
	if !q.Intent.Valid() {
		return domain.SemanticQuery{}, domain.ErrValidation("unknown intent %q", q.Intent)
	}
	return q, nil
}

func referenceTime(atDate string) (time.Time, error) {
	if atDate == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", atDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at date %q: %w", atDate, err)
	}
	return t, nil
}
