package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	cerrors "github.com/lodestar-catalog/lodestar/compiler/errors"
	"github.com/lodestar-catalog/lodestar/internal/annotations"
	"github.com/lodestar-catalog/lodestar/internal/config"
	"github.com/lodestar-catalog/lodestar/internal/generation"
)

var (
	compileJSON bool
	compileOut  string
)

func init() {
	compileCmd.Flags().BoolVar(&compileJSON, "json", false, "Print the compiled descriptors as JSON")
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", "", "Write mappings.json and edges.json to this directory")
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile the schema set into descriptor output",
	Long:  "Compile every aspect definition named by the configuration into index mapping and relationship edge descriptors",
	RunE: func(cmd *cobra.Command, args []string) error {
		startTime := time.Now()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		gen, errs := compileGeneration(cfg)
		for _, warning := range errs.Warnings() {
			fmt.Fprintln(os.Stderr, warning.FormatForTerminal())
		}
		if gen == nil {
			fmt.Fprint(os.Stderr, cerrors.FormatListForTerminal(errs))
			return fmt.Errorf("compile failed with %d error(s)", len(errs.Errors()))
		}

		if compileOut != "" {
			if err := writeDescriptors(compileOut, gen); err != nil {
				return err
			}
		}

		if compileJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"generationId": gen.ID,
				"mappings":     gen.Mappings,
				"edges":        gen.Edges,
			})
		}

		fmt.Printf("Compiled %d aspect(s): %d mapping field(s), %d edge type(s) in %s\n",
			len(gen.Schemas.AspectNames()), len(gen.Mappings), len(gen.Edges),
			time.Since(startTime).Round(time.Millisecond))
		return nil
	},
}

// compileGeneration runs the full pipeline from the configured inputs
func compileGeneration(cfg *config.Config) (*generation.Generation, *cerrors.List) {
	errs := &cerrors.List{}

	sources, err := config.LoadSources(cfg.Schema.Paths)
	if err != nil {
		errs.Add(cerrors.New("registry", cerrors.CodeParseSyntax, cerrors.SchemaParse, err.Error(), cerrors.SourceLocation{}))
		return nil, errs
	}
	bindings, err := config.LoadEntityRegistry(cfg.Schema.EntityRegistry)
	if err != nil {
		errs.Add(cerrors.New("registry", cerrors.CodeUnknownAspectBound, cerrors.SchemaGraph, err.Error(), cerrors.SourceLocation{}))
		return nil, errs
	}

	return generation.Compile(sources, bindings, generation.Options{
		Workers:     cfg.Compile.Workers,
		Annotations: annotations.Options{InheritEmbedded: cfg.Annotations.InheritEmbedded},
	})
}

func writeDescriptors(dir string, gen *generation.Generation) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := map[string]any{
		"mappings.json": gen.Mappings,
		"edges.json":    gen.Edges,
	}
	for name, body := range files {
		data, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
