package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordbench/wordbench/internal/catalog"
	"github.com/wordbench/wordbench/internal/projectconfig"
)

var modelsCatalogPath string

func newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models the catalog knows about",
		Long: `List every model in the catalog with its provider and the
provider-specific model name.

The built-in catalog can be extended with a YAML overlay file, given via
--catalog or the project config.`,
		RunE: modelsCommandE,
	}

	cmd.Flags().StringVar(&modelsCatalogPath, "catalog", "", "Model catalog YAML overlay file")

	return cmd
}

func modelsCommandE(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path := modelsCatalogPath
	if path == "" {
		proj, err := projectconfig.Load(".")
		if err != nil {
			return fmt.Errorf("failed to load project config: %w", err)
		}
		path = proj.Paths.Catalog
	}

	cat := catalog.Default()
	if path != "" {
		loaded, err := catalog.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		cat = loaded
	}

	entries := cat.List()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.ID
	}
	nameWidth := modelColumnWidth(names)

	fmt.Fprintf(out, " %s  %-8s  %s\n", padRight("MODEL", nameWidth), "PROVIDER", "PROVIDER MODEL") //nolint:errcheck
	for _, e := range entries {
		name := padRight(truncateName(e.ID, nameWidth), nameWidth)
		fmt.Fprintf(out, " %s  %-8s  %s\n", name, e.Provider, e.ProviderModel) //nolint:errcheck
	}

	return nil
}
