package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordbench/wordbench/internal/validation"
)

var validateCatalogPath string

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec.yaml>...",
		Short: "Validate benchmark specs against their schema",
		Long: `Validate benchmark spec files against the JSON schema.

Checks the spec structure, value domains, and the topics file each spec
references. Use --catalog to validate a model catalog file as well.`,
		Args: cobra.MinimumNArgs(1),
		RunE: validateCommandE,
	}

	cmd.Flags().StringVar(&validateCatalogPath, "catalog", "", "Also validate this model catalog YAML file")

	return cmd
}

func validateCommandE(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	problems := 0

	for _, specPath := range args {
		specErrs, topicsErrs, err := validation.ValidateSpecFile(specPath)
		if err != nil {
			return err
		}

		if len(specErrs) == 0 && len(topicsErrs) == 0 {
			fmt.Fprintf(out, "✓ %s\n", specPath) //nolint:errcheck
			continue
		}

		fmt.Fprintf(out, "✗ %s\n", specPath) //nolint:errcheck
		for _, e := range specErrs {
			fmt.Fprintf(out, "    %s\n", e) //nolint:errcheck
		}
		for _, e := range topicsErrs {
			fmt.Fprintf(out, "    topics file: %s\n", e) //nolint:errcheck
		}
		problems += len(specErrs) + len(topicsErrs)
	}

	if validateCatalogPath != "" {
		catalogErrs, err := validation.ValidateCatalogFile(validateCatalogPath)
		if err != nil {
			return err
		}
		if len(catalogErrs) == 0 {
			fmt.Fprintf(out, "✓ %s\n", validateCatalogPath) //nolint:errcheck
		} else {
			fmt.Fprintf(out, "✗ %s\n", validateCatalogPath) //nolint:errcheck
			for _, e := range catalogErrs {
				fmt.Fprintf(out, "    %s\n", e) //nolint:errcheck
			}
			problems += len(catalogErrs)
		}
	}

	if problems > 0 {
		return fmt.Errorf("validation failed with %d error(s)", problems)
	}
	return nil
}
