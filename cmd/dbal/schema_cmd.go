package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dbal/internal/prisma"
	"dbal/internal/schema"
)

type schemaValidateFlags struct {
	dir string
}

type schemaPrismaFlags struct {
	dir          string
	provider     string
	clientOutput string
	outFile      string
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Load, validate, and generate Prisma fragments from entity schemas",
	}
	cmd.AddCommand(schemaValidateCmd())
	cmd.AddCommand(schemaPrismaCmd())
	return cmd
}

func schemaValidateCmd() *cobra.Command {
	flags := &schemaValidateFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load every schema under --dir and report validation errors/warnings",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := runSchemaValidate(flags); err != nil {
				return printErr(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.dir, "dir", "", "schema directory (defaults to the loader's search path)")
	return cmd
}

func runSchemaValidate(flags *schemaValidateFlags) error {
	loader := schema.NewLoader()
	dir := flags.dir
	if dir == "" {
		var err error
		dir, err = loader.DefaultSearchPath()
		if err != nil {
			return err
		}
	}

	schemas, err := loader.LoadAll(dir)
	if err != nil {
		return err
	}

	fmt.Printf("loaded %d schema(s) from %s\n", len(schemas), dir)
	for _, s := range schemas {
		fmt.Printf("  %s: %d field(s), %d index(es), %d relation(s)\n", s.Name, len(s.Fields), len(s.Indexes), len(s.Relations))
	}
	return nil
}

func schemaPrismaCmd() *cobra.Command {
	flags := &schemaPrismaFlags{}
	cmd := &cobra.Command{
		Use:   "prisma",
		Short: "Generate a .prisma schema document from every schema under --dir",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := runSchemaPrisma(flags); err != nil {
				return printErr(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.dir, "dir", "", "schema directory (defaults to the loader's search path)")
	cmd.Flags().StringVar(&flags.provider, "provider", "postgresql", "Prisma datasource provider: postgresql, mysql, or sqlite")
	cmd.Flags().StringVar(&flags.clientOutput, "client-output", "", "Prisma client output path")
	cmd.Flags().StringVarP(&flags.outFile, "output", "o", "", "write the generated document here instead of stdout")
	return cmd
}

func runSchemaPrisma(flags *schemaPrismaFlags) error {
	loader := schema.NewLoader()
	dir := flags.dir
	if dir == "" {
		var err error
		dir, err = loader.DefaultSearchPath()
		if err != nil {
			return err
		}
	}

	schemas, err := loader.LoadAll(dir)
	if err != nil {
		return err
	}

	gen := prisma.New(nil)
	doc := gen.SchemaDocument(strings.ToLower(flags.provider), flags.clientOutput, schemas)

	if flags.outFile == "" {
		fmt.Println(doc)
		return nil
	}
	if err := os.WriteFile(flags.outFile, []byte(doc+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Printf("generated Prisma schema: %s\n", flags.outFile)
	return nil
}
