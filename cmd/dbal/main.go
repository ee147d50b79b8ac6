// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "dbal/internal/sqladapter/mysql"
	_ "dbal/internal/sqladapter/sqlite"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dbal",
		Short: "Database abstraction layer: schema, record, and blob operations",
	}

	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(recordCmd())
	rootCmd.AddCommand(blobCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// printErr renders err as the §6.3 error JSON wire shape to stderr.
func printErr(err error) error {
	wire := errorWire(err)
	fmt.Fprintln(os.Stderr, wire)
	return err
}
