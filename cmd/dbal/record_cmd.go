package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dbal/internal/dbalerr"
	"dbal/internal/sqladapter"
)

type recordFlags struct {
	conn   connFlags
	id     string
	data   string
	limit  int
	page   int
	filter []string
}

func recordCmd() *cobra.Command {
	flags := &recordFlags{}
	cmd := &cobra.Command{
		Use:   "record",
		Short: "CRUD and list operations against a schema-described entity",
	}
	registerConnFlags(cmd.PersistentFlags(), &flags.conn)

	cmd.AddCommand(recordCreateCmd(flags))
	cmd.AddCommand(recordReadCmd(flags))
	cmd.AddCommand(recordUpdateCmd(flags))
	cmd.AddCommand(recordDeleteCmd(flags))
	cmd.AddCommand(recordListCmd(flags))
	return cmd
}

func parseData(data string) (map[string]any, error) {
	if data == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, dbalerr.ValidationError("--data is not valid JSON: %v", err)
	}
	return out, nil
}

func printRecord(rec map[string]any) {
	b, _ := json.MarshalIndent(rec, "", "  ")
	fmt.Println(string(b))
}

func recordCreateCmd(flags *recordFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := requireConnFlags(&flags.conn); err != nil {
				return printErr(err)
			}
			adapter, closeFn, err := openAdapter(&flags.conn)
			if err != nil {
				return printErr(err)
			}
			defer closeFn()

			data, err := parseData(flags.data)
			if err != nil {
				return printErr(err)
			}
			rec, err := adapter.Create(context.Background(), data)
			if err != nil {
				return printErr(err)
			}
			printRecord(rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.data, "data", "", "record data as a JSON object (required)")
	return cmd
}

func recordReadCmd(flags *recordFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a record by id",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := requireConnFlags(&flags.conn); err != nil {
				return printErr(err)
			}
			if flags.id == "" {
				return printErr(dbalerr.ValidationError("--id is required"))
			}
			adapter, closeFn, err := openAdapter(&flags.conn)
			if err != nil {
				return printErr(err)
			}
			defer closeFn()

			rec, err := adapter.Read(context.Background(), idValue(flags.id))
			if err != nil {
				return printErr(err)
			}
			printRecord(rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.id, "id", "", "record id (required)")
	return cmd
}

func recordUpdateCmd(flags *recordFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a record by id",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := requireConnFlags(&flags.conn); err != nil {
				return printErr(err)
			}
			if flags.id == "" {
				return printErr(dbalerr.ValidationError("--id is required"))
			}
			adapter, closeFn, err := openAdapter(&flags.conn)
			if err != nil {
				return printErr(err)
			}
			defer closeFn()

			data, err := parseData(flags.data)
			if err != nil {
				return printErr(err)
			}
			rec, err := adapter.Update(context.Background(), idValue(flags.id), data)
			if err != nil {
				return printErr(err)
			}
			printRecord(rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.id, "id", "", "record id (required)")
	cmd.Flags().StringVar(&flags.data, "data", "", "fields to update as a JSON object (required)")
	return cmd
}

func recordDeleteCmd(flags *recordFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a record by id",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := requireConnFlags(&flags.conn); err != nil {
				return printErr(err)
			}
			if flags.id == "" {
				return printErr(dbalerr.ValidationError("--id is required"))
			}
			adapter, closeFn, err := openAdapter(&flags.conn)
			if err != nil {
				return printErr(err)
			}
			defer closeFn()

			removed, err := adapter.Remove(context.Background(), idValue(flags.id))
			if err != nil {
				return printErr(err)
			}
			fmt.Printf("removed: %v\n", removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.id, "id", "", "record id (required)")
	return cmd
}

func recordListCmd(flags *recordFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records with optional filters and pagination",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := requireConnFlags(&flags.conn); err != nil {
				return printErr(err)
			}
			adapter, closeFn, err := openAdapter(&flags.conn)
			if err != nil {
				return printErr(err)
			}
			defer closeFn()

			filterEntries, err := parseFilters(flags.filter)
			if err != nil {
				return printErr(err)
			}

			result, err := adapter.List(context.Background(), sqladapter.ListOptions{
				Filter: filterEntries,
				Limit:  flags.limit,
				Page:   flags.page,
			})
			if err != nil {
				return printErr(err)
			}
			b, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(b))
			return nil
		},
	}
	cmd.Flags().IntVar(&flags.limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&flags.page, "page", 1, "1-based page number")
	cmd.Flags().StringArrayVar(&flags.filter, "filter", nil, "equality filter field=value, repeatable")
	return cmd
}

// parseFilters converts --filter field=value flags into FilterEntry terms,
// preserving the order the caller specified them in.
func parseFilters(raw []string) ([]sqladapter.FilterEntry, error) {
	entries := make([]sqladapter.FilterEntry, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, "=", 2)
		if len(parts) != 2 {
			return nil, dbalerr.ValidationError("--filter %q must be of the form field=value", r)
		}
		entries = append(entries, sqladapter.FilterEntry{Field: parts[0], Value: parts[1]})
	}
	return entries, nil
}

// idValue converts a CLI id argument to an int64 when it parses cleanly,
// otherwise leaves it as a string; paramFor converts either to the primary
// field's bound type.
func idValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
