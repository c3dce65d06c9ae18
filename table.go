package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "List workbook tables and append rows",
	}

	cmd.AddCommand(newTableListCmd())
	cmd.AddCommand(newTableAddCmd())

	return cmd
}

func newTableListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <item-id>",
		Short: "List the workbook's tables",
		Args:  cobra.ExactArgs(1),
		RunE:  runTableList,
	}
}

func runTableList(cmd *cobra.Command, args []string) error {
	logger := buildLogger()

	client, err := newWorkbookClient(cmd.Context(), logger)
	if err != nil {
		return err
	}

	tables, err := client.Tables(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(os.Stdout, tables)
	}

	if len(tables) == 0 {
		statusf("No tables in workbook\n")
		return nil
	}

	rows := make([][]string, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, []string{t.ID, t.Name})
	}

	printTable(os.Stdout, []string{"ID", "NAME"}, rows)

	return nil
}

func newTableAddCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add <item-id> <table>",
		Short: "Append rows to a workbook table",
		Long: `Append rows to a table.

Input is a JSON array of row value arrays read from --file, or from stdin
when --file is "-" or omitted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableAdd(cmd, args, file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "-", "rows JSON file, or - for stdin")

	return cmd
}

func runTableAdd(cmd *cobra.Command, args []string, file string) error {
	logger := buildLogger()

	data, err := readInput(file)
	if err != nil {
		return err
	}

	var values [][]any
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parsing rows: %w", err)
	}

	client, err := newWorkbookClient(cmd.Context(), logger)
	if err != nil {
		return err
	}

	if err := client.AddTableRows(cmd.Context(), args[0], args[1], values); err != nil {
		return err
	}

	statusf("Appended %d row(s) to %s\n", len(values), args[1])

	return nil
}
