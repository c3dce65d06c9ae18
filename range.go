package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/workbook-go/internal/workbook"
)

func newRangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Read, update, and sort worksheet cell ranges",
	}

	cmd.AddCommand(newRangeGetCmd())
	cmd.AddCommand(newRangeUpdateCmd())
	cmd.AddCommand(newRangeSortCmd())

	return cmd
}

func newRangeGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <item-id> <worksheet>",
		Short: "Print the worksheet's used range",
		Args:  cobra.ExactArgs(2),
		RunE:  runRangeGet,
	}
}

func runRangeGet(cmd *cobra.Command, args []string) error {
	logger := buildLogger()

	client, err := newWorkbookClient(cmd.Context(), logger)
	if err != nil {
		return err
	}

	rows, err := client.UsedRange(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(os.Stdout, rows)
	}

	printRows(os.Stdout, rows)

	return nil
}

func newRangeUpdateCmd() *cobra.Command {
	var (
		endColumn string
		file      string
	)

	cmd := &cobra.Command{
		Use:   "update <item-id> <worksheet>",
		Short: "Batch-replace worksheet rows",
		Long: `Replace whole rows in a single batched request.

Input is a JSON array of {"row": N, "values": [...]} objects read from
--file, or from stdin when --file is "-" or omitted. Each row is written to
the range A{N}:{end-column}{N}.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRangeUpdate(cmd, args, file, endColumn)
		},
	}

	cmd.Flags().StringVar(&endColumn, "end-column", "", "last column letter of each replaced row (required)")
	cmd.Flags().StringVar(&file, "file", "-", "row updates JSON file, or - for stdin")
	_ = cmd.MarkFlagRequired("end-column")

	return cmd
}

// rowUpdateInput is the CLI's JSON shape for one row replacement.
type rowUpdateInput struct {
	Row    int   `json:"row"`
	Values []any `json:"values"`
}

func runRangeUpdate(cmd *cobra.Command, args []string, file, endColumn string) error {
	logger := buildLogger()

	data, err := readInput(file)
	if err != nil {
		return err
	}

	var input []rowUpdateInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parsing row updates: %w", err)
	}

	rows := make([]workbook.RowUpdate, 0, len(input))
	for _, in := range input {
		rows = append(rows, workbook.RowUpdate{Row: in.Row, Values: in.Values})
	}

	client, err := newWorkbookClient(cmd.Context(), logger)
	if err != nil {
		return err
	}

	resp, err := client.BatchUpdateRows(cmd.Context(), args[0], args[1], rows, endColumn)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(os.Stdout, resp)
	}

	statusf("Updated %d row(s)\n", len(rows))

	return nil
}

func newRangeSortCmd() *cobra.Command {
	var (
		key        int
		descending bool
		sortOn     string
	)

	cmd := &cobra.Command{
		Use:   "sort <item-id> <worksheet>",
		Short: "Sort the worksheet's used range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()

			client, err := newWorkbookClient(cmd.Context(), logger)
			if err != nil {
				return err
			}

			fields := []workbook.SortField{{
				Key:       key,
				Ascending: !descending,
				SortOn:    sortOn,
			}}

			if err := client.SortUsedRange(cmd.Context(), args[0], args[1], fields); err != nil {
				return err
			}

			statusf("Sorted on column index %d\n", key)

			return nil
		},
	}

	cmd.Flags().IntVar(&key, "key", 0, "zero-based column index to sort on")
	cmd.Flags().BoolVar(&descending, "descending", false, "sort in descending order")
	cmd.Flags().StringVar(&sortOn, "sort-on", "", "sort key type (e.g. Value)")

	return cmd
}

// readInput reads the whole file, or stdin when path is "-" or empty.
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return data, nil
}
