package workbook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// RowUpdate is one worksheet row replacement for BatchUpdateRows. Row is the
// 1-based worksheet row number; Values are the replacement cell values for
// columns A through the batch's end column.
type RowUpdate struct {
	Row    int
	Values []any
}

// SortField specifies one sort key for SortUsedRange, mirroring the Graph
// workbook sort field object.
type SortField struct {
	Key       int    `json:"key"`
	Ascending bool   `json:"ascending"`
	SortOn    string `json:"sortOn,omitempty"`
}

// BatchResponse is the parsed body of a $batch call: one entry per
// sub-request, correlated by ID.
type BatchResponse struct {
	Responses []BatchItemResponse `json:"responses"`
}

// BatchItemResponse is the outcome of a single batched sub-request.
type BatchItemResponse struct {
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// batchRequest is one sub-request inside a $batch call body.
type batchRequest struct {
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Body    batchRangeBody    `json:"body"`
	Headers map[string]string `json:"headers"`
}

// batchRangeBody carries a single row's replacement values as a one-row table.
type batchRangeBody struct {
	Values [][]any `json:"values"`
}

// UsedRange fetches the worksheet's used range and returns its cell values,
// one inner slice per row.
func (c *Client) UsedRange(ctx context.Context, itemID, worksheet string) ([][]any, error) {
	path := fmt.Sprintf("/me/drive/items/%s/workbook/worksheets/%s/usedRange", itemID, worksheet)

	body, err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       path,
		okStatuses: []int{http.StatusOK},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Values [][]any `json:"values"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("workbook: decoding used range: %w", err)
	}

	return parsed.Values, nil
}

// BatchUpdateRows replaces whole rows in one round trip. Each input row
// becomes a PATCH sub-request addressed at A{row}:{endColumn}{row}, with
// sub-request IDs numbered sequentially from "1"; the set is submitted as a
// single $batch call. Workbook lock contention is retried.
func (c *Client) BatchUpdateRows(ctx context.Context, itemID, worksheet string, rows []RowUpdate, endColumn string) (*BatchResponse, error) {
	requests := make([]batchRequest, 0, len(rows))

	for i, row := range rows {
		url := fmt.Sprintf("/me/drive/items/%s/workbook/worksheets('%s')/range(address='A%d:%s%d')",
			itemID, worksheet, row.Row, endColumn, row.Row)

		requests = append(requests, batchRequest{
			ID:      strconv.Itoa(i + 1),
			Method:  http.MethodPatch,
			URL:     url,
			Body:    batchRangeBody{Values: [][]any{row.Values}},
			Headers: map[string]string{"Content-Type": "application/json"},
		})
	}

	payload, err := json.Marshal(map[string]any{"requests": requests})
	if err != nil {
		return nil, fmt.Errorf("workbook: encoding batch request: %w", err)
	}

	body, err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/$batch",
		body:        payload,
		okStatuses:  []int{http.StatusOK},
		retryOnLock: true,
	})
	if err != nil {
		return nil, err
	}

	var parsed BatchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("workbook: decoding batch response: %w", err)
	}

	return &parsed, nil
}

// SortUsedRange applies a sort over the worksheet's used range with the
// given field specification.
func (c *Client) SortUsedRange(ctx context.Context, itemID, worksheet string, fields []SortField) error {
	path := fmt.Sprintf("/me/drive/items/%s/workbook/worksheets/%s/usedRange/sort/apply", itemID, worksheet)

	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return fmt.Errorf("workbook: encoding sort request: %w", err)
	}

	_, err = c.do(ctx, call{
		method:     http.MethodPost,
		path:       path,
		body:       payload,
		okStatuses: []int{http.StatusOK},
	})

	return err
}
