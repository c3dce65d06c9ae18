package workbook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Table is one workbook table from the tables collection.
type Table struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tables lists the workbook's tables. A workbook without tables returns an
// empty slice, not an error.
func (c *Client) Tables(ctx context.Context, itemID string) ([]Table, error) {
	path := fmt.Sprintf("/me/drive/items/%s/workbook/tables", itemID)

	body, err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       path,
		okStatuses: []int{http.StatusOK},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Value []Table `json:"value"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("workbook: decoding table list: %w", err)
	}

	return parsed.Value, nil
}

// AddTableRows appends rows to a workbook table. The rows/add endpoint
// returns 201 Created on success; a 200 here means the append did not happen
// and is treated as failure. Workbook lock contention is retried.
func (c *Client) AddTableRows(ctx context.Context, itemID, tableName string, values [][]any) error {
	path := fmt.Sprintf("/me/drive/items/%s/workbook/tables/%s/rows/add", itemID, tableName)

	payload, err := json.Marshal(map[string]any{"values": values})
	if err != nil {
		return fmt.Errorf("workbook: encoding table rows: %w", err)
	}

	_, err = c.do(ctx, call{
		method:      http.MethodPost,
		path:        path,
		body:        payload,
		okStatuses:  []int{http.StatusCreated},
		retryOnLock: true,
	})

	return err
}
