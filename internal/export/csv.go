package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/prn-tf/teamledger/internal/domain"
)

// csvHeader is the column layout of an item export.
var csvHeader = []string{"date", "name", "note", "category", "type", "quantity", "price", "total"}

// WriteItemsCSV writes the items as CSV, header first.
func WriteItemsCSV(w io.Writer, items []*domain.Item) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, item := range items {
		record := []string{
			item.Date.UTC().Format(time.RFC3339),
			item.Name,
			item.Note,
			item.CategoryName,
			string(item.CategoryType),
			strconv.FormatFloat(item.Quantity, 'f', -1, 64),
			strconv.FormatFloat(item.Price, 'f', -1, 64),
			strconv.FormatFloat(item.Total, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return nil
}
