// Package report renders the admin reports as an Excel workbook.
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/restaurant-management/internal/repository"
)

// Sheet names, in workbook order.
const (
	SheetRevenue = "Revenue"
	SheetPopular = "Popular items"
	SheetBusiest = "Busiest times"
)

// Data is everything the workbook shows.
type Data struct {
	GeneratedAt time.Time
	Revenue     []repository.RevenueRow
	Popular     []repository.PopularItem
	Busiest     []repository.SlotCount
}

// FileName is the download name for a workbook generated at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("restaurant_report_%s.xlsx", t.Format("2006-01-02"))
}

// Build lays the three reports out on their own sheets with a bold header
// row.  The caller owns the returned file and must Close it.
func Build(d Data) (*excelize.File, error) {
	f := excelize.NewFile()

	header, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("money style: %w", err)
	}

	revenue := make([][]any, 0, len(d.Revenue))
	for _, r := range d.Revenue {
		revenue = append(revenue, []any{r.Date, r.OrderType, r.Orders, r.Revenue.InexactFloat64()})
	}
	popular := make([][]any, 0, len(d.Popular))
	for _, p := range d.Popular {
		popular = append(popular, []any{p.Item, p.Orders, p.TotalQuantity})
	}
	busiest := make([][]any, 0, len(d.Busiest))
	for _, s := range d.Busiest {
		busiest = append(busiest, []any{s.TimeSlot, s.Reservations})
	}

	sheets := []struct {
		name     string
		headers  []string
		rows     [][]any
		moneyCol int
	}{
		{SheetRevenue, []string{"Date", "Order type", "Orders", "Revenue"}, revenue, 4},
		{SheetPopular, []string{"Item", "Orders", "Total quantity"}, popular, 0},
		{SheetBusiest, []string{"Time slot", "Reservations"}, busiest, 0},
	}
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				_ = f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := writeSheet(f, s.name, s.headers, s.rows, header, money, s.moneyCol); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %s: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)
	_ = f.SetDocProps(&excelize.DocProperties{
		Title:   "Restaurant report",
		Created: d.GeneratedAt.UTC().Format(time.RFC3339),
	})
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle, moneyStyle, moneyCol int) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if moneyCol > 0 && len(rows) > 0 {
		from, _ := excelize.CoordinatesToCellName(moneyCol, 2)
		to, _ := excelize.CoordinatesToCellName(moneyCol, len(rows)+1)
		if err := f.SetCellStyle(sheet, from, to, moneyStyle); err != nil {
			return err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", lastCol, 20)
}
