package payroll

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	monthlySheet   = "Monthly"
	quarterlySheet = "Quarterly"
	// built-in number format "#,##0.00"
	amountNumFmt = 4
)

var (
	monthlyHeaders   = []string{"941 Payments", "SS WH", "Medicare WH", "Fed WH", "SE WH", "TOTAL"}
	quarterlyHeaders = []string{"941 Form Info", "Total SS", "Total Medicare", "Total Fed", "FICA Pay", "Total Pay"}
	quarterNames     = []string{"1st Quarter", "2nd Quarter", "3rd Quarter", "4th Quarter"}
)

// WriteForm941Workbook writes the monthly and quarterly 941 tables as an
// xlsx workbook with one sheet each.
func WriteForm941Workbook(w io.Writer, form Form941) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", monthlySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(quarterlySheet); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt})
	if err != nil {
		return err
	}

	monthly := make([][]any, 0, len(form.Months))
	for _, m := range form.Months {
		monthly = append(monthly, []any{m.Name, m.SocialSecurity, m.Medicare, m.Federal, m.SelfEmployment, m.Total})
	}
	if err := writeTable(f, monthlySheet, monthlyHeaders, monthly, style); err != nil {
		return err
	}

	quarterly := make([][]any, 0, len(form.Quarters))
	for _, q := range form.Quarters {
		name := fmt.Sprintf("Quarter %d", q.Quarter)
		if q.Quarter >= 1 && q.Quarter <= len(quarterNames) {
			name = quarterNames[q.Quarter-1]
		}
		quarterly = append(quarterly, []any{name, q.TotalSocialSecurity, q.TotalMedicare, q.TotalFederal, q.FICAPay, q.TotalPay})
	}
	if err := writeTable(f, quarterlySheet, quarterlyHeaders, quarterly, style); err != nil {
		return err
	}

	return f.Write(w)
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]any, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if amount, ok := value.(decimal.Decimal); ok {
				value = amount.InexactFloat64()
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	if len(rows) == 0 {
		return nil
	}
	first, err := excelize.CoordinatesToCellName(2, 2)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), len(rows)+1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}
