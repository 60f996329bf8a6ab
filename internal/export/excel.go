package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Excel renders line items as an xlsx workbook.
type Excel struct{}

func (Excel) Generate(items []LineItem, p Params) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	withClient := withClientColumn(items)

	if err := f.SetSheetRow(sheet, "A1", rowValues(documentTitle(p))); err != nil {
		return nil, fmt.Errorf("write title: %w", err)
	}

	headers := headerRow(p.Labels, withClient)
	if err := f.SetSheetRow(sheet, "A3", rowValues(headers...)); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, fmt.Errorf("resolve last column: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"3", bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	row := 4
	for _, item := range items {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, fmt.Errorf("resolve cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, rowValues(itemRow(item, p, withClient)...)); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}

	row++
	sum := total(items)
	summary := [][2]string{
		{p.Labels.Total, FormatAmount(sum, p.Currency, p.Locale)},
	}
	if p.VAT != nil {
		vat := vatAmount(sum, *p.VAT)
		summary = append(summary,
			[2]string{fmt.Sprintf("%s (%g%%)", p.Labels.VAT, *p.VAT), FormatAmount(vat, p.Currency, p.Locale)},
			[2]string{p.Labels.Total, FormatAmount(sum.Add(vat), p.Currency, p.Locale)},
		)
	}

	for _, line := range summary {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, fmt.Errorf("resolve cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, rowValues(line[0], line[1])); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
		row++
	}

	if p.Signature != "" {
		row++
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, fmt.Errorf("resolve cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, rowValues(p.Labels.Signature, p.Signature)); err != nil {
			return nil, fmt.Errorf("write signature: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func rowValues(values ...string) *[]interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return &row
}
