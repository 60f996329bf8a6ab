package export

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"
)

// PDF renders line items as a paginated A4 document. Rows keep the same
// order and columns as the spreadsheet output.
type PDF struct{}

func (PDF) Generate(items []LineItem, p Params) ([]byte, error) {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(20, 10, 20)

	title := documentTitle(p)
	m.RegisterHeader(func() {
		m.Row(10, func() {
			m.Col(12, func() {
				m.Text(title, props.Text{
					Top:   3,
					Style: consts.Bold,
					Align: consts.Center,
					Size:  16,
				})
			})
		})
		m.Row(10, func() {
			m.Col(12, func() {
				m.Text(time.Now().Format("2006-01-02"), props.Text{
					Top:   3,
					Style: consts.Normal,
					Align: consts.Center,
					Size:  12,
				})
			})
		})
	})

	withClient := withClientColumn(items)
	headers := headerRow(p.Labels, withClient)

	rows := [][]string{}
	for _, item := range items {
		rows = append(rows, itemRow(item, p, withClient))
	}

	grid := []uint{2, 3, 3, 2, 2}
	if withClient {
		grid = []uint{2, 2, 3, 2, 1, 2}
	}

	m.TableList(headers, rows, props.TableList{
		HeaderProp: props.TableListContent{
			Size:      10,
			GridSizes: grid,
		},
		ContentProp: props.TableListContent{
			Size:      10,
			GridSizes: grid,
		},
		Align:                consts.Center,
		AlternatedBackground: &color.Color{Red: 240, Green: 240, Blue: 240},
		HeaderContentSpace:   1,
		Line:                 false,
	})

	sum := total(items)
	summaryRow := func(label, value string) {
		m.Row(8, func() {
			m.Col(12, func() {
				m.Text(fmt.Sprintf("%s: %s", label, value), props.Text{
					Top:   2,
					Style: consts.Bold,
					Align: consts.Right,
					Size:  11,
				})
			})
		})
	}

	summaryRow(p.Labels.Total, FormatAmount(sum, p.Currency, p.Locale))
	if p.VAT != nil {
		vat := vatAmount(sum, *p.VAT)
		summaryRow(fmt.Sprintf("%s (%g%%)", p.Labels.VAT, *p.VAT), FormatAmount(vat, p.Currency, p.Locale))
		summaryRow(p.Labels.Total, FormatAmount(sum.Add(vat), p.Currency, p.Locale))
	}

	if p.Signature != "" {
		m.Row(20, func() {
			m.Col(12, func() {
				m.Text(fmt.Sprintf("%s: %s", p.Labels.Signature, p.Signature), props.Text{
					Top:   10,
					Style: consts.Italic,
					Align: consts.Left,
					Size:  10,
				})
			})
		})
	}

	buf, err := m.Output()
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
