package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/tbourn/go-orcamento-backend/internal/proposal"
)

// SheetName is the worksheet written by RenderXLSX.
const SheetName = "Proposta"

var xlsxHeader = []string{
	"Grupo", "Item", "Código", "Quantidade",
	"Valor mensal", "Valor instalação", "Desconto (%)",
	"Total mensal", "Total instalação",
}

// RenderXLSX writes one row per priced line item followed by the totals.
// Unstructured proposals list the scanned equipment without prices.
func RenderXLSX(d Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, err
	}
	brl := `"R$" #,##0.00`
	currency, err := f.NewStyle(&excelize.Style{CustomNumFmt: &brl})
	if err != nil {
		return nil, err
	}

	sw := &sheetWriter{f: f}
	sw.row("Cliente", d.ClientName)
	if d.Address != "" {
		sw.row("Endereço", d.Address)
	}
	sw.row("Emitida em", d.GeneratedAt.Format("02/01/2006 15:04"))
	sw.next++

	headerRow := sw.next
	sw.row(toAny(xlsxHeader)...)
	if err := f.SetCellStyle(SheetName, cell(1, headerRow), cell(len(xlsxHeader), headerRow), bold); err != nil {
		return nil, err
	}

	firstData := sw.next
	if d.Structured() {
		for _, g := range d.Proposal.Groups() {
			for _, it := range g.Items {
				if !it.Priced() {
					continue
				}
				sw.row(
					g.Label, it.Name, it.Code, int(it.Quantity),
					priceCell(it.Monthly), priceCell(it.Installation),
					it.Discount.InexactFloat64(),
					it.MonthlyTotal().Round(2).InexactFloat64(),
					it.InstallationTotal().Round(2).InexactFloat64(),
				)
			}
		}
		lastData := sw.next - 1
		if lastData >= firstData {
			for _, col := range []int{5, 6, 8, 9} {
				if err := f.SetCellStyle(SheetName, cell(col, firstData), cell(col, lastData), currency); err != nil {
					return nil, err
				}
			}
		}

		sw.next++
		totalRow := sw.next
		sw.row("Total", "", "", "", "", "", "",
			d.Totals.Monthly.InexactFloat64(), d.Totals.Installation.InexactFloat64())
		if err := f.SetCellStyle(SheetName, cell(1, totalRow), cell(len(xlsxHeader), totalRow), bold); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(SheetName, cell(8, totalRow), cell(9, totalRow), currency); err != nil {
			return nil, err
		}
		if d.Totals.OnRequest > 0 {
			sw.row(fmt.Sprintf("%d item(ns) sob consulta não incluídos", d.Totals.OnRequest))
		}
	} else {
		for _, e := range d.Equipment {
			sw.row("Equipamentos identificados", e.Name, "", e.Quantity)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 22); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "B", "B", 40); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "C", "I", 16); err != nil {
		return nil, err
	}
	if sw.err != nil {
		return nil, sw.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// priceCell leaves unknown prices blank.
func priceCell(m proposal.Money) any {
	if !m.Known {
		return ""
	}
	return m.Amount.InexactFloat64()
}

type sheetWriter struct {
	f    *excelize.File
	next int
	err  error
}

func (w *sheetWriter) row(vals ...any) {
	if w.next == 0 {
		w.next = 1
	}
	if w.err == nil {
		w.err = w.f.SetSheetRow(SheetName, cell(1, w.next), &vals)
	}
	w.next++
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
