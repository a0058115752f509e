package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-orcamento-backend/internal/observability"
	"github.com/tbourn/go-orcamento-backend/internal/proposal"
)

const (
	pageWidth   = 210.0
	margin      = 15.0
	contentW    = pageWidth - 2*margin
	lineH       = 6.0
	photoWidth  = 85.0
	fontFamily  = "Helvetica"
	onRequestPT = "Sob consulta"
)

// item table columns: name, code, qty, monthly, installation, discount
var colWidths = []float64{66, 22, 12, 28, 30, 22}

// RenderPDF draws d. A photo that cannot be fetched or decoded is logged and
// left out; it never aborts the document.
func RenderPDF(ctx context.Context, d Document, photos PhotoSource) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(tr("Proposta comercial - "+d.ClientName), false)
	pdf.SetAuthor(tr(d.Company), false)
	pdf.AliasNbPages("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFillColor(24, 52, 92)
		pdf.Rect(0, 0, pageWidth, 22, "F")
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont(fontFamily, "B", 15)
		pdf.SetXY(margin, 6)
		pdf.CellFormat(contentW/2, 10, tr(d.Company), "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 10)
		pdf.CellFormat(contentW/2, 10, tr("Proposta comercial"), "", 0, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetY(28)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Página %d/{nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()
	w := &pdfWriter{pdf: pdf, tr: tr}
	w.clientBlock(d)

	if d.Structured() {
		p := d.Proposal
		if s := strings.TrimSpace(p.Summary); s != "" {
			w.heading("Resumo")
			w.paragraph(s)
		}
		for _, g := range p.Groups() {
			if len(g.Items) > 0 {
				w.itemTable(g)
			}
		}
		w.totals(d.Totals)
		if len(p.Ambients) > 0 {
			w.ambients(p.Ambients)
		}
		if s := strings.TrimSpace(p.Notes); s != "" {
			w.heading("Observações")
			w.paragraph(s)
		}
		w.photoAppendix(ctx, p.Photos(), photos)
	} else {
		w.heading("Proposta")
		w.paragraph(d.Raw)
		if len(d.Equipment) > 0 {
			w.heading("Equipamentos identificados")
			for _, e := range d.Equipment {
				w.paragraph(fmt.Sprintf("%dx %s", e.Quantity, e.Name))
			}
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (w *pdfWriter) heading(s string) {
	w.pdf.Ln(3)
	w.pdf.SetFont(fontFamily, "B", 12)
	w.pdf.SetTextColor(24, 52, 92)
	w.pdf.CellFormat(contentW, 8, w.tr(s), "B", 1, "L", false, 0, "")
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.Ln(1)
}

func (w *pdfWriter) paragraph(s string) {
	w.pdf.SetFont(fontFamily, "", 10)
	w.pdf.MultiCell(contentW, 5, w.tr(s), "", "L", false)
}

func (w *pdfWriter) clientBlock(d Document) {
	w.pdf.SetFont(fontFamily, "B", 11)
	w.pdf.CellFormat(contentW, lineH, w.tr("Cliente: "+d.ClientName), "", 1, "L", false, 0, "")
	w.pdf.SetFont(fontFamily, "", 10)
	if d.Address != "" {
		w.pdf.CellFormat(contentW, lineH, w.tr("Endereço: "+d.Address), "", 1, "L", false, 0, "")
	}
	info := "Emitida em " + d.GeneratedAt.Format("02/01/2006 15:04")
	if d.Version > 0 {
		info += " - versão " + strconv.Itoa(d.Version)
	}
	w.pdf.CellFormat(contentW, lineH, w.tr(info), "", 1, "L", false, 0, "")
}

func money(m proposal.Money) string {
	if !m.Known {
		return onRequestPT
	}
	return proposal.FormatBRL(m.Amount)
}

func (w *pdfWriter) itemTable(g proposal.Group) {
	w.heading(g.Label)
	header := []string{"Item", "Código", "Qtd", "Mensal", "Instalação", "Desconto"}
	w.pdf.SetFont(fontFamily, "B", 9)
	w.pdf.SetFillColor(221, 235, 247)
	for i, h := range header {
		w.pdf.CellFormat(colWidths[i], 7, w.tr(h), "1", 0, "C", true, 0, "")
	}
	w.pdf.Ln(-1)

	w.pdf.SetFont(fontFamily, "", 9)
	for _, it := range g.Items {
		disc := "-"
		if !it.Discount.IsZero() {
			disc = it.Discount.StringFixed(1) + "%"
		}
		cells := []string{it.Name, it.Code, strconv.Itoa(int(it.Quantity)), money(it.Monthly), money(it.Installation), disc}
		aligns := []string{"L", "C", "C", "R", "R", "C"}
		for i, c := range cells {
			w.pdf.CellFormat(colWidths[i], 6, w.tr(clip(c, 40)), "1", 0, aligns[i], false, 0, "")
		}
		w.pdf.Ln(-1)
	}
}

func (w *pdfWriter) totals(t proposal.Totals) {
	w.heading("Totais")
	w.pdf.SetFont(fontFamily, "", 10)
	for _, g := range t.Groups {
		if g.Items == 0 {
			continue
		}
		w.totalRow(g.Label, proposal.FormatBRL(g.Monthly), proposal.FormatBRL(g.Installation))
	}
	w.pdf.SetFont(fontFamily, "B", 11)
	w.totalRow("Total", proposal.FormatBRL(t.Monthly), proposal.FormatBRL(t.Installation))
	if t.OnRequest > 0 {
		w.pdf.SetFont(fontFamily, "I", 9)
		w.pdf.CellFormat(contentW, lineH, w.tr(fmt.Sprintf("%d item(ns) com valor sob consulta, não incluídos nos totais.", t.OnRequest)), "", 1, "L", false, 0, "")
	}
}

func (w *pdfWriter) totalRow(label, monthly, installation string) {
	w.pdf.CellFormat(80, lineH, w.tr(label), "", 0, "L", false, 0, "")
	w.pdf.CellFormat(50, lineH, w.tr("Mensal "+monthly), "", 0, "R", false, 0, "")
	w.pdf.CellFormat(50, lineH, w.tr("Instalação "+installation), "", 1, "R", false, 0, "")
}

func (w *pdfWriter) ambients(as []proposal.Ambient) {
	w.heading("Ambientes")
	for _, a := range as {
		w.pdf.SetFont(fontFamily, "B", 10)
		w.pdf.CellFormat(contentW, lineH, w.tr(a.Name), "", 1, "L", false, 0, "")
		if a.Description != "" {
			w.paragraph(a.Description)
		}
		w.pdf.SetFont(fontFamily, "", 10)
		for _, e := range a.Equipment {
			w.pdf.CellFormat(contentW, 5, w.tr("  - "+e), "", 1, "L", false, 0, "")
		}
		w.pdf.Ln(1)
	}
}

func (w *pdfWriter) photoAppendix(ctx context.Context, names []string, src PhotoSource) {
	if len(names) == 0 || src == nil {
		return
	}
	started := false
	for i, name := range names {
		img, err := loadPhoto(ctx, src, name)
		if err != nil {
			observability.IncImageSkipped()
			log.Warn().Err(err).Str("photo", name).Msg("photo omitted from pdf")
			continue
		}
		if !started {
			w.pdf.AddPage()
			w.heading("Anexo fotográfico")
			started = true
		}
		id := "photo-" + strconv.Itoa(i)
		w.pdf.RegisterImageOptionsReader(id, fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(img))
		if !w.pdf.Ok() {
			w.pdf.ClearError()
			observability.IncImageSkipped()
			log.Warn().Str("photo", name).Msg("photo rejected by pdf encoder")
			continue
		}
		w.pdf.ImageOptions(id, margin, w.pdf.GetY(), photoWidth, 0, true, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
		w.pdf.SetFont(fontFamily, "I", 8)
		w.pdf.CellFormat(contentW, 5, w.tr(name), "", 1, "L", false, 0, "")
		w.pdf.Ln(2)
	}
}

// loadPhoto fetches a photo and re-encodes it as baseline JPEG so every
// decodable format embeds the same way.
func loadPhoto(ctx context.Context, src PhotoSource, name string) ([]byte, error) {
	raw, err := src.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
