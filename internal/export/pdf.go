/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"chatters/internal/domain"
	applog "chatters/internal/log"
	"chatters/internal/telemetry"
)

// Page geometry in points. Plans are drawn 1 px = 1 pt.
const (
	pageMargin   = 36.0
	headerHeight = 28.0

	cardPageW   = 595.28 // A4
	cardPageH   = 841.89
	cardCols    = 2
	cardRows    = 3
	cardW       = 250.0
	cardH       = 240.0
	cardGap     = 20.0
	cardQRSize  = 140.0
	cardPadding = 12.0
)

// PDFOptions controls PDF export.
type PDFOptions struct {
	// QRCards appends one printable card per table with a QR code linking to
	// the guest feedback page. Requires FeedbackBaseURL.
	QRCards         bool
	FeedbackBaseURL string
	IncludeGrid     bool
	GridStep        float64
}

// RGB is an 8-bit color used by the drawing helpers.
type RGB struct{ R, G, B uint8 }

var (
	colorOutline = RGB{120, 120, 120}
	colorGrid    = RGB{225, 225, 225}
	colorTable   = RGB{232, 240, 250}
	colorStroke  = RGB{30, 30, 30}
)

// WritePDF writes one page per section of p to path, plus QR table cards
// when requested.
func WritePDF(path string, p Plan, opt PDFOptions) error {
	if !p.Container.Valid() {
		return domain.ErrInvalidContainer
	}
	if opt.QRCards && opt.FeedbackBaseURL == "" {
		return fmt.Errorf("pdf: qr cards need a feedback base url")
	}
	pageW := p.Container.W + 2*pageMargin
	pageH := p.Container.H + 2*pageMargin + headerHeight

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetTitle(fmt.Sprintf("%s floor plan", p.VenueName), true)
	pdf.SetAuthor("Chatters", false)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	sections := p.Sections()
	for _, sec := range sections {
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: pageW, Ht: pageH})
		drawSection(pdf, tr, p, sec, opt)
	}

	if opt.QRCards {
		var all []domain.Table
		for _, sec := range sections {
			all = append(all, sec.Tables...)
		}
		if err := drawCards(pdf, tr, p, all, opt.FeedbackBaseURL); err != nil {
			return err
		}
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	applog.WithComponent("export").Debug("pdf written", slog.String("path", path), slog.Int("tables", len(p.Tables)))
	telemetry.LayoutExported("pdf", len(p.Tables))
	return nil
}

func drawSection(pdf *gofpdf.Fpdf, tr func(string) string, p Plan, sec Section, opt PDFOptions) {
	ox := pageMargin
	oy := pageMargin + headerHeight

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	title := sec.Title
	if p.VenueName != "" && title != p.VenueName {
		title = p.VenueName + " / " + title
	}
	pdf.Text(ox, pageMargin+14, tr(title))

	if opt.IncludeGrid {
		step := opt.GridStep
		if step <= 0 {
			step = 50
		}
		setDrawColor(pdf, colorGrid)
		pdf.SetLineWidth(0.3)
		for x := step; x < p.Container.W; x += step {
			pdf.Line(ox+x, oy, ox+x, oy+p.Container.H)
		}
		for y := step; y < p.Container.H; y += step {
			pdf.Line(ox, oy+y, ox+p.Container.W, oy+y)
		}
	}

	setDrawColor(pdf, colorOutline)
	pdf.SetLineWidth(0.8)
	pdf.Rect(ox, oy, p.Container.W, p.Container.H, "D")

	setDrawColor(pdf, colorStroke)
	setFillColor(pdf, colorTable)
	pdf.SetLineWidth(1)
	pdf.SetFont("Helvetica", "B", 11)
	for _, t := range sec.Tables {
		x, y := ox+t.X, oy+t.Y
		if t.Shape == domain.ShapeCircle {
			pdf.Ellipse(x+t.Width/2, y+t.Height/2, t.Width/2, t.Height/2, 0, "FD")
		} else {
			pdf.Rect(x, y, t.Width, t.Height, "FD")
		}
		label := tr(t.Number)
		lw := pdf.GetStringWidth(label)
		pdf.Text(x+(t.Width-lw)/2, y+t.Height/2+4, label)
	}
}

func drawCards(pdf *gofpdf.Fpdf, tr func(string) string, p Plan, tables []domain.Table, base string) error {
	perPage := cardCols * cardRows
	left := (cardPageW - cardCols*cardW - (cardCols-1)*cardGap) / 2
	top := (cardPageH - cardRows*cardH - (cardRows-1)*cardGap) / 2
	for i, t := range tables {
		if i%perPage == 0 {
			pdf.AddPageFormat("P", gofpdf.SizeType{Wd: cardPageW, Ht: cardPageH})
		}
		pos := i % perPage
		x := left + float64(pos%cardCols)*(cardW+cardGap)
		y := top + float64(pos/cardCols)*(cardH+cardGap)
		if err := drawCard(pdf, tr, p, t, base, i, x, y); err != nil {
			return fmt.Errorf("card for table %q: %w", t.Number, err)
		}
	}
	return nil
}

func drawCard(pdf *gofpdf.Fpdf, tr func(string) string, p Plan, t domain.Table, base string, idx int, x, y float64) error {
	link, err := FeedbackURL(base, p.VenueID, t)
	if err != nil {
		return err
	}
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("qr code: %w", err)
	}
	name := fmt.Sprintf("qr-%d", idx)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))

	setDrawColor(pdf, colorOutline)
	pdf.SetLineWidth(0.5)
	pdf.Rect(x, y, cardW, cardH, "D")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(x+cardPadding, y+cardPadding)
	pdf.CellFormat(cardW-2*cardPadding, 12, tr(p.VenueName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetX(x + cardPadding)
	pdf.CellFormat(cardW-2*cardPadding, 20, tr("Table "+t.Number), "", 1, "C", false, 0, "")

	qx := x + (cardW-cardQRSize)/2
	qy := y + cardPadding + 36
	pdf.ImageOptions(name, qx, qy, cardQRSize, cardQRSize, false, opts, 0, link)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.SetXY(x+cardPadding, qy+cardQRSize+6)
	pdf.CellFormat(cardW-2*cardPadding, 12, "Scan to tell us how we did", "", 1, "C", false, 0, "")
	if zone := p.ZoneName(t.ZoneID); zone != "" {
		pdf.SetX(x + cardPadding)
		pdf.CellFormat(cardW-2*cardPadding, 12, tr(zone), "", 1, "C", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	return nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c RGB) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c RGB) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
