package service

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"github.com/phdlabs/admind/internal/model"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Exporter writes a document of type T in one file format.
type Exporter[T any] struct {
	ContentType string
	Extension   string
	Write       func(w io.Writer, doc *T) error
}

// ReportExporters are the download formats of readiness reports.
var ReportExporters = map[string]Exporter[model.Report]{
	"pdf":   {ContentType: "application/pdf", Extension: ".pdf", Write: WriteReportPDF},
	"excel": {ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Extension: ".xlsx", Write: WriteReportExcel},
}

// PolicyExporters are the download formats of policies.
var PolicyExporters = map[string]Exporter[model.Policy]{
	"pdf": {ContentType: "application/pdf", Extension: ".pdf", Write: WritePolicyPDF},
	"md":  {ContentType: "text/markdown; charset=utf-8", Extension: ".md", Write: WritePolicyMarkdown},
}

// LookupExporter returns the exporter registered for format.
func LookupExporter[T any](exporters map[string]Exporter[T], format string) (Exporter[T], error) {
	e, ok := exporters[strings.ToLower(format)]
	if !ok {
		return Exporter[T]{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return e, nil
}

// ---------------------------------------------------------------------------
// PDF
// ---------------------------------------------------------------------------

type pdfDoc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDF(title string) *pdfDoc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("admind", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	d := &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	d.heading(title, 18)
	return d
}

func (d *pdfDoc) heading(text string, size float64) {
	d.pdf.SetFont("Helvetica", "B", size)
	d.pdf.MultiCell(0, size*0.5, d.tr(text), "", "L", false)
	d.pdf.Ln(2)
}

func (d *pdfDoc) para(text string) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(0, 5, d.tr(text), "", "L", false)
	d.pdf.Ln(2)
}

func (d *pdfDoc) bullets(items []string) {
	d.pdf.SetFont("Helvetica", "", 10)
	for _, it := range items {
		d.pdf.MultiCell(0, 5, d.tr("- "+it), "", "L", false)
	}
	d.pdf.Ln(2)
}

func (d *pdfDoc) output(w io.Writer) error {
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return d.pdf.Output(w)
}

// WriteReportPDF renders a readiness report as PDF.
func WriteReportPDF(w io.Writer, r *model.Report) error {
	d := newPDF(r.Title)
	d.para(fmt.Sprintf("Overall score: %.1f / %.0f (%s readiness)", r.OverallScore, r.MaxScore, r.Level))
	d.para("Generated " + r.CreatedAt.Format("2 January 2006"))

	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetFillColor(230, 230, 230)
	for _, col := range []struct {
		title string
		width float64
	}{{"Domain", 90}, {"Score", 30}, {"Status", 50}} {
		d.pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", true, 0, "")
	}
	d.pdf.Ln(-1)
	d.pdf.SetFont("Helvetica", "", 10)
	for _, ds := range r.Domains {
		d.pdf.CellFormat(90, 7, d.tr(ds.Title), "1", 0, "L", false, 0, "")
		d.pdf.CellFormat(30, 7, fmt.Sprintf("%.1f / %.0f", ds.Score, ds.MaxScore), "1", 0, "R", false, 0, "")
		d.pdf.CellFormat(50, 7, ds.Status, "1", 0, "L", false, 0, "")
		d.pdf.Ln(-1)
	}
	d.pdf.Ln(4)

	for _, ds := range r.Domains {
		d.heading(ds.Title, 13)
		if len(ds.Gaps) > 0 {
			d.heading("Gaps", 11)
			d.bullets(ds.Gaps)
		}
		if len(ds.Recommendations) > 0 {
			d.heading("Recommendations", 11)
			d.bullets(ds.Recommendations)
		}
	}
	return d.output(w)
}

// WritePolicyPDF renders a policy as PDF.
func WritePolicyPDF(w io.Writer, p *model.Policy) error {
	d := newPDF(p.Title)
	d.para(fmt.Sprintf("Sector: %s | Organization: %s | Risk appetite: %s | Timeline: %s",
		p.Sector, p.OrganizationSize, p.RiskAppetite, p.Timeline))
	d.para(fmt.Sprintf("Version %d, %s", p.Version, p.Status))

	d.heading("Executive Summary", 14)
	d.para(p.ExecutiveSummary)

	for _, s := range p.Sections {
		d.heading(s.ID+". "+s.Title, 14)
		d.para(s.Content)
		if s.Rationale != "" {
			d.pdf.SetFont("Helvetica", "I", 9)
			d.pdf.MultiCell(0, 5, d.tr("Rationale: "+s.Rationale), "", "L", false)
			d.pdf.Ln(1)
		}
		if len(s.References) > 0 {
			d.bullets(s.References)
		}
	}
	return d.output(w)
}

// ---------------------------------------------------------------------------
// Excel
// ---------------------------------------------------------------------------

// WriteReportExcel renders a readiness report as a workbook with a summary
// sheet and one sheet listing every gap and recommendation.
func WriteReportExcel(w io.Writer, r *model.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary, findings = "Summary", "Findings"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}
	if _, err := f.NewSheet(findings); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Report", r.Title},
		{"Overall score", r.OverallScore},
		{"Max score", r.MaxScore},
		{"Level", r.Level},
		{"Generated", r.CreatedAt.Format("2006-01-02 15:04")},
		{},
		{"Domain", "Score", "Max score", "Percent", "Status"},
	}
	for _, ds := range r.Domains {
		rows = append(rows, []interface{}{ds.Title, ds.Score, ds.MaxScore, ds.Percent(), ds.Status})
	}
	if err := writeRows(f, summary, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(summary, "A7", "E7", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(summary, "A", "A", 36); err != nil {
		return err
	}

	rows = [][]interface{}{{"Domain", "Type", "Finding"}}
	for _, ds := range r.Domains {
		for _, g := range ds.Gaps {
			rows = append(rows, []interface{}{ds.Title, "Gap", g})
		}
		for _, rec := range ds.Recommendations {
			rows = append(rows, []interface{}{ds.Title, "Recommendation", rec})
		}
	}
	if err := writeRows(f, findings, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(findings, "A1", "C1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(findings, "A", "A", 36); err != nil {
		return err
	}
	if err := f.SetColWidth(findings, "C", "C", 90); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Markdown
// ---------------------------------------------------------------------------

// WritePolicyMarkdown renders a policy as a Markdown document.
func WritePolicyMarkdown(w io.Writer, p *model.Policy) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	fmt.Fprintf(&b, "| Sector | Organization size | Risk appetite | Timeline | Status | Version |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %d |\n\n",
		p.Sector, p.OrganizationSize, p.RiskAppetite, p.Timeline, p.Status, p.Version)
	fmt.Fprintf(&b, "## Executive Summary\n\n%s\n", p.ExecutiveSummary)
	for _, s := range p.Sections {
		fmt.Fprintf(&b, "\n## %s. %s\n\n%s\n", s.ID, s.Title, s.Content)
		if s.Rationale != "" {
			fmt.Fprintf(&b, "\n*Rationale: %s*\n", s.Rationale)
		}
		if len(s.References) > 0 {
			b.WriteString("\nReferences:\n\n")
			for _, ref := range s.References {
				fmt.Fprintf(&b, "- %s\n", ref)
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
