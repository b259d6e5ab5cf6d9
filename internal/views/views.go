// Package views renders the front end's pages. Every view writes into a
// render target chosen by the caller; none of them keeps state.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"slices"

	"github.com/pigeonworks-llc/billed/pkg/bills"
)

// ModalWidth is the width of the receipt modal in pixels.
const ModalWidth = 800

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Document is a render target: the body of one HTML page, built up by views
// and containers, then written out in full.
type Document struct {
	title string
	body  bytes.Buffer
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{}
}

// Replace renders a view as the whole body, discarding what was there.
func (d *Document) Replace(render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	d.body = buf
	return nil
}

// Append renders a view after the current body, as overlays are.
func (d *Document) Append(render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	d.body.Write(buf.Bytes())
	return nil
}

// SetTitle sets the page title.
func (d *Document) SetTitle(title string) {
	d.title = title
}

// Title returns the page title.
func (d *Document) Title() string {
	return d.title
}

// Body returns the current body markup.
func (d *Document) Body() string {
	return d.body.String()
}

// WriteTo writes the complete HTML page.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "page", struct {
		Title      string
		Body       template.HTML
		ModalWidth int
	}{
		Title:      d.title,
		Body:       template.HTML(d.body.String()),
		ModalWidth: ModalWidth,
	})
	if err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

// Loading renders the loading page.
func Loading(w io.Writer) error {
	return templates.ExecuteTemplate(w, "loading", nil)
}

// Error renders the error page with message shown verbatim.
func Error(w io.Writer, message string) error {
	return templates.ExecuteTemplate(w, "error", message)
}

// BillRow is one line of the bills table.
type BillRow struct {
	Bill bills.Bill
	// DisplayDate replaces the ISO date in the table when set.
	DisplayDate string
}

// Date is the text of the date column.
func (r BillRow) Date() string {
	if r.DisplayDate != "" {
		return r.DisplayDate
	}
	return r.Bill.Date
}

// Status is the text of the status column.
func (r BillRow) Status() string {
	return bills.FormatStatus(r.Bill.Status)
}

// BillsPage is the data of the bills page.
type BillsPage struct {
	Rows    []BillRow
	Loading bool
	Error   string
	Email   string // viewer; only their pending bills get an edit link
}

// Bills renders the bills page. An error takes precedence over loading, and
// loading over the table. Rows are shown latest first.
func Bills(w io.Writer, page BillsPage) error {
	switch {
	case page.Error != "":
		return Error(w, page.Error)
	case page.Loading:
		return Loading(w)
	}

	return templates.ExecuteTemplate(w, "bills", struct {
		Rows  []BillRow
		Email string
	}{
		Rows:  SortRows(page.Rows),
		Email: page.Email,
	})
}

// SortRows orders rows with bills.ByDateDesc, keeping the order of equal dates.
func SortRows(rows []BillRow) []BillRow {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b BillRow) int {
		return bills.ByDateDesc(a.Bill, b.Bill)
	})
	return sorted
}
