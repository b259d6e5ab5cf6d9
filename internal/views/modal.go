package views

import "io"

// Icon is the eye icon of a bills table row, as clicked by the employee.
type Icon struct {
	// BillURL is the data-bill-url attribute: the receipt URL, possibly empty
	// or the literal "null".
	BillURL string
}

// ModalData is the receipt preview.
type ModalData struct {
	URL   string // empty shows the placeholder
	Width int
}

// Modal renders the receipt modal overlay.
func Modal(w io.Writer, data ModalData) error {
	return templates.ExecuteTemplate(w, "modal", data)
}
