package scanning

import "context"

// Document is what an OCR collaborator returns for one photographed label or invoice
type Document struct {
	RawText string `json:"raw_text"`
	Hints   *Hints `json:"hints,omitempty"`
}

// Hints are structured values the OCR engine was able to read directly.
// A non-empty hint wins over the regex-extracted value for the same field.
type Hints struct {
	Address       *AddressHints `json:"address,omitempty"`
	RecipientName string        `json:"recipient_name,omitempty"`
	Box           *BoxHints     `json:"box_hints,omitempty"`
}

// AddressHints holds address parts read from a shipping label or DANFE
type AddressHints struct {
	PostalCode   string `json:"postal_code,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
}

// BoxHints holds identifiers printed on a box label
type BoxHints struct {
	OrderID    string   `json:"order_id,omitempty"`
	ShipmentID string   `json:"shipment_id,omitempty"`
	SubRoute   string   `json:"sub_route,omitempty"`
	BoxIndex   *int     `json:"box_index,omitempty"`
	BoxTotal   *int     `json:"box_total,omitempty"`
	ItemCount  *int     `json:"item_count,omitempty"`
	WeightKg   *float64 `json:"weight_kg,omitempty"`
}

// Scanner defines the interface for OCR collaborators
type Scanner interface {
	// Scan reads an image/PDF and returns its raw text plus any structured hints
	Scan(ctx context.Context, imageData []byte, contentType string) (*Document, error)
	// Close closes the scanner and releases resources
	Close() error
}
