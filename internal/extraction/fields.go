package extraction

// BoxFields are read from a box label. Every field is optional.
type BoxFields struct {
	OrderID       string   `json:"order_id,omitempty"`
	ShipmentID    string   `json:"shipment_id,omitempty"`
	SubRoute      string   `json:"sub_route,omitempty"`
	PostalCode    string   `json:"postal_code,omitempty"`
	RecipientName string   `json:"recipient_name,omitempty"`
	BoxIndex      *int     `json:"box_index,omitempty"`
	BoxTotal      *int     `json:"box_total,omitempty"`
	ItemCount     *int     `json:"item_count,omitempty"`
	WeightKg      *float64 `json:"weight_kg,omitempty"`
}

// NoteFields are read from an invoice or delivery note and carry the full address
type NoteFields struct {
	OrderID       string           `json:"order_id,omitempty"`
	ShipmentID    string           `json:"shipment_id,omitempty"`
	SubRoute      string           `json:"sub_route,omitempty"`
	RecipientName string           `json:"recipient_name"`
	Address       string           `json:"address"`
	Number        string           `json:"number"`
	Complement    string           `json:"complement"`
	Neighborhood  string           `json:"neighborhood"`
	City          string           `json:"city"`
	State         string           `json:"state"`
	PostalCode    string           `json:"postal_code"`
	Phone         string           `json:"phone,omitempty"`
	Reference     string           `json:"reference,omitempty"`
	Supplier      Supplier         `json:"supplier"`
	Confidence    float64          `json:"confidence"`
	Ambiguities   []AmbiguousField `json:"ambiguities,omitempty"`
}

// AmbiguousField records a candidate that failed validation and was left out.
// It is reported as data, never returned as an error.
type AmbiguousField struct {
	Field     Field  `json:"field"`
	Candidate string `json:"candidate"`
	Reason    string `json:"reason"`
}
