package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zombor/cargo-match/internal/scanning"
)

// Extractor turns OCR documents into field bundles. It holds only read-only
// tables and is safe for concurrent use.
type Extractor struct {
	cities *CityTable
}

// NewExtractor creates an Extractor; a nil table means the built-in one
func NewExtractor(cities *CityTable) *Extractor {
	if cities == nil {
		cities = DefaultCityTable()
	}
	return &Extractor{cities: cities}
}

var reVolumeParts = regexp.MustCompile(`(?i)(\d{1,3})\s*(?:/|DE)\s*(\d{1,3})`)

// ExtractBox reads the reduced box-label field set
func (e *Extractor) ExtractBox(doc scanning.Document) BoxFields {
	text := Normalize(doc.RawText)

	var f BoxFields
	f.OrderID, _ = ExtractField(FieldOrderID, text)
	f.ShipmentID, _ = ExtractField(FieldShipmentID, text)
	f.SubRoute, _ = ExtractField(FieldSubRoute, text)
	f.PostalCode, _ = ExtractField(FieldPostalCode, text)
	f.RecipientName, _ = ExtractField(FieldRecipient, text)

	if v, ok := ExtractField(FieldVolume, text); ok {
		if m := reVolumeParts.FindStringSubmatch(v); m != nil {
			f.BoxIndex = atoiPtr(m[1])
			f.BoxTotal = atoiPtr(m[2])
		}
	} else if v, ok := ExtractField(FieldVolumeTotal, text); ok {
		f.BoxTotal = atoiPtr(v)
	}
	if v, ok := ExtractField(FieldItemCount, text); ok {
		f.ItemCount = atoiPtr(v)
	}
	if v, ok := ExtractField(FieldWeight, text); ok {
		if kg, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64); err == nil {
			f.WeightKg = &kg
		}
	}

	if doc.Hints != nil {
		applyBoxHints(&f, doc.Hints)
	}
	return f
}

func applyBoxHints(f *BoxFields, h *scanning.Hints) {
	if h.RecipientName != "" {
		f.RecipientName = h.RecipientName
	}
	if h.Address != nil && h.Address.PostalCode != "" {
		f.PostalCode = FormatCEP(h.Address.PostalCode)
	}
	b := h.Box
	if b == nil {
		return
	}
	if b.OrderID != "" {
		f.OrderID = b.OrderID
	}
	if b.ShipmentID != "" {
		f.ShipmentID = b.ShipmentID
	}
	if b.SubRoute != "" {
		f.SubRoute = strings.ToUpper(b.SubRoute)
	}
	if b.BoxIndex != nil {
		f.BoxIndex = b.BoxIndex
	}
	if b.BoxTotal != nil {
		f.BoxTotal = b.BoxTotal
	}
	if b.ItemCount != nil {
		f.ItemCount = b.ItemCount
	}
	if b.WeightKg != nil {
		f.WeightKg = b.WeightKg
	}
}

// ExtractNote reads the full address bundle, corrects the city against the
// known-city table, keeps only a CEP consistent with that city and scores
// the result.
func (e *Extractor) ExtractNote(doc scanning.Document) NoteFields {
	text := Normalize(doc.RawText)
	upper := strings.ToUpper(text)

	h := doc.Hints
	if h == nil {
		h = &scanning.Hints{}
	}
	addr := h.Address
	if addr == nil {
		addr = &scanning.AddressHints{}
	}
	box := h.Box
	if box == nil {
		box = &scanning.BoxHints{}
	}

	var f NoteFields
	f.OrderID = firstNonEmpty(box.OrderID, field(FieldOrderID, text))
	f.ShipmentID = firstNonEmpty(box.ShipmentID, field(FieldShipmentID, text))
	f.SubRoute = strings.ToUpper(firstNonEmpty(box.SubRoute, field(FieldSubRoute, text)))
	f.RecipientName = firstNonEmpty(h.RecipientName, field(FieldRecipient, text))

	street, number, complement := "", "", ""
	if line, ok := ExtractField(FieldStreetLine, text); ok {
		street, number, complement = splitStreetLine(line)
	}
	f.Address = firstNonEmpty(addr.Street, street)
	f.Number = firstNonEmpty(addr.Number, field(FieldNumber, text), number)
	f.Complement = firstNonEmpty(addr.Complement, field(FieldComplement, text), complement)
	f.Neighborhood = firstNonEmpty(addr.Neighborhood, field(FieldNeighborhood, text))
	f.Phone = field(FieldPhone, text)
	f.Reference = field(FieldReference, text)
	f.Supplier = DetectSupplier(upper)

	city, known := e.resolveCity(&f, addr.City, upper)
	f.State = firstNonEmpty(strings.ToUpper(addr.State), field(FieldState, upper), city.State)
	if addr.PostalCode != "" {
		f.PostalCode = FormatCEP(addr.PostalCode)
	} else {
		e.resolvePostalCode(&f, city, known, ExtractAll(FieldPostalCode, text))
	}

	f.Confidence = Confidence(f)
	return f
}

// resolveCity sets f.City from the hint or the first regex candidate the
// table can correct. known reports whether the city is in the table.
func (e *Extractor) resolveCity(f *NoteFields, hint, upper string) (City, bool) {
	if hint != "" {
		f.City = strings.ToUpper(strings.TrimSpace(hint))
		city, ok := e.cities.Lookup(f.City)
		if ok {
			f.City = city.Name
		}
		return city, ok
	}

	candidates := ExtractAll(FieldCity, upper)
	for _, cand := range candidates {
		if city, ok := e.cities.Correct(cand); ok {
			f.City = city.Name
			return city, true
		}
	}
	if len(candidates) > 0 {
		f.Ambiguities = append(f.Ambiguities, AmbiguousField{
			Field:     FieldCity,
			Candidate: candidates[0],
			Reason:    "city not in known-city table",
		})
	}
	return City{}, false
}

// resolvePostalCode applies the CEP/city consistency rule: with a city, only
// a CEP inside that city's ranges is kept; without a city the first
// candidate (labeled before unlabeled) is used.
func (e *Extractor) resolvePostalCode(f *NoteFields, city City, known bool, candidates []string) {
	if len(candidates) == 0 {
		return
	}
	if f.City == "" {
		f.PostalCode = candidates[0]
		return
	}
	if known {
		if cep, ok := e.cities.ConsistentCEP(city, candidates); ok {
			f.PostalCode = cep
			return
		}
	}
	reason := "CEP outside the ranges of " + f.City
	if !known || len(city.Ranges) == 0 {
		reason = "no CEP ranges known for " + f.City
	}
	f.Ambiguities = append(f.Ambiguities, AmbiguousField{
		Field:     FieldPostalCode,
		Candidate: candidates[0],
		Reason:    reason,
	})
}

func field(name Field, text string) string {
	v, _ := ExtractField(name, text)
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func atoiPtr(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}
