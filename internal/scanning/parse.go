package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// documentScanPrompt is shared by the LLM-backed scanners
const documentScanPrompt = `You are reading a photo of a Brazilian shipping document: either a box label or an invoice (NF-e / DANFE / delivery note).

1. Transcribe ALL visible text exactly as printed, line by line, into "raw_text". Do not correct spelling and do not translate.

2. When you can read them with certainty, also fill the structured hints:
   - address: postal_code (CEP, NNNNN-NNN), city, state (UF, two letters), street, number, complement, neighborhood (bairro)
   - recipient_name: the addressee (DESTINATÁRIO)
   - box_hints: order_id (PED/PEDIDO), shipment_id (REM/REMESSA), sub_route (SUB-ROTA), box_index and box_total (VOL 1/3), item_count, weight_kg

Return ONLY valid JSON in this exact format:
{
  "raw_text": "...",
  "hints": {
    "address": {"postal_code": "", "city": "", "state": "", "street": "", "number": "", "complement": "", "neighborhood": ""},
    "recipient_name": "",
    "box_hints": {"order_id": "", "shipment_id": "", "sub_route": "", "box_index": null, "box_total": null, "item_count": null, "weight_kg": null}
  }
}

Important:
- Leave a hint empty (or null) when unsure; never guess
- Numbers must be JSON numbers, not strings
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// parseDocumentJSON parses the JSON answer of an LLM scanner
func parseDocumentJSON(text string) (*Document, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var doc Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	doc.RawText = strings.TrimSpace(doc.RawText)
	doc.Hints = pruneHints(doc.Hints)
	if doc.RawText == "" && doc.Hints == nil {
		return nil, fmt.Errorf("no text found in document")
	}
	return &doc, nil
}

// pruneHints trims hint values and drops empty groups so callers can rely on nil checks
func pruneHints(h *Hints) *Hints {
	if h == nil {
		return nil
	}
	h.RecipientName = strings.TrimSpace(h.RecipientName)

	if a := h.Address; a != nil {
		for _, f := range []*string{&a.PostalCode, &a.City, &a.State, &a.Street, &a.Number, &a.Complement, &a.Neighborhood} {
			*f = strings.TrimSpace(*f)
		}
		if *a == (AddressHints{}) {
			h.Address = nil
		}
	}

	if b := h.Box; b != nil {
		b.OrderID = strings.TrimSpace(b.OrderID)
		b.ShipmentID = strings.TrimSpace(b.ShipmentID)
		b.SubRoute = strings.TrimSpace(b.SubRoute)
		if b.OrderID == "" && b.ShipmentID == "" && b.SubRoute == "" &&
			b.BoxIndex == nil && b.BoxTotal == nil && b.ItemCount == nil && b.WeightKg == nil {
			h.Box = nil
		}
	}

	if h.Address == nil && h.Box == nil && h.RecipientName == "" {
		return nil
	}
	return h
}
