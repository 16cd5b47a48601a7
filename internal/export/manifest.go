package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/zombor/cargo-match/internal/reconcile"
	"github.com/zombor/cargo-match/internal/scan"
)

const (
	bundlesSheet   = "Pares"
	unmatchedSheet = "Sem Par"
)

// ManifestXLSX renders a reconciliation as a workbook with one row per
// bundle and a second sheet of unmatched items.
func ManifestXLSX(res reconcile.Result, dest reconcile.Destination, date time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", bundlesSheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(unmatchedSheet); err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	_ = f.SetCellValue(bundlesSheet, "A1", fmt.Sprintf("Separação de carga - %s", date.Format("02/01/2006")))
	_ = f.SetCellValue(bundlesSheet, "A2", "Destino")
	_ = f.SetCellValue(bundlesSheet, "B2", dest.Name)

	headers := []string{"Tag", "Match", "Score", "Destinatário", "Endereço", "Bairro", "Cidade", "UF", "CEP", "Caixas", "Volumes", "Faltando", "Fornecedor", "Confiança"}
	writeRow(f, bundlesSheet, 4, headers)

	row := 5
	for _, b := range res.Bundles {
		note, _ := b.Note.Note()
		criteria := make([]string, len(b.MatchedBy))
		for i, c := range b.MatchedBy {
			criteria[i] = string(c)
		}
		boxIDs := make([]string, len(b.Boxes))
		for i, box := range b.Boxes {
			boxIDs[i] = box.ID()
		}
		address := note.Address
		if note.Number != "" {
			address += ", " + note.Number
		}
		if note.Complement != "" {
			address += " - " + note.Complement
		}

		writeRow(f, bundlesSheet, row, []any{
			b.Tag,
			strings.Join(criteria, "+"),
			b.Score,
			note.RecipientName,
			address,
			note.Neighborhood,
			note.City,
			note.State,
			note.PostalCode,
			strings.Join(boxIDs, ", "),
			b.ExpectedVolumeCount,
			b.MissingBoxCount,
			string(note.Supplier),
			note.Confidence,
		})
		row++
	}

	writeRow(f, unmatchedSheet, 1, []string{"Tipo", "ID", "Pedido", "Remessa", "Destinatário", "CEP"})
	row = 2
	for _, it := range res.UnmatchedBoxes {
		box, _ := it.Box()
		writeRow(f, unmatchedSheet, row, []any{string(scan.KindBox), it.ID(), box.OrderID, box.ShipmentID, box.RecipientName, box.PostalCode})
		row++
	}
	for _, it := range res.UnmatchedNotes {
		note, _ := it.Note()
		writeRow(f, unmatchedSheet, row, []any{string(scan.KindNote), it.ID(), note.OrderID, note.ShipmentID, note.RecipientName, note.PostalCode})
		row++
	}

	_ = f.SetColWidth(bundlesSheet, "A", "A", 14)
	_ = f.SetColWidth(bundlesSheet, "D", "E", 32)
	_ = f.SetColWidth(bundlesSheet, "F", "G", 20)
	_ = f.SetColWidth(bundlesSheet, "J", "J", 40)
	_ = f.SetColWidth(unmatchedSheet, "B", "B", 40)
	_ = f.SetColWidth(unmatchedSheet, "E", "E", 32)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow[T any](f *excelize.File, sheet string, row int, values []T) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
