package reconcile

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zombor/cargo-match/internal/extraction"
	"github.com/zombor/cargo-match/internal/scan"
)

// DestinationKind selects the icon of the manifest's destination line
type DestinationKind string

const (
	DestinationDriver  DestinationKind = "driver"
	DestinationCompany DestinationKind = "company"
)

// Destination is who receives the separated load
type Destination struct {
	Name string          `json:"name"`
	Kind DestinationKind `json:"kind"`
}

const (
	heavyRule = "═══════════════════════════════════════"
	lightRule = "───────────────────────────────────────"
)

// FormatManifest renders a reconciliation as the printable separation report.
// Missing fields render as placeholders.
func FormatManifest(res Result, dest Destination, date time.Time) string {
	var b strings.Builder

	b.WriteString(heavyRule + "\n")
	fmt.Fprintf(&b, " SEPARAÇÃO DE CARGA - %s\n", date.Format("02/01/2006"))
	b.WriteString(heavyRule + "\n")
	fmt.Fprintf(&b, "Destino: %s %s\n", destinationIcon(dest.Kind), placeholder(dest.Name, "(não informado)"))
	fmt.Fprintf(&b, "Total de Pares: %d\n", len(res.Bundles))
	b.WriteString(lightRule + "\n")

	for i, bundle := range res.Bundles {
		writeBundle(&b, i+1, bundle)
		b.WriteString(lightRule + "\n")
	}

	fmt.Fprintf(&b, "CAIXAS SEM PAR: %d\n", len(res.UnmatchedBoxes))
	for _, it := range res.UnmatchedBoxes {
		fmt.Fprintf(&b, "   • %s\n", boxLabel(it))
	}
	fmt.Fprintf(&b, "NOTAS SEM PAR: %d\n", len(res.UnmatchedNotes))
	for _, it := range res.UnmatchedNotes {
		fmt.Fprintf(&b, "   • %s\n", noteLabel(it))
	}
	b.WriteString(heavyRule + "\n")

	return b.String()
}

func writeBundle(b *strings.Builder, n int, bundle Bundle) {
	note, _ := bundle.Note.Note()

	criteria := make([]string, len(bundle.MatchedBy))
	for i, c := range bundle.MatchedBy {
		criteria[i] = string(c)
	}

	fmt.Fprintf(b, "📦 %d. TAG: %s\n", n, bundle.Tag)
	fmt.Fprintf(b, "   Match: %s | Score: %dpts\n", strings.Join(criteria, "+"), bundle.Score)
	fmt.Fprintf(b, "   Para: %s\n", placeholder(note.RecipientName, "(sem destinatário)"))
	fmt.Fprintf(b, "   End: %s\n", streetLine(note))

	city := "(sem cidade)"
	if note.City != "" {
		city = cases.Title(language.BrazilianPortuguese).String(note.City)
	}
	fmt.Fprintf(b, "   %s/%s - CEP: %s\n", city, placeholder(note.State, "??"), placeholder(note.PostalCode, "(sem CEP)"))

	if len(bundle.Boxes) > 1 || bundle.MissingBoxCount > 0 {
		fmt.Fprintf(b, "   Volumes: %d/%d", len(bundle.Boxes), bundle.ExpectedVolumeCount)
		if bundle.MissingBoxCount > 0 {
			fmt.Fprintf(b, " (faltam %d)", bundle.MissingBoxCount)
		}
		b.WriteString("\n")
	}
}

func streetLine(note extraction.NoteFields) string {
	if note.Address == "" {
		return "(sem endereço)"
	}
	line := note.Address
	if note.Number != "" {
		line += ", " + note.Number
	}
	if note.Complement != "" {
		line += " - " + note.Complement
	}
	return line
}

func boxLabel(it scan.Item) string {
	if f, ok := it.Box(); ok && f.OrderID != "" {
		return "PED " + f.OrderID
	}
	return it.ID()
}

func noteLabel(it scan.Item) string {
	if f, ok := it.Note(); ok && f.RecipientName != "" {
		return f.RecipientName
	}
	return it.ID()
}

func destinationIcon(k DestinationKind) string {
	if k == DestinationCompany {
		return "🏢"
	}
	return "🚗"
}

func placeholder(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
