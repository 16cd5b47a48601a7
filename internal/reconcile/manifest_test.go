package reconcile

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/cargo-match/internal/extraction"
	"github.com/zombor/cargo-match/internal/scan"
)

var _ = Describe("TagFor", func() {
	It("ignores postal code separators", func() {
		Expect(TagFor("Maria", "13465770", 2)).To(Equal(TagFor("Maria", "13465-770", 2)))
		Expect(TagFor("Maria", "13465770", 2)).To(Equal("MAR-770-02"))
	})

	It("is stable across calls", func() {
		first := TagFor("João Silva", "13465-770", 1)
		for i := 0; i < 5; i++ {
			Expect(TagFor("João Silva", "13465-770", 1)).To(Equal(first))
		}
		Expect(first).To(Equal("JOA-770-01"))
	})

	DescribeTable("padding",
		func(name, cep string, count int, want string) {
			Expect(TagFor(name, cep, count)).To(Equal(want))
		},
		Entry("short name", "Al", "13465-770", 1, "ALX-770-01"),
		Entry("no name", "", "13465-770", 1, "XXX-770-01"),
		Entry("non-letters skipped", "D'Ávila 2", "1", 3, "DAV-001-03"),
		Entry("no postal code", "Maria", "", 12, "MAR-000-12"),
	)
})

var _ = Describe("FormatManifest", func() {
	var (
		res    Result
		dest   Destination
		output string
	)

	BeforeEach(func() {
		res = Reconcile(NewSnapshot([]scan.Item{
			readyBox("b1", extraction.BoxFields{OrderID: "12345"}),
			readyNote("n1", extraction.NoteFields{
				OrderID:       "12345",
				RecipientName: "Maria Oliveira",
				Address:       "Av Brasil",
				Number:        "900",
				City:          "AMERICANA",
				State:         "SP",
				PostalCode:    "13465-770",
			}),
		}))
		dest = Destination{Name: "João Silva", Kind: DestinationDriver}
	})

	JustBeforeEach(func() {
		output = FormatManifest(res, dest, t0)
	})

	It("renders the separation report", func() {
		Expect(output).To(Equal(strings.Join([]string{
			heavyRule,
			" SEPARAÇÃO DE CARGA - 05/03/2026",
			heavyRule,
			"Destino: 🚗 João Silva",
			"Total de Pares: 1",
			lightRule,
			"📦 1. TAG: MAR-770-01",
			"   Match: PED | Score: 50pts",
			"   Para: Maria Oliveira",
			"   End: Av Brasil, 900",
			"   Americana/SP - CEP: 13465-770",
			lightRule,
			"CAIXAS SEM PAR: 0",
			"NOTAS SEM PAR: 0",
			heavyRule,
			"",
		}, "\n")))
	})

	When("the destination is a company", func() {
		BeforeEach(func() {
			dest = Destination{Name: "Transportes Rápidos", Kind: DestinationCompany}
		})

		It("uses the company icon", func() {
			Expect(output).To(ContainSubstring("Destino: 🏢 Transportes Rápidos"))
		})
	})

	When("fields are missing", func() {
		BeforeEach(func() {
			res = Reconcile(NewSnapshot([]scan.Item{
				readyBox("b1", extraction.BoxFields{ShipmentID: "R9", BoxTotal: intPtr(3)}),
				readyBox("b2", extraction.BoxFields{ShipmentID: "R9"}),
				readyNote("n1", extraction.NoteFields{ShipmentID: "R9"}),
				readyBox("b3", extraction.BoxFields{OrderID: "777777"}),
				readyBox("b4", extraction.BoxFields{}),
				readyNote("n2", extraction.NoteFields{RecipientName: "Ana Lima"}),
				readyNote("n3", extraction.NoteFields{}),
			}))
			dest = Destination{}
		})

		It("renders placeholders", func() {
			Expect(output).To(ContainSubstring("Destino: 🚗 (não informado)"))
			Expect(output).To(ContainSubstring("   Para: (sem destinatário)"))
			Expect(output).To(ContainSubstring("   End: (sem endereço)"))
			Expect(output).To(ContainSubstring("   (sem cidade)/?? - CEP: (sem CEP)"))
		})

		It("renders the volume count", func() {
			Expect(output).To(ContainSubstring("   Volumes: 2/3 (faltam 1)"))
		})

		It("lists the unmatched items", func() {
			Expect(output).To(ContainSubstring("CAIXAS SEM PAR: 2\n   • PED 777777\n   • b4\n"))
			Expect(output).To(ContainSubstring("NOTAS SEM PAR: 2\n   • Ana Lima\n   • n3\n"))
		})
	})
})
