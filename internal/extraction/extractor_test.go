package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/cargo-match/internal/scanning"
)

const noteText = `NATURA COSMETICOS S.A.
DESTINATÁRIO: Maria Oliveira
ENDEREÇO: Av Brasil, 900 - Apto 12
BAIRRO: Jardim Girassol
AMER1CANA/SP
CEP 13465-770
TEL: (19) 99876-5432
REF: portão azul
PED 12345`

const boxText = `SHOPEE XPRESS
PED 12345
REM 998877
SUB-ROTA: a12
VOL 2/3
PESO 2,5 KG
DEST: João Souza
CEP 13465770`

var _ = Describe("Extractor", func() {
	var (
		extractor *Extractor
		doc       scanning.Document
	)

	BeforeEach(func() {
		extractor = NewExtractor(nil)
		doc = scanning.Document{}
	})

	Describe("ExtractNote", func() {
		var note NoteFields

		JustBeforeEach(func() {
			note = extractor.ExtractNote(doc)
		})

		When("the note is complete", func() {
			BeforeEach(func() {
				doc.RawText = noteText
			})

			It("should extract the address bundle", func() {
				Expect(note.RecipientName).To(Equal("Maria Oliveira"))
				Expect(note.Address).To(Equal("Av Brasil"))
				Expect(note.Number).To(Equal("900"))
				Expect(note.Complement).To(Equal("Apto 12"))
				Expect(note.Neighborhood).To(Equal("Jardim Girassol"))
				Expect(note.Phone).To(Equal("19998765432"))
				Expect(note.Reference).To(Equal("portão azul"))
				Expect(note.OrderID).To(Equal("12345"))
			})

			It("should correct the city and keep the consistent CEP", func() {
				Expect(note.City).To(Equal("AMERICANA"))
				Expect(note.State).To(Equal("SP"))
				Expect(note.PostalCode).To(Equal("13465-770"))
				Expect(note.Ambiguities).To(BeEmpty())
			})

			It("should detect the supplier", func() {
				Expect(note.Supplier).To(Equal(SupplierNatura))
			})

			It("should score full confidence", func() {
				Expect(note.Confidence).To(Equal(1.0))
			})

			It("should be deterministic", func() {
				Expect(extractor.ExtractNote(doc)).To(Equal(note))
			})
		})

		When("the CEP belongs to another city", func() {
			BeforeEach(func() {
				doc.RawText = "ENDEREÇO: Av Brasil, 900\nAMERICANA/SP\nCEP 13010-000"
			})

			It("should discard the CEP", func() {
				Expect(note.City).To(Equal("AMERICANA"))
				Expect(note.PostalCode).To(BeEmpty())
			})

			It("should report the discarded candidate", func() {
				Expect(note.Ambiguities).To(ConsistOf(AmbiguousField{
					Field:     FieldPostalCode,
					Candidate: "13010-000",
					Reason:    "CEP outside the ranges of AMERICANA",
				}))
			})

			It("should score address and city only", func() {
				Expect(note.Confidence).To(Equal(0.70))
			})
		})

		When("the only city candidate is a company name", func() {
			BeforeEach(func() {
				doc.RawText = "Vendido por LOJAS AMERICANAS/SP\nCEP 13465-770"
			})

			It("should leave the city empty", func() {
				Expect(note.City).To(BeEmpty())
				Expect(note.Ambiguities).To(HaveLen(1))
				Expect(note.Ambiguities[0].Field).To(Equal(FieldCity))
			})

			It("should keep the CEP without a city to check it against", func() {
				Expect(note.PostalCode).To(Equal("13465-770"))
			})

			It("should still detect the supplier", func() {
				Expect(note.Supplier).To(Equal(SupplierAmericanas))
			})
		})

		When("the scanner provided hints", func() {
			BeforeEach(func() {
				doc.RawText = "DEST: Fulano\nCEP 13465-770"
				doc.Hints = &scanning.Hints{
					RecipientName: "Ana Lima",
					Address: &scanning.AddressHints{
						Street:     "Rua Um",
						City:       "Sumaré",
						PostalCode: "13170000",
					},
				}
			})

			It("should prefer the hints", func() {
				Expect(note.RecipientName).To(Equal("Ana Lima"))
				Expect(note.Address).To(Equal("Rua Um"))
				Expect(note.City).To(Equal("SUMARE"))
				Expect(note.State).To(Equal("SP"))
				Expect(note.PostalCode).To(Equal("13170-000"))
			})
		})

		When("the text is empty", func() {
			It("should return empty fields", func() {
				Expect(note.City).To(BeEmpty())
				Expect(note.PostalCode).To(BeEmpty())
				Expect(note.Supplier).To(Equal(SupplierGeneric))
				Expect(note.Confidence).To(BeZero())
			})
		})
	})

	Describe("ExtractBox", func() {
		var box BoxFields

		JustBeforeEach(func() {
			box = extractor.ExtractBox(doc)
		})

		When("the label is complete", func() {
			BeforeEach(func() {
				doc.RawText = boxText
			})

			It("should extract the identifiers", func() {
				Expect(box.OrderID).To(Equal("12345"))
				Expect(box.ShipmentID).To(Equal("998877"))
				Expect(box.SubRoute).To(Equal("A12"))
				Expect(box.PostalCode).To(Equal("13465-770"))
				Expect(box.RecipientName).To(Equal("João Souza"))
			})

			It("should extract the volume and weight", func() {
				Expect(box.BoxIndex).To(HaveValue(Equal(2)))
				Expect(box.BoxTotal).To(HaveValue(Equal(3)))
				Expect(box.WeightKg).To(HaveValue(BeNumerically("~", 2.5)))
				Expect(box.ItemCount).To(BeNil())
			})
		})

		When("the scanner provided box hints", func() {
			BeforeEach(func() {
				total := 5
				doc.RawText = boxText
				doc.Hints = &scanning.Hints{Box: &scanning.BoxHints{OrderID: "777777", BoxTotal: &total}}
			})

			It("should override the regex values", func() {
				Expect(box.OrderID).To(Equal("777777"))
				Expect(box.BoxTotal).To(HaveValue(Equal(5)))
				Expect(box.ShipmentID).To(Equal("998877"))
			})
		})

		When("only a total is printed", func() {
			BeforeEach(func() {
				doc.RawText = "TOTAL DE VOLUMES: 4"
			})

			It("should read the total without an index", func() {
				Expect(box.BoxIndex).To(BeNil())
				Expect(box.BoxTotal).To(HaveValue(Equal(4)))
			})
		})
	})
})
