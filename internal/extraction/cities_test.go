package extraction

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CityTable", func() {
	var table *CityTable

	BeforeEach(func() {
		table = DefaultCityTable()
	})

	Describe("Correct", func() {
		DescribeTable("resolving noisy candidates",
			func(candidate, want string) {
				city, ok := table.Correct(candidate)
				Expect(ok).To(BeTrue())
				Expect(city.Name).To(Equal(want))
			},
			Entry("digit one for I", "AMER1CANA", "AMERICANA"),
			Entry("digit four for A", "C4MPINAS", "CAMPINAS"),
			Entry("digit five for S", "5UMARE", "SUMARE"),
			Entry("digit zero for O", "N0VA 0DESSA", "NOVA ODESSA"),
			Entry("accents and case", "Sumaré", "SUMARE"),
			Entry("apostrophe", "Santa Bárbara d'Oeste", "SANTA BARBARA D'OESTE"),
			Entry("alias", "SBO", "SANTA BARBARA D'OESTE"),
			Entry("candidate containing the city", "770 AMERICANA", "AMERICANA"),
			Entry("candidate contained in the city", "BARBARA D OESTE", "SANTA BARBARA D'OESTE"),
			Entry("similar spelling", "AMERICAMA", "AMERICANA"),
		)

		DescribeTable("refusing to guess",
			func(candidate string) {
				_, ok := table.Correct(candidate)
				Expect(ok).To(BeFalse())
			},
			Entry("company name containing a city", "LOJAS AMERICANAS"),
			Entry("company name alone", "AMERICANAS"),
			Entry("unrelated word", "XYZW"),
			Entry("too short", "AM"),
			Entry("empty", ""),
		)

		It("returns the same city on repeated runs", func() {
			first, _ := table.Correct("AMER1CANA")
			for i := 0; i < 10; i++ {
				again, _ := table.Correct("AMER1CANA")
				Expect(again).To(Equal(first))
			}
		})
	})

	Describe("ConsistentCEP", func() {
		var americana City

		BeforeEach(func() {
			var ok bool
			americana, ok = table.Lookup("Americana")
			Expect(ok).To(BeTrue())
		})

		It("prefers the candidate inside the city's ranges", func() {
			cep, ok := table.ConsistentCEP(americana, []string{"13010-000", "13465770"})
			Expect(ok).To(BeTrue())
			Expect(cep).To(Equal("13465-770"))
		})

		It("discards candidates from other cities", func() {
			_, ok := table.ConsistentCEP(americana, []string{"13010-000"})
			Expect(ok).To(BeFalse())
		})

		It("accepts nothing for a city without ranges", func() {
			_, ok := table.ConsistentCEP(City{Name: "ARARAS"}, []string{"13600-000"})
			Expect(ok).To(BeFalse())
		})
	})

	Describe("LoadCityTable", func() {
		var (
			path string
			err  error
		)

		JustBeforeEach(func() {
			table, err = LoadCityTable(path)
		})

		When("the file extends the table", func() {
			BeforeEach(func() {
				path = filepath.Join(GinkgoT().TempDir(), "cities.yaml")
				Expect(os.WriteFile(path, []byte(`cities:
  - name: Araras
    state: sp
    aliases: [ARARA5]
    cep_ranges: [["13600", "13609"]]
`), 0644)).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should resolve the new city", func() {
				city, ok := table.Correct("ARARA5")
				Expect(ok).To(BeTrue())
				Expect(city.Name).To(Equal("ARARAS"))
				Expect(city.State).To(Equal("SP"))
			})

			It("should keep the built-in cities", func() {
				_, ok := table.Lookup("AMERICANA")
				Expect(ok).To(BeTrue())
			})
		})

		When("a range is malformed", func() {
			BeforeEach(func() {
				path = filepath.Join(GinkgoT().TempDir(), "cities.yaml")
				Expect(os.WriteFile(path, []byte(`cities:
  - name: ARARAS
    cep_ranges: [["136", "13609"]]
`), 0644)).To(Succeed())
			})

			It("returns an error", func() {
				Expect(err).To(MatchError(ContainSubstring("5-digit prefixes")))
			})
		})

		When("the file does not exist", func() {
			BeforeEach(func() {
				path = filepath.Join(GinkgoT().TempDir(), "missing.yaml")
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})
})

var _ = Describe("DetectSupplier", func() {
	DescribeTable("classifying documents",
		func(text string, want Supplier) {
			Expect(DetectSupplier(text)).To(Equal(want))
		},
		Entry("carrier containing a retailer name", "ENTREGA SHOPEE XPRESS", SupplierShopeeXpress),
		Entry("retailer", "PEDIDO SHOPEE 1234", SupplierShopee),
		Entry("lower case text", "vendido via mercado livre", SupplierMercadoLivre),
		Entry("company suffix", "LOJAS AMERICANAS S.A.", SupplierAmericanas),
		Entry("carrier", "ENVIO POR JADLOG", SupplierJadlog),
		Entry("retailer before carrier", "AMAZON - ENTREGA CORREIOS", SupplierAmazon),
		Entry("nothing known", "PED 12345", SupplierGeneric),
		Entry("empty text", "", SupplierGeneric),
	)
})

var _ = Describe("Confidence", func() {
	It("scores address and city at exactly 0.70", func() {
		Expect(Confidence(NoteFields{Address: "Av Brasil", City: "AMERICANA"})).To(Equal(0.70))
	})

	It("raises to 0.85 with a valid postal code", func() {
		Expect(Confidence(NoteFields{Address: "Av Brasil", City: "AMERICANA", PostalCode: "13465-770"})).To(Equal(0.85))
	})

	It("reaches 1.0 with a neighborhood", func() {
		Expect(Confidence(NoteFields{Address: "Av Brasil", City: "AMERICANA", PostalCode: "13465-770", Neighborhood: "Centro"})).To(Equal(1.0))
	})

	It("ignores too-short values", func() {
		Expect(Confidence(NoteFields{Address: "Rua", City: "SBO", PostalCode: "1346", Neighborhood: "Sul"})).To(BeZero())
	})

	It("ignores name, phone and reference", func() {
		Expect(Confidence(NoteFields{RecipientName: "Maria Oliveira", Phone: "19998765432", Reference: "portão azul"})).To(BeZero())
	})
})
