package extraction

import "strings"

// Supplier tags the brand or carrier a document came from
type Supplier string

const (
	SupplierShopeeXpress Supplier = "SHOPEE_XPRESS"
	SupplierShopee       Supplier = "SHOPEE"
	SupplierMercadoLivre Supplier = "MERCADO_LIVRE"
	SupplierAmazon       Supplier = "AMAZON"
	SupplierMagalu       Supplier = "MAGALU"
	SupplierAmericanas   Supplier = "AMERICANAS"
	SupplierNatura       Supplier = "NATURA"
	SupplierBoticario    Supplier = "BOTICARIO"
	SupplierAvon         Supplier = "AVON"
	SupplierCorreios     Supplier = "CORREIOS"
	SupplierJadlog       Supplier = "JADLOG"
	SupplierLoggi        Supplier = "LOGGI"
	SupplierTotalExpress Supplier = "TOTAL_EXPRESS"
	SupplierGeneric      Supplier = "GENERIC"
)

// supplierKeywords is checked top to bottom. Entries whose keywords contain
// another entry's keyword (SHOPEE XPRESS vs SHOPEE) must come first.
var supplierKeywords = []struct {
	supplier Supplier
	keywords []string
}{
	{SupplierShopeeXpress, []string{"SHOPEE XPRESS", "SHOPEEXPRESS", "SPX EXPRESS"}},
	{SupplierShopee, []string{"SHOPEE"}},
	{SupplierMercadoLivre, []string{"MERCADO LIVRE", "MERCADOLIVRE", "MERCADO ENVIOS", "MERCADOENVIOS"}},
	{SupplierAmazon, []string{"AMAZON", "AMZN"}},
	{SupplierMagalu, []string{"MAGALU", "MAGAZINE LUIZA"}},
	{SupplierAmericanas, []string{"AMERICANAS", "B2W"}},
	{SupplierNatura, []string{"NATURA COSMETICOS", "NATURA&CO", "NATURA"}},
	{SupplierBoticario, []string{"BOTICARIO", "BOTICÁRIO"}},
	{SupplierAvon, []string{"AVON"}},
	{SupplierCorreios, []string{"CORREIOS", "SEDEX"}},
	{SupplierJadlog, []string{"JADLOG"}},
	{SupplierLoggi, []string{"LOGGI"}},
	{SupplierTotalExpress, []string{"TOTAL EXPRESS", "TOTALEXPRESS"}},
}

// DetectSupplier returns the first supplier with a keyword in text, or SupplierGeneric
func DetectSupplier(text string) Supplier {
	upper := strings.ToUpper(text)
	for _, entry := range supplierKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(upper, kw) {
				return entry.supplier
			}
		}
	}
	return SupplierGeneric
}
