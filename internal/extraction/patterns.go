package extraction

import (
	"regexp"
	"strings"
)

// Field names one value the extractor can pull out of a document
type Field string

const (
	FieldOrderID      Field = "order_id"
	FieldShipmentID   Field = "shipment_id"
	FieldSubRoute     Field = "sub_route"
	FieldPostalCode   Field = "postal_code"
	FieldRecipient    Field = "recipient_name"
	FieldStreetLine   Field = "street_line"
	FieldNumber       Field = "number"
	FieldComplement   Field = "complement"
	FieldNeighborhood Field = "neighborhood"
	FieldCity         Field = "city"
	FieldState        Field = "state"
	FieldPhone        Field = "phone"
	FieldReference    Field = "reference"
	FieldVolume       Field = "volume"
	FieldVolumeTotal  Field = "volume_total"
	FieldItemCount    Field = "item_count"
	FieldWeight       Field = "weight_kg"
)

const ufAlternation = `AC|AL|AP|AM|BA|CE|DF|ES|GO|MA|MT|MS|MG|PA|PB|PR|PE|PI|RJ|RN|RS|RO|RR|SC|SP|SE|TO`

// fieldRule is an ordered candidate list; group 1 is always the value
type fieldRule struct {
	patterns []*regexp.Regexp
	clean    func(string) string
}

// fieldTable is the declarative extraction table. Order inside a rule is
// priority order: the first pattern that matches anywhere wins.
var fieldTable = map[Field]fieldRule{
	FieldOrderID: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bPED(?:IDO)?\s*(?:N[º°o]?\.?\s*)?[:#.\-]?\s*(\d{4,12})\b`),
		},
	},
	FieldShipmentID: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:REM(?:ESSA)?|SHIPMENT)\s*(?:N[º°o]?\.?\s*)?[:#.\-]?\s*(\d{4,12})\b`),
		},
	},
	FieldSubRoute: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:\bSUB[\s_\-]?ROTA|\bSR)\s*[:#.\-]?\s*([A-Z0-9][A-Z0-9\-]{1,9})\b`),
		},
		clean: cleanSubRoute,
	},
	FieldPostalCode: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bCEP\b\s*[:.\-]?\s*(\d{5}-?\d{3})\b`),
			regexp.MustCompile(`\b(\d{5}-\d{3})\b`),
		},
		clean: FormatCEP,
	},
	FieldRecipient: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bDEST(?:INAT[AÁ]RIO(?:\(A\))?|\b)\s*[:.\-]?\s*([\p{L} ]{3,50})`),
			regexp.MustCompile(`(?i)\bNOME(?:\s*/\s*RAZ[AÃ]O\s+SOCIAL)?\b\s*[:.\-]\s*([\p{L} ]{3,50})`),
		},
		clean: cleanRecipient,
	},
	FieldStreetLine: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?im)\bEND(?:ERE[CÇ]O)?\.?\s*[:\-]\s*([^\n]{4,})$`),
			regexp.MustCompile(`(?im)^((?:RUA|R\.|AV(?:ENIDA)?\.?|AL(?:AMEDA)?\.?|TRAVESSA|TV\.|ESTRADA|RODOVIA|ROD\.|PRA[CÇ]A|LARGO)\s[^\n]{2,})$`),
		},
		clean: strings.TrimSpace,
	},
	FieldNumber: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:N[UÚ]MERO|N[º°])\s*[:.\-]?\s*(\d{1,6}[A-Z]?)\b`),
		},
	},
	FieldComplement: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?im)\bCOMPL(?:EMENTO)?\b\.?\s*[:\-]\s*([^\n]{1,60}?)\s*$`),
		},
	},
	FieldNeighborhood: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?im)\bBAIRRO(?:\s*/\s*DISTRITO)?\b\s*[:.\-]?\s*([^\n]{2,40}?)\s*(?:\bCEP\b.*)?$`),
		},
		clean: strings.TrimSpace,
	},
	FieldCity: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?im)\b(?:CIDADE|MUNIC[IÍ]PIO)\b\s*[:.\-]?\s*([\p{L}0-9' ]{3,40}?)\s*(?:[/\-]\s*(?:` + ufAlternation + `)\b.*)?$`),
			regexp.MustCompile(`(?m)(?:^|[,\-]\s*)([\p{L}0-9' ]{3,40}?)\s*[/\-]\s*(?:` + ufAlternation + `)\b`),
		},
		clean: strings.TrimSpace,
	},
	FieldState: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bUF\b\s*[:.\-]?\s*(` + ufAlternation + `)\b`),
			regexp.MustCompile(`(?m)[\p{L}0-9' ]{3,40}\s*[/\-]\s*(` + ufAlternation + `)\b`),
		},
		clean: strings.ToUpper,
	},
	FieldPhone: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:TEL(?:EFONE)?|FONE|CEL(?:ULAR)?|WHATS(?:APP)?)\b\.?\s*[:\-]?\s*(\(?\d{2}\)?\s*9?\d{4}[\s\-]?\d{4})\b`),
			regexp.MustCompile(`(\(\d{2}\)\s*9?\d{4}-?\d{4})\b`),
		},
		clean: digitsOnly,
	},
	FieldReference: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?im)\b(?:PONTO\s+DE\s+)?REF(?:ER[EÊ]NCIA)?\b\.?\s*:\s*([^\n]{3,80}?)\s*$`),
		},
	},
	FieldVolume: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:VOL(?:UME)?S?|CX|CAIXA)\b\.?\s*:?\s*(\d{1,3}\s*(?:/|DE)\s*\d{1,3})\b`),
		},
	},
	FieldVolumeTotal: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:TOTAL\s+DE\s+VOLUMES|QTDE?\.?\s*(?:DE\s+)?VOL(?:UMES)?|VOLUMES)\b\.?\s*:?\s*(\d{1,3})\b`),
		},
	},
	FieldItemCount: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:QTDE?\.?\s*(?:DE\s+)?ITENS|ITENS)\b\s*:?\s*(\d{1,4})\b`),
		},
	},
	FieldWeight: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bPESO(?:\s+BRUTO|\s+L[IÍ]QUIDO)?\b\s*:?\s*(\d{1,4}(?:[.,]\d{1,3})?)\s*KG\b`),
			regexp.MustCompile(`(?i)\b(\d{1,4}(?:[.,]\d{1,3})?)\s*KG\b`),
		},
	},
}

// ExtractField returns the first pattern's first match for field, or false.
func ExtractField(field Field, text string) (string, bool) {
	rule, ok := fieldTable[field]
	if !ok {
		return "", false
	}
	for _, re := range rule.patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			value := m[1]
			if rule.clean != nil {
				value = rule.clean(value)
			}
			if value != "" {
				return value, true
			}
		}
	}
	return "", false
}

// ExtractAll returns every match of every pattern for field in priority
// order, without duplicates.
func ExtractAll(field Field, text string) []string {
	rule, ok := fieldTable[field]
	if !ok {
		return nil
	}
	var values []string
	seen := make(map[string]bool)
	for _, re := range rule.patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			value := m[1]
			if rule.clean != nil {
				value = rule.clean(value)
			}
			if value == "" || seen[value] {
				continue
			}
			seen[value] = true
			values = append(values, value)
		}
	}
	return values
}

// cleanSubRoute rejects codes without a digit, which keeps "Sr. João" out
func cleanSubRoute(s string) string {
	if !strings.ContainsAny(s, "0123456789") {
		return ""
	}
	return strings.ToUpper(s)
}

// recipientStops are labels that end a recipient name printed on one line
var recipientStops = map[string]bool{
	"CPF": true, "CNPJ": true, "RG": true, "CEP": true,
	"END": true, "ENDERECO": true, "ENDEREÇO": true, "BAIRRO": true, "CIDADE": true,
	"TEL": true, "TELEFONE": true, "FONE": true, "CEL": true, "CELULAR": true, "REF": true,
}

func cleanRecipient(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if recipientStops[strings.ToUpper(w)] {
			words = words[:i]
			break
		}
	}
	return strings.Join(words, " ")
}

// FormatCEP renders 8 digits as NNNNN-NNN. Anything else is returned as digits only.
func FormatCEP(s string) string {
	d := digitsOnly(s)
	if len(d) != 8 {
		return d
	}
	return d[:5] + "-" + d[5:]
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	reStreetComma  = regexp.MustCompile(`(?i)^(.+?),\s*(\d{1,6}[A-Z]?|S/?N)\b\s*(?:[-,]\s*)?(.*)$`)
	reStreetLabel  = regexp.MustCompile(`(?i)^(.+?)\s+N[º°O]?\.?\s*(\d{1,6}[A-Z]?)\b\s*(?:[-,]\s*)?(.*)$`)
	reStreetSpaced = regexp.MustCompile(`(?i)^(.+?\D)\s+(\d{1,6}[A-Z]?)\b\s*(?:[-,]\s*)?(.*)$`)
)

var (
	reTrailingCEP  = regexp.MustCompile(`(?i)\s*[-,]?\s*(?:CEP\s*:?\s*)?\d{5}-?\d{3}\s*$`)
	reTrailingCity = regexp.MustCompile(`(?i)\s*[-,]\s*[\p{L}' ]+\s*/\s*(?:` + ufAlternation + `)\s*$`)
)

// splitStreetLine splits "Av Brasil, 900 - apto 12" into street, number and complement.
// A trailing "City/UF" or CEP on the same line is not part of the complement.
func splitStreetLine(line string) (street, number, complement string) {
	line = strings.TrimSpace(line)
	for i := 0; i < 2; i++ {
		line = reTrailingCEP.ReplaceAllString(line, "")
		line = reTrailingCity.ReplaceAllString(line, "")
	}
	for _, re := range []*regexp.Regexp{reStreetComma, reStreetLabel, reStreetSpaced} {
		if m := re.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1]), strings.ToUpper(m[2]), strings.TrimSpace(m[3])
		}
	}
	return line, "", ""
}
