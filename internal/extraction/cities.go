package extraction

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// similarityThreshold is the minimum shared-character ratio for a fuzzy city hit
const similarityThreshold = 0.7

// City is one entry of the known-city table
type City struct {
	Name    string     `yaml:"name"`
	State   string     `yaml:"state"`
	Aliases []string   `yaml:"aliases"`
	Ranges  []CEPRange `yaml:"cep_ranges"`
}

// CEPRange is an inclusive range over the first five CEP digits
type CEPRange [2]string

func (r CEPRange) contains(prefix int) bool {
	lo, errLo := strconv.Atoi(r[0])
	hi, errHi := strconv.Atoi(r[1])
	if errLo != nil || errHi != nil {
		return false
	}
	return prefix >= lo && prefix <= hi
}

var defaultCities = []City{
	{Name: "AMERICANA", State: "SP", Ranges: []CEPRange{{"13465", "13479"}}},
	{Name: "SANTA BARBARA D'OESTE", State: "SP", Aliases: []string{"SANTA BARBARA DOESTE", "SANTA BARBARA DO OESTE", "SBO"}, Ranges: []CEPRange{{"13450", "13459"}}},
	{Name: "NOVA ODESSA", State: "SP", Ranges: []CEPRange{{"13380", "13389"}}},
	{Name: "SUMARE", State: "SP", Ranges: []CEPRange{{"13170", "13182"}}},
	{Name: "HORTOLANDIA", State: "SP", Ranges: []CEPRange{{"13183", "13189"}}},
	{Name: "CAMPINAS", State: "SP", Ranges: []CEPRange{{"13000", "13139"}}},
	{Name: "PAULINIA", State: "SP", Ranges: []CEPRange{{"13140", "13149"}}},
	{Name: "VALINHOS", State: "SP", Ranges: []CEPRange{{"13270", "13279"}}},
	{Name: "VINHEDO", State: "SP", Ranges: []CEPRange{{"13280", "13289"}}},
	{Name: "INDAIATUBA", State: "SP", Ranges: []CEPRange{{"13330", "13349"}}},
	{Name: "LIMEIRA", State: "SP", Ranges: []CEPRange{{"13480", "13489"}}},
	{Name: "PIRACICABA", State: "SP", Ranges: []CEPRange{{"13400", "13428"}}},
	{Name: "RIO CLARO", State: "SP", Ranges: []CEPRange{{"13500", "13509"}}},
	{Name: "JUNDIAI", State: "SP", Ranges: []CEPRange{{"13200", "13219"}}},
	{Name: "SAO PAULO", State: "SP", Aliases: []string{"SAMPA", "S PAULO"}, Ranges: []CEPRange{{"01000", "05999"}, {"08000", "08499"}}},
}

// companyTokens mark a candidate as a company name rather than a city
var companyTokens = map[string]bool{
	"LOJAS": true, "LOJA": true, "LTDA": true, "EIRELI": true, "ME": true, "SA": true,
	"COMERCIO": true, "INDUSTRIA": true, "DISTRIBUIDORA": true, "TRANSPORTES": true,
	"LOGISTICA": true, "AMERICANAS": true, "MAGAZINE": true, "EXPRESS": true,
}

// CityTable corrects OCR'd city names and validates CEPs against them
type CityTable struct {
	cities []City
	keys   [][]string // per city: folded keys of name and aliases
	index  map[string]int
}

// NewCityTable indexes cities by their folded name and aliases
func NewCityTable(cities []City) *CityTable {
	t := &CityTable{index: make(map[string]int)}
	for _, c := range cities {
		c.Name = strings.ToUpper(strings.TrimSpace(c.Name))
		c.State = strings.ToUpper(strings.TrimSpace(c.State))
		if c.Name == "" {
			continue
		}
		if i, ok := t.index[cityKey(c.Name)]; ok {
			// later entries override earlier ones with the same name
			t.cities[i] = c
			t.keys[i] = cityKeys(c)
			for _, k := range t.keys[i] {
				t.index[k] = i
			}
			continue
		}
		t.cities = append(t.cities, c)
		keys := cityKeys(c)
		t.keys = append(t.keys, keys)
		for _, k := range keys {
			if _, taken := t.index[k]; !taken {
				t.index[k] = len(t.cities) - 1
			}
		}
	}
	return t
}

// DefaultCityTable returns the built-in table
func DefaultCityTable() *CityTable {
	return NewCityTable(defaultCities)
}

// LoadCityTable returns the built-in table extended by a YAML file
func LoadCityTable(path string) (*CityTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading city table: %w", err)
	}
	var doc struct {
		Cities []City `yaml:"cities"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing city table: %w", err)
	}
	for _, c := range doc.Cities {
		for _, r := range c.Ranges {
			if len(r[0]) != 5 || len(r[1]) != 5 {
				return nil, fmt.Errorf("city %q: CEP range %v must use 5-digit prefixes", c.Name, r)
			}
		}
	}
	cities := make([]City, 0, len(defaultCities)+len(doc.Cities))
	cities = append(cities, defaultCities...)
	cities = append(cities, doc.Cities...)
	return NewCityTable(cities), nil
}

// Lookup finds a city by exact (folded) name
func (t *CityTable) Lookup(name string) (City, bool) {
	i, ok := t.index[cityKey(name)]
	if !ok {
		return City{}, false
	}
	return t.cities[i], true
}

// Correct resolves a noisy city candidate: exact folded lookup, then
// whole-word containment both ways, then shared-character similarity.
// Unresolved candidates return false; nothing is guessed.
func (t *CityTable) Correct(candidate string) (City, bool) {
	key := cityKey(candidate)
	if len(key) < 3 {
		return City{}, false
	}
	tokens := strings.Fields(key)
	for _, tok := range tokens {
		if companyTokens[tok] {
			return City{}, false
		}
	}

	if i, ok := t.index[key]; ok {
		return t.cities[i], true
	}

	for i, keys := range t.keys {
		for _, k := range keys {
			nameTokens := strings.Fields(k)
			if containsTokens(tokens, nameTokens) {
				return t.cities[i], true
			}
			if len(key) >= 4 && containsTokens(nameTokens, tokens) {
				return t.cities[i], true
			}
		}
	}

	best, bestScore := -1, 0.0
	for i, keys := range t.keys {
		for _, k := range keys {
			if score := similarity(key, k); score > bestScore {
				best, bestScore = i, score
			}
		}
	}
	if best >= 0 && bestScore >= similarityThreshold {
		return t.cities[best], true
	}
	return City{}, false
}

// ConsistentCEP returns the first candidate inside the city's CEP ranges.
// A city without ranges accepts none.
func (t *CityTable) ConsistentCEP(city City, candidates []string) (string, bool) {
	for _, cand := range candidates {
		d := digitsOnly(cand)
		if len(d) != 8 {
			continue
		}
		prefix, err := strconv.Atoi(d[:5])
		if err != nil {
			continue
		}
		for _, r := range city.Ranges {
			if r.contains(prefix) {
				return FormatCEP(d), true
			}
		}
	}
	return "", false
}

func cityKeys(c City) []string {
	keys := []string{cityKey(c.Name)}
	for _, a := range c.Aliases {
		if k := cityKey(a); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

var ocrConfusions = strings.NewReplacer("0", "O", "1", "I", "4", "A", "5", "S")

// cityKey folds accents, case, punctuation and OCR digit/letter confusions
func cityKey(s string) string {
	s = strings.ToUpper(FoldAccents(s))
	s = ocrConfusions.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// FoldAccents strips combining marks: "SUMARÉ" -> "SUMARE"
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// containsTokens reports whether needle appears as a contiguous run in haystack
func containsTokens(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// similarity is the count of shared characters over the length of the longer string
func similarity(a, b string) float64 {
	a = strings.ReplaceAll(a, " ", "")
	b = strings.ReplaceAll(b, " ", "")
	ra, rb := []rune(a), []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 0
	}
	counts := make(map[rune]int, len(ra))
	for _, r := range ra {
		counts[r]++
	}
	shared := 0
	for _, r := range rb {
		if counts[r] > 0 {
			counts[r]--
			shared++
		}
	}
	return float64(shared) / float64(longer)
}
