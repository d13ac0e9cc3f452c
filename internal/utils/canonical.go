package utils

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// colorVariations maps a canonical color to its accepted spellings
var colorVariations = map[string][]string{
	"red":       {"red", "красный", "красная", "красный металлик", "бордовый", "вишневый", "алый"},
	"black":     {"black", "черный", "чёрный", "черный металлик", "черная"},
	"white":     {"white", "белый", "белый металлик", "перламутр", "белая"},
	"gray":      {"gray", "grey", "серый", "серый металлик", "графит", "серая"},
	"silver":    {"silver", "серебристый", "серебристый металлик", "серебристая"},
	"blue":      {"blue", "синий", "синий металлик", "синяя", "голубой"},
	"green":     {"green", "зеленый", "зеленый металлик", "зеленая"},
	"yellow":    {"yellow", "желтый", "жёлтый", "желтая"},
	"brown":     {"brown", "коричневый", "коричневый металлик", "коричневая"},
	"bronze":    {"bronze", "бронза"},
	"beige":     {"beige", "бежевый", "бежевая"},
	"gold":      {"gold", "золотистый", "золотистая"},
	"turquoise": {"turquoise", "бирюзовый", "бирюзовая"},
	"orange":    {"orange", "оранжевый", "оранжевая"},
	"purple":    {"purple", "фиолетовый", "фиолетовая"},
	"pink":      {"pink", "розовый", "розовая"},
}

// cityVariations maps a canonical city to its accepted spellings and romanizations
var cityVariations = map[string][]string{
	"Алматы":        {"алматы", "алма-ата", "алма ата", "алмата", "almaty", "alma-ata", "alma ata", "almata", "алма-аты", "алма аты"},
	"Астана":        {"астана", "astana", "нур-султан", "нур султан", "нурсултан", "nur-sultan", "nur sultan", "nursultan", "астана-сити", "astana-city"},
	"Актау":         {"актау", "aktau", "ак-тау", "ак тау", "ak-tau", "ak tau", "актау-сити", "aktau-city"},
	"Актобе":        {"актобе", "aktobe", "ак-тобе", "ак тобе", "ak-tobe", "ak tobe", "актюбинск", "aktyubinsk"},
	"Атырау":        {"атырау", "atyrau", "аты-рау", "аты рау", "aty-rau", "aty rau", "гурьев", "guryev"},
	"Есик":          {"есик", "esik", "есик-сити", "esik-city", "есик-город", "есик город", "esik gorod"},
	"Караганда":     {"караганда", "karaganda", "кара-ганда", "кара ганда", "karaganda-city", "караганда-сити", "карагандинск", "karagandinsk"},
	"Каскелен":      {"каскелен", "kaskelen", "кас-келен", "кас келен", "kaskelen-city", "каскелен-сити"},
	"Кокшетау":      {"кокшетау", "kokchetav", "kokchetau", "кок-шетау", "кок шетау", "kok-shetau", "kok shetau", "кокчетав"},
	"Костанай":      {"костанай", "kostanay", "коста-най", "коста най", "kostanay-city", "костанай-сити", "кустанай", "kustanay"},
	"Кызылорда":     {"кызылорда", "kyzylorda", "кызыл-орда", "кызыл орда", "kyzyl-orda", "kyzyl orda", "кызылординск", "kyzylordinsk"},
	"Павлодар":      {"павлодар", "pavlodar", "павло-дар", "павло дар", "pavlo-dar", "pavlo dar", "павлодарск", "pavlodarsk"},
	"Петропавловск": {"петропавловск", "petropavlovsk", "петро-павловск", "петро павловск", "petro-pavlovsk", "petro pavlovsk", "петропавловский", "petropavlovsky"},
	"Семей":         {"семей", "semey", "семеи", "сем-ей", "сем ей", "sem-ey", "sem ey", "семей-сити", "semey-city", "семеи-сити", "семеи сити"},
	"Талдыкорган":   {"талдыкорган", "taldikorgan", "талды-корган", "талды корган", "taldy-korgan", "taldy korgan", "талдыкорган-сити", "taldikorgan-city"},
	"Тараз":         {"тараз", "taraz", "та-раз", "та раз", "ta-raz", "ta raz", "тараз-сити", "taraz-city", "джамбул", "zhambyl"},
	"Туркестан":     {"туркестан", "turkestan", "турке-стан", "турке стан", "turk-estan", "turk estan", "туркестан-сити", "turkestan-city"},
	"Уральск":       {"уральск", "uralsk", "ураль-ск", "ураль ск", "ural-sk", "ural sk", "уральск-сити", "uralsk-city"},
	"Шымкент":       {"шымкент", "shymkent", "шимкент", "shimkent", "шым-кент", "шым кент", "shym-kent", "shym kent", "шим-кент", "шим кент", "шымкент-сити", "shymkent-city", "чимкент", "chimkent"},
	"Экибастуз":     {"экибастуз", "ekibastuz", "эки-бастуз", "эки бастуз", "eki-bastuz", "eki bastuz", "экибастуз-сити", "ekibastuz-city"},
}

var separatorRun = regexp.MustCompile(`[-\s]+`)

// Canonicalizer maps noisy surface forms to a fixed canonical vocabulary.
// It is immutable after construction and safe for concurrent use.
type Canonicalizer struct {
	exact      map[string]string
	variations []string // longest first, then lexical; fixes substring fallback order
	fold       func(string) string
}

// NewCanonicalizer builds a lookup from canonical→variations. fold, if set, is
// applied to both the table and every input before matching.
func NewCanonicalizer(table map[string][]string, fold func(string) string) (*Canonicalizer, error) {
	if fold == nil {
		fold = func(s string) string { return s }
	}
	c := &Canonicalizer{exact: make(map[string]string), fold: fold}

	for canon, variations := range table {
		for _, v := range append([]string{canon}, variations...) {
			key := fold(strings.ToLower(strings.TrimSpace(v)))
			if key == "" {
				continue
			}
			if owner, ok := c.exact[key]; ok && owner != canon {
				return nil, fmt.Errorf("variation %q maps to both %q and %q", v, owner, canon)
			}
			c.exact[key] = canon
		}
	}

	c.variations = make([]string, 0, len(c.exact))
	for key := range c.exact {
		c.variations = append(c.variations, key)
	}
	sort.Slice(c.variations, func(i, j int) bool {
		a, b := c.variations[i], c.variations[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return c, nil
}

func mustCanonicalizer(table map[string][]string, fold func(string) string) *Canonicalizer {
	c, err := NewCanonicalizer(table, fold)
	if err != nil {
		panic(err)
	}
	return c
}

// Normalize returns the canonical token for raw, trying an exact match first
// and then bidirectional substring containment
func (c *Canonicalizer) Normalize(raw string) (string, bool) {
	key := c.fold(strings.ToLower(strings.TrimSpace(raw)))
	if key == "" {
		return "", false
	}

	if canon, ok := c.exact[key]; ok {
		return canon, true
	}

	for _, variation := range c.variations {
		if strings.Contains(key, variation) || strings.Contains(variation, key) {
			return c.exact[variation], true
		}
	}
	return "", false
}

// Canonicals returns the sorted canonical vocabulary
func (c *Canonicalizer) Canonicals() []string {
	seen := make(map[string]bool)
	var out []string
	for _, canon := range c.exact {
		if !seen[canon] {
			seen[canon] = true
			out = append(out, canon)
		}
	}
	sort.Strings(out)
	return out
}

// foldCity removes hyphens and whitespace so romanization variants compare equal
func foldCity(s string) string {
	return separatorRun.ReplaceAllString(s, "")
}

var (
	colors = mustCanonicalizer(colorVariations, nil)
	cities = mustCanonicalizer(cityVariations, foldCity)
)

// NormalizeColor maps a color in any supported language to its canonical token
func NormalizeColor(raw string) (string, bool) {
	return colors.Normalize(raw)
}

// NormalizeCity maps a city spelling or romanization to its canonical name
func NormalizeCity(raw string) (string, bool) {
	return cities.Normalize(raw)
}

// CanonicalColors returns every canonical color token
func CanonicalColors() []string {
	return colors.Canonicals()
}

// CanonicalCities returns every canonical city name
func CanonicalCities() []string {
	return cities.Canonicals()
}
