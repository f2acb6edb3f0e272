package slug

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Product names in the catalog borrow words from several languages, so the
// common Latin diacritics are folded to ASCII before slugging.
var foldReplacer = strings.NewReplacer(
	"&", " and ",
	"à", "a", "á", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"ç", "c",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i",
	"ñ", "n",
	"ò", "o", "ó", "o", "ô", "o", "ö", "o", "õ", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ß", "ss", "æ", "ae", "œ", "oe",
)

// Generate creates a URL-friendly slug from the given name.
//
// Examples:
//   - "Fresh Daily" → "fresh-daily"
//   - "Jalapeño Peppers" → "jalapeno-peppers"
//   - "Rice & Grains" → "rice-and-grains"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = foldReplacer.Replace(s)
	s = slugRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
