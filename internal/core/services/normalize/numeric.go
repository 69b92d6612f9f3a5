package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/openlistings/listings-refinery/internal/core/domain"
)

var (
	thousandsRegexp   = regexp.MustCompile(`(\d),(\d)`)
	sizeValueRegexp   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-zA-Z²]+)?`)
	priceAmountRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// sizeUnitSynonyms maps raw unit tokens to their canonical form
var sizeUnitSynonyms = map[string]domain.SizeUnit{
	"ac":       domain.SizeUnitAcres,
	"acre":     domain.SizeUnitAcres,
	"acres":    domain.SizeUnitAcres,
	"m":        domain.SizeUnitSquareMetres,
	"m2":       domain.SizeUnitSquareMetres,
	"m²":       domain.SizeUnitSquareMetres,
	"sqm":      domain.SizeUnitSquareMetres,
	"sq":       domain.SizeUnitSquareMetres,
	"sm":       domain.SizeUnitSquareMetres,
	"ha":       domain.SizeUnitHectares,
	"hectare":  domain.SizeUnitHectares,
	"hectares": domain.SizeUnitHectares,
}

// ExtractSize pulls a numeric value and unit out of a raw size or price
// string. The unit token is mapped through the synonym table; a number with
// no unit defaults to square metres. A string with no numeric token at all
// yields (nil, "").
func ExtractSize(raw string) (*float64, domain.SizeUnit) {
	s := thousandsRegexp.ReplaceAllString(strings.TrimSpace(raw), "$1$2")
	// Run twice: "1,234,567" leaves one separator after the first pass
	s = thousandsRegexp.ReplaceAllString(s, "$1$2")

	m := sizeValueRegexp.FindStringSubmatch(s)
	if m == nil {
		return nil, ""
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, ""
	}

	unit := domain.SizeUnitSquareMetres
	if m[2] != "" {
		if canonical, ok := sizeUnitSynonyms[strings.ToLower(m[2])]; ok {
			unit = canonical
		}
	}
	return &value, unit
}

// priceTypeRule pairs a keyword pattern with the classification it implies.
// Rules are ordered: the first match wins.
type priceTypeRule struct {
	pattern *regexp.Regexp
	ptype   domain.PriceType
}

var priceTypeRules = []priceTypeRule{
	{regexp.MustCompile(`(?i)offers?\s+between|\bbetween\b`), domain.PriceTypeOffersBetween},
	{regexp.MustCompile(`(?i)offers?\s+(?:above|over)|\babove\b|\bover\b|\+\s*$`), domain.PriceTypeOffersAbove},
	{regexp.MustCompile(`(?i)per\s+week|p/?w\b|\bweekly\b`), domain.PriceTypeRentWeekly},
	{regexp.MustCompile(`(?i)per\s+month|p/?cm\b|\bmonthly\b`), domain.PriceTypeRentMonthly},
	{regexp.MustCompile(`(?i)per\s+(?:annum|year)|p/?a\b|\bannual(?:ly)?\b|\byearly\b`), domain.PriceTypeRentYearly},
	{regexp.MustCompile(`(?i)enquir|expressions?\s+of\s+interest|\beoi\b|\bpoa\b|on\s+application`), domain.PriceTypeEnquire},
	{regexp.MustCompile(`(?i)\bcontact\b`), domain.PriceTypeContact},
	{regexp.MustCompile(`(?i)\bcall\b|\bphone\b|\bring\b`), domain.PriceTypeCall},
	{regexp.MustCompile(`(?i)\bnegotiab|\bono\b|\bneg\b`), domain.PriceTypeNegotiable},
	{regexp.MustCompile(`(?i)\btba\b|\btbc\b|to\s+be\s+(?:advised|confirmed)`), domain.PriceTypeTBA},
	{regexp.MustCompile(`(?i)\bfixed\b|\bset\s+price\b`), domain.PriceTypeFixed},
}

// ClassifyPriceType maps a raw price string to exactly one enumerated
// price-type, independent of whether a numeric amount was extracted.
// Classification is total: anything unmatched is a plain sale price.
func ClassifyPriceType(raw string) domain.PriceType {
	for _, rule := range priceTypeRules {
		if rule.pattern.MatchString(raw) {
			return rule.ptype
		}
	}
	return domain.PriceTypeSale
}

// ExtractPrice combines numeric extraction and classification for a raw
// price field
func ExtractPrice(raw string) (*float64, domain.PriceType) {
	if strings.TrimSpace(raw) == "" {
		return nil, domain.PriceTypeTBA
	}

	ptype := ClassifyPriceType(raw)

	s := thousandsRegexp.ReplaceAllString(raw, "$1$2")
	s = thousandsRegexp.ReplaceAllString(s, "$1$2")
	m := priceAmountRegexp.FindString(s)
	if m == "" {
		return nil, ptype
	}
	amount, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil, ptype
	}
	return &amount, ptype
}
