package race

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Policy decides what happens when a field does not match its expected format
type Policy int

const (
	// Strict reports a *FormatError, which fails the whole round
	Strict Policy = iota
	// Lenient substitutes the placeholder (0 for amounts) and carries on
	Lenient
)

func (p Policy) String() string {
	if p == Lenient {
		return "lenient"
	}
	return "strict"
}

// Date layouts. The parse layouts accept one or two digit months and days,
// output is always zero padded.
const (
	raceDateLayout       = "2006年1月2日"
	birthdayLayout       = "2006/1/2生"
	normalizedDateLayout = "2006年01月02日"
)

var (
	prizeOrdinalPattern = regexp.MustCompile(`[0-9]+着`)

	cellBreakReplacer = strings.NewReplacer("<br>", ",", "\n", ",")
	bracketReplacer   = strings.NewReplacer("(", "", ")", "", "（", "", "）", "", "【", "", "】", "")
)

// FormatError reports a field whose text does not match its expected pattern
type FormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("normalizing %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Normalizer repairs the text encodings used on the source pages.
// The zero value uses the Strict policy.
type Normalizer struct {
	Policy Policy
}

// NewNormalizer creates a Normalizer with the given policy
func NewNormalizer(policy Policy) Normalizer {
	return Normalizer{Policy: policy}
}

// fail applies the policy to a format failure
func (n Normalizer) fail(field, value string, err error) (string, error) {
	if n.Policy == Lenient {
		return Placeholder, nil
	}
	return "", &FormatError{Field: field, Value: value, Err: err}
}

// ParsePrizes turns the free-text prize block into a PrizeTable.
// Each line looks like "1着 100,000円"; empty lines are dropped.
func (n Normalizer) ParsePrizes(text string) (PrizeTable, error) {
	text = prizeOrdinalPattern.ReplaceAllString(text, "")
	text = strings.NewReplacer("円", "", ",", "").Replace(text)

	prizes := make(PrizeTable, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		amount, err := strconv.Atoi(line)
		if err != nil {
			if n.Policy == Lenient {
				amount = 0
			} else {
				return nil, &FormatError{Field: ColPrize, Value: line, Err: err}
			}
		}
		prizes = append(prizes, amount)
	}
	return prizes, nil
}

// NormalizeRaceDate validates a race date and re-emits it zero padded
func (n Normalizer) NormalizeRaceDate(text string) (string, error) {
	return n.reformatDate(ColDate, text, raceDateLayout)
}

// NormalizeBirthday converts "2015/04/01生" into "2015年04月01日"
func (n Normalizer) NormalizeBirthday(text string) (string, error) {
	return n.reformatDate(ColBirthday, text, birthdayLayout)
}

func (n Normalizer) reformatDate(field, text, layout string) (string, error) {
	text = strings.TrimSpace(text)
	if text == Placeholder {
		return Placeholder, nil
	}
	t, err := time.Parse(layout, text)
	if err != nil {
		return n.fail(field, text, err)
	}
	return t.Format(normalizedDateLayout), nil
}

// CleanCell turns line breaks into commas and drops bracket characters
func CleanCell(text string) string {
	return bracketReplacer.Replace(cellBreakReplacer.Replace(text))
}

// StripPercent removes percent signs; the value stays textual
func StripPercent(text string) string {
	return strings.ReplaceAll(text, "%", "")
}

// SplitPlacedWeight splits "420|440" into its lower and upper bound
func SplitPlacedWeight(text string) (lower, upper string) {
	if !strings.Contains(text, "|") {
		return Placeholder, Placeholder
	}
	parts := strings.Split(text, "|")
	return parts[0], parts[1]
}

// SplitWeightChange splits "480+4" into the previous weight and the delta.
// Separators are tried in the order +, -, ± and the first one present wins.
func SplitWeightChange(text string) (weight, delta string) {
	switch {
	case text == Placeholder:
		return Placeholder, Placeholder
	case strings.Contains(text, "+"):
		parts := strings.Split(text, "+")
		return parts[0], parts[1]
	case strings.Contains(text, "-"):
		parts := strings.Split(text, "-")
		return parts[0], "-" + parts[1]
	case strings.Contains(text, "±"):
		parts := strings.Split(text, "±")
		return parts[0], parts[1]
	default:
		return Placeholder, Placeholder
	}
}

// SplitSexAge splits "牡5" into sex and age. The sex code is not validated.
func SplitSexAge(text string) (sex, age string) {
	runes := []rune(text)
	if len(runes) == 0 || text == Placeholder {
		return Placeholder, Placeholder
	}
	return string(runes[0]), string(runes[1:])
}

// SplitPlaceOdds splits "1.5 - 2.3" into its lower and upper bound
func SplitPlaceOdds(text string) (lower, upper string) {
	parts := strings.Split(text, " - ")
	if len(parts) != 2 {
		return Placeholder, Placeholder
	}
	return parts[0], parts[1]
}
