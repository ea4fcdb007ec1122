package property

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidNumber is returned for number text that is neither decimal nor
// sexagesimal.
var ErrInvalidNumber = errors.New("invalid number")

// DefaultSexagesimalFormat is the format used by FormatSexagesimal when
// called with an empty format.
const DefaultSexagesimalFormat = "%d:%02d:%05.2f"

// Sexagesimal separators: colon, asterisk, apostrophe and the degree sign.
// Some mount firmware sends the degree sign as the single byte 0xdf, which
// is normalized to a colon first.
const separators = ":*'°"

// ParseNumber parses decimal or sexagesimal ("-12:30:15.5") text.
func ParseNumber(s string) (float64, error) {
	s = normalizeDegree(strings.TrimSpace(s))
	if strings.ContainsAny(s, separators) {
		return ParseSexagesimal(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return v, nil
}

// ParseSexagesimal parses "D[:M[:S]]". The sign of the degrees applies to
// the whole value, so "-0:30" is -0.5.
func ParseSexagesimal(s string) (float64, error) {
	fields := strings.FieldsFunc(normalizeDegree(strings.TrimSpace(s)), func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
	if len(fields) == 0 || len(fields) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	parts := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
		}
		parts[i] = v
	}
	value := math.Abs(parts[0])
	if len(parts) > 1 {
		value += parts[1] / 60
	}
	if len(parts) > 2 {
		value += parts[2] / 3600
	}
	if math.Signbit(parts[0]) {
		value = -value
	}
	return value, nil
}

func normalizeDegree(s string) string {
	return strings.ReplaceAll(s, "\xdf", ":")
}

// FormatSexagesimal renders value with a degrees/minutes/seconds printf
// format. The format signature selects how the value is split: "%d",
// "%d:%02d", "%d:%02d:%02d", "%d:%0N.Pf" or "%d:%02d:%0N.Pf" with P in
// 0..4. Minutes and seconds are rounded to the printed precision and
// carried, so 59.999 seconds never prints as 60.
func FormatSexagesimal(value float64, format string) string {
	if format == "" {
		format = DefaultSexagesimalFormat
	}
	d := math.Abs(value)
	m := 60 * (d - math.Floor(d))
	s := 60 * (m - math.Floor(m))
	d = math.Floor(d)

	var out string
	sig := signature(format)
	switch {
	case sig == "d":
		out = fmt.Sprintf(format, int(d))
	case sig == "dd":
		m = math.Round(m)
		carry(&d, &m, nil)
		out = fmt.Sprintf(format, int(d), int(m))
	case sig == "ddd":
		s = math.Round(s)
		carry(&d, &m, &s)
		out = fmt.Sprintf(format, int(d), int(m), int(s))
	case len(sig) == 3 && sig[0] == 'd' && sig[2] == 'f' && sig[1] >= '0' && sig[1] <= '4':
		m = roundTo(m, int(sig[1]-'0'))
		carry(&d, &m, nil)
		out = fmt.Sprintf(format, int(d), m)
	case len(sig) == 4 && sig[:2] == "dd" && sig[3] == 'f' && sig[2] >= '0' && sig[2] <= '4':
		s = roundTo(s, int(sig[2]-'0'))
		m = math.Floor(m)
		carry(&d, &m, &s)
		out = fmt.Sprintf(format, int(d), int(m), s)
	default:
		out = fmt.Sprintf(format, math.Abs(value))
	}
	if value < 0 {
		if strings.HasPrefix(out, "+") {
			return "-" + out[1:]
		}
		return "-" + out
	}
	return out
}

// FormatNumber renders value with a number item format. Formats ending in
// the 'm' verb ("%<w>.<f>m") are sexagesimal; everything else is handed to
// fmt with a float argument.
func FormatNumber(format string, value float64) string {
	if format == "" {
		format = DefaultNumberFormat
	}
	if strings.HasSuffix(format, "m") && strings.HasPrefix(format, "%") {
		width, frac := parseMFormat(format)
		out := FormatSexagesimal(value, mFormat(frac))
		if len(out) < width {
			out = strings.Repeat(" ", width-len(out)) + out
		}
		return out
	}
	return fmt.Sprintf(format, value)
}

// FormatWire renders a number the way values travel on the wire: C "%g",
// six significant digits.
func FormatWire(value float64) string {
	return strconv.FormatFloat(value, 'g', 6, 64)
}

// parseMFormat splits "%<w>.<f>m" into width and fraction.
func parseMFormat(format string) (width, frac int) {
	body := strings.TrimSuffix(strings.TrimPrefix(format, "%"), "m")
	w, f, ok := strings.Cut(body, ".")
	width, _ = strconv.Atoi(w)
	if ok {
		frac, _ = strconv.Atoi(f)
	}
	return width, frac
}

// mFormat maps the %m fraction digit to the printf layout INDI clients use.
func mFormat(frac int) string {
	switch frac {
	case 3:
		return "%d:%02d"
	case 5:
		return "%d:%04.1f"
	case 6:
		return "%d:%02d:%02d"
	case 8:
		return "%d:%02d:%04.1f"
	default:
		return DefaultSexagesimalFormat
	}
}

// signature reduces a printf format to its verbs, keeping precision digits:
// "%d:%02d:%05.2f" becomes "dd2f".
func signature(format string) string {
	var sig strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		for i < len(format) && (format[i] == '0' || format[i] == '-' || format[i] == '+') {
			i++
		}
		for i < len(format) && isDigit(format[i]) {
			i++
		}
		if i < len(format) && format[i] == '.' {
			i++
			for i < len(format) && isDigit(format[i]) {
				sig.WriteByte(format[i])
				i++
			}
		}
		if i < len(format) {
			sig.WriteByte(format[i])
		}
	}
	return sig.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func roundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

// carry folds 60 seconds into a minute and 60 minutes into a degree.
func carry(d, m, s *float64) {
	if s != nil && *s >= 60 {
		*s = 0
		*m++
	}
	if *m >= 60 {
		*m = 0
		*d++
	}
}
