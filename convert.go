package godbf

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	julianUnixEpoch = 2440588
	msPerDay        = 86400000
	maxUnixMs       = 8.64e15

	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"

	memoPrefix  = "[Memo Pointer: "
	memoSuffix  = "]"
	invalidDate = "[Invalid Date]"
)

var dateTimeLayouts = []string{dateTimeLayout, time.RFC3339, "2006-01-02T15:04:05", dateLayout}

// decodeField turns the raw bytes of one field into a Value. A non-nil error
// means the value was degraded; the returned Value is still the lenient result.
func decodeField(f Field, raw []byte, cp *codePage) (Value, error) {
	switch f.Type {
	case TypeInteger:
		if f.Length < 4 || len(raw) < 4 {
			return Number(0), nil
		}
		return Number(float64(int32(binary.LittleEndian.Uint32(raw)))), nil
	case TypeDouble:
		if f.Length < 8 || len(raw) < 8 {
			return Number(0), nil
		}
		return Number(math.Float64frombits(binary.LittleEndian.Uint64(raw))), nil
	case TypeCurrency:
		if f.Length < 8 || len(raw) < 8 {
			return Number(0), nil
		}
		return Number(float64(int64(binary.LittleEndian.Uint64(raw))) / 10000), nil
	case TypeDateTime:
		if f.Length < 8 || len(raw) < 8 {
			return Null(), nil
		}
		return decodeDateTime(raw)
	case TypeCharacter:
		return Text(cp.decode(bytes.TrimRight(raw, "\x00 "))), nil
	}

	text := cp.decode(bytes.Trim(raw, "\x00 \t\r\n"))
	switch f.Type {
	case TypeNumeric, TypeFloat:
		return decodeNumeric(text)
	case TypeLogical:
		return Boolean(isTruthy(text)), nil
	case TypeDate:
		return decodeDate(text)
	case TypeMemo:
		if text == "" {
			return Text(""), nil
		}
		return Text(memoPrefix + text + memoSuffix), nil
	}
	return Text(text), nil
}

func decodeNumeric(text string) (Value, error) {
	if text == "" {
		return Number(0), nil
	}
	n, exact, ok := parseNumeric(text)
	if !ok {
		return Text(text), ErrInvalidNumber
	}
	if !exact {
		return Number(n), ErrInvalidNumber
	}
	return Number(n), nil
}

// parseNumeric reads the longest leading decimal number of s after removing
// thousands separators. ok is false when there is no such prefix or it does
// not fit a finite float64; exact is false when characters follow the prefix.
func parseNumeric(s string) (n float64, exact, ok bool) {
	s = strings.ReplaceAll(s, ",", "")
	end := numericPrefix(s)
	if end == 0 {
		return 0, false, false
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsInf(n, 0) {
		return 0, false, false
	}
	return n, end == len(s), true
}

// numericPrefix returns the length of the leading [+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?
// match in s, or 0.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intDigits := skipDigits(s, i)
	i += intDigits
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		fracDigits = skipDigits(s, i+1)
		if intDigits > 0 || fracDigits > 0 {
			i += 1 + fracDigits
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if d := skipDigits(s, j); d > 0 {
			i = j + d
		}
	}
	return i
}

func skipDigits(s string, i int) int {
	n := 0
	for i+n < len(s) && s[i+n] >= '0' && s[i+n] <= '9' {
		n++
	}
	return n
}

func isTruthy(text string) bool {
	switch text {
	case "Y", "y", "T", "t":
		return true
	}
	return false
}

func decodeDate(text string) (Value, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if text == "" {
		return DateText(""), nil
	}
	if len(digits) != 8 {
		return DateText(text), ErrInvalidDate
	}
	y, _ := strconv.Atoi(digits[0:4])
	m, _ := strconv.Atoi(digits[4:6])
	d, _ := strconv.Atoi(digits[6:8])
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if m < 1 || m > 12 || t.Day() != d || t.Month() != time.Month(m) {
		return DateText(text), ErrInvalidDate
	}
	return DateText(t.Format(dateLayout)), nil
}

func decodeDateTime(raw []byte) (Value, error) {
	jd := int32(binary.LittleEndian.Uint32(raw[0:4]))
	ms := int32(binary.LittleEndian.Uint32(raw[4:8]))
	if jd == 0 {
		return Null(), nil
	}
	unixMs := (int64(jd)-julianUnixEpoch)*msPerDay + int64(ms)
	if math.Abs(float64(unixMs)) > maxUnixMs {
		return Text(invalidDate), ErrInvalidDateTime
	}
	return DateTimeText(time.UnixMilli(unixMs).UTC().Format(dateTimeLayout)), nil
}

// encodeField writes v into dst, which is exactly f.Length bytes and already
// filled with spaces. A non-nil error means the lenient output lost data.
func encodeField(f Field, v Value, dst []byte, cp *codePage) error {
	if len(dst) == 0 {
		return nil
	}
	switch f.Type {
	case TypeInteger:
		clear(dst)
		if len(dst) >= 4 {
			binary.LittleEndian.PutUint32(dst, uint32(int32(truncInt(numericValue(v)))))
		}
		return nil
	case TypeDouble:
		clear(dst)
		if len(dst) >= 8 {
			binary.LittleEndian.PutUint64(dst, math.Float64bits(numericValue(v)))
		}
		return nil
	case TypeCurrency:
		clear(dst)
		if len(dst) >= 8 {
			binary.LittleEndian.PutUint64(dst, uint64(truncInt(math.Round(numericValue(v)*10000))))
		}
		return nil
	case TypeDateTime:
		clear(dst)
		if len(dst) >= 8 {
			jd, ms := encodeDateTime(v)
			binary.LittleEndian.PutUint32(dst[0:4], uint32(jd))
			binary.LittleEndian.PutUint32(dst[4:8], uint32(ms))
		}
		return nil
	case TypeNumeric, TypeFloat:
		return putLeft(dst, []byte(numericText(f, v)))
	case TypeLogical:
		dst[0] = 'F'
		if logicalValue(v) {
			dst[0] = 'T'
		}
		return nil
	case TypeDate:
		s := strings.ReplaceAll(textValue(v), "-", "")
		return putRight(dst, []byte(s))
	case TypeMemo:
		s := textValue(v)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, memoPrefix) && strings.HasSuffix(s, memoSuffix) {
			ptr := strings.TrimSuffix(strings.TrimPrefix(s, memoPrefix), memoSuffix)
			return putLeft(dst, cp.encode(ptr))
		}
		return ErrMemoUnsupported
	}
	return putRight(dst, cp.encode(textValue(v)))
}

// putRight left-aligns b in dst. Characters past the field width are cut.
func putRight(dst, b []byte) error {
	n := copy(dst, b)
	if n < len(b) {
		return ErrValueOverflow
	}
	return nil
}

// putLeft right-aligns b in dst, keeping the leading bytes when it overflows.
func putLeft(dst, b []byte) error {
	if len(b) > len(dst) {
		copy(dst, b)
		return ErrValueOverflow
	}
	copy(dst[len(dst)-len(b):], b)
	return nil
}

func textValue(v Value) string {
	if s, ok := v.Str(); ok {
		return s
	}
	return v.String()
}

func numericValue(v Value) float64 {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.Num()
		return n
	case KindText, KindDate, KindDateTime:
		s, _ := v.Str()
		if n, exact, ok := parseNumeric(strings.TrimSpace(s)); ok && exact {
			return n
		}
	case KindBoolean:
		if b, _ := v.Bool(); b {
			return 1
		}
	}
	return 0
}

func numericText(f Field, v Value) string {
	if s, ok := v.Str(); ok {
		s = strings.TrimSpace(s)
		if _, exact, ok := parseNumeric(s); s != "" && !(ok && exact) {
			return s
		}
	}
	n := numericValue(v)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		n = 0
	}
	return formatFixed(n, int(f.Decimal))
}

// formatFixed formats n with digits decimals. Exact halves round away from
// zero, which strconv alone would round to even.
func formatFixed(n float64, digits int) string {
	s := strconv.FormatFloat(n, 'f', digits, 64)
	const prec = 2048
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	scaled := new(big.Float).SetPrec(prec).SetFloat64(math.Abs(n))
	scaled.Mul(scaled, new(big.Float).SetPrec(prec).SetInt(scale))
	whole, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(prec).Sub(scaled, new(big.Float).SetPrec(prec).SetInt(whole))
	if frac.Cmp(big.NewFloat(0.5)) != 0 {
		return s
	}
	whole.Add(whole, big.NewInt(1))
	out := whole.String()
	if digits > 0 {
		if len(out) <= digits {
			out = strings.Repeat("0", digits-len(out)+1) + out
		}
		out = out[:len(out)-digits] + "." + out[len(out)-digits:]
	}
	if n < 0 {
		out = "-" + out
	}
	return out
}

func logicalValue(v Value) bool {
	switch v.Kind() {
	case KindBoolean:
		b, _ := v.Bool()
		return b
	case KindNumber:
		n, _ := v.Num()
		return n != 0
	case KindText:
		s, _ := v.Str()
		return isTruthy(strings.TrimSpace(s))
	}
	return false
}

// truncInt truncates toward zero; values outside the int64 range become 0.
func truncInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}

func encodeDateTime(v Value) (jd, ms int32) {
	s, ok := v.Str()
	if !ok || strings.TrimSpace(s) == "" {
		return 0, 0
	}
	for _, layout := range dateTimeLayouts {
		t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC)
		if err != nil {
			continue
		}
		unixMs := t.UnixMilli()
		days := unixMs / msPerDay
		rem := unixMs % msPerDay
		if rem < 0 {
			days--
			rem += msPerDay
		}
		return int32(days + julianUnixEpoch), int32(rem)
	}
	return 0, 0
}
