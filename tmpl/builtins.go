package tmpl

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"html"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ardnew/mung"
	"github.com/goccy/go-yaml"
	"github.com/zeebo/xxh3"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is the locale of number formatting functions when none is
// given.
const DefaultLocale = "en"

// MaxDecimals bounds the fraction digits of number_format.
const MaxDecimals = 20

// Builtins returns the default function set. The date function reads the
// current time from clock.
func Builtins(clock func() time.Time) []Func {
	if clock == nil {
		clock = time.Now
	}

	return []Func{
		// Case
		unary("upper", "Upper-cases s.", func(s string) string {
			return cases.Upper(language.Und).String(s)
		}),
		unary("lower", "Lower-cases s.", func(s string) string {
			return cases.Lower(language.Und).String(s)
		}),
		unary("title", "Title-cases each word of s.", func(s string) string {
			return cases.Title(language.Und).String(s)
		}),
		unary("ucfirst", "Upper-cases the first character of s.", ucfirst),

		// Strings
		{
			Name: "trim", Usage: "trim(s, chars?)", Doc: "Strips leading and trailing whitespace or chars.",
			MinArgs: 1, MaxArgs: 2,
			Fn: trimmer(strings.Trim, strings.TrimSpace),
		},
		{
			Name: "ltrim", Usage: "ltrim(s, chars?)", Doc: "Strips leading whitespace or chars.",
			MinArgs: 1, MaxArgs: 2,
			Fn: trimmer(strings.TrimLeft, func(s string) string {
				return strings.TrimLeftFunc(s, unicode.IsSpace)
			}),
		},
		{
			Name: "rtrim", Usage: "rtrim(s, chars?)", Doc: "Strips trailing whitespace or chars.",
			MinArgs: 1, MaxArgs: 2,
			Fn: trimmer(strings.TrimRight, func(s string) string {
				return strings.TrimRightFunc(s, unicode.IsSpace)
			}),
		},
		{
			Name: "replace", Usage: "replace(s, old, new)", Doc: "Replaces every old in s with new.",
			MinArgs: 3, MaxArgs: 3,
			Size: func(args ...Value) int {
				s, old := args[0].String(), args[1].String()

				return len(s) + product(strings.Count(s, old), len(args[2].String()))
			},
			Fn: func(args ...Value) (Value, error) {
				return StringValue(strings.ReplaceAll(
					args[0].String(), args[1].String(), args[2].String(),
				)), nil
			},
		},
		{
			Name: "truncate", Usage: "truncate(s, n, suffix?)", Doc: "Shortens s to n characters plus suffix (default \"...\").",
			MinArgs: 2, MaxArgs: 3,
			Fn: truncate,
		},
		{
			Name: "contains", Usage: "contains(haystack, needle)", Doc: "Reports whether a string, sequence, or mapping contains needle.",
			MinArgs: 2, MaxArgs: 2,
			Fn: func(args ...Value) (Value, error) { return BoolValue(contains(args[0], args[1])), nil },
		},
		{
			Name: "starts_with", Usage: "starts_with(s, prefix)", Doc: "Reports whether s begins with prefix.",
			MinArgs: 2, MaxArgs: 2,
			Fn: func(args ...Value) (Value, error) {
				return BoolValue(strings.HasPrefix(args[0].String(), args[1].String())), nil
			},
		},
		{
			Name: "ends_with", Usage: "ends_with(s, suffix)", Doc: "Reports whether s ends with suffix.",
			MinArgs: 2, MaxArgs: 2,
			Fn: func(args ...Value) (Value, error) {
				return BoolValue(strings.HasSuffix(args[0].String(), args[1].String())), nil
			},
		},
		{
			Name: "join", Usage: "join(list, sep?)", Doc: "Joins the elements of list with sep (default \",\").",
			MinArgs: 1, MaxArgs: 2,
			Fn: join,
		},
		{
			Name: "split", Usage: "split(s, sep?)", Doc: "Splits s at each sep (default \",\").",
			MinArgs: 1, MaxArgs: 2,
			Fn: func(args ...Value) (Value, error) {
				parts := strings.Split(args[0].String(), argString(args, 1, ","))

				seq := make([]Value, len(parts))
				for i, p := range parts {
					seq[i] = StringValue(p)
				}

				return SequenceValue(seq...), nil
			},
		},
		{
			Name: "repeat", Usage: "repeat(s, n)", Doc: "Repeats s n times.",
			MinArgs: 2, MaxArgs: 2,
			Size: func(args ...Value) int {
				n, err := argInt(args, 1, "repeat")
				if err != nil {
					return 0
				}

				return product(len(args[0].String()), n)
			},
			Fn: func(args ...Value) (Value, error) {
				n, err := argInt(args, 1, "repeat")
				if err != nil {
					return Null, err
				}

				if n < 0 {
					n = 0
				}

				return StringValue(strings.Repeat(args[0].String(), n)), nil
			},
		},

		// Numbers
		{
			Name: "number_format", Usage: "number_format(n, decimals?, locale?)", Doc: "Formats n with grouping and a fixed number of decimals.",
			MinArgs: 1, MaxArgs: 3,
			Fn: numberFormat,
		},
		{
			Name: "currency_format", Usage: "currency_format(n, code, locale?)", Doc: "Formats n as an amount of the ISO 4217 currency code.",
			MinArgs: 2, MaxArgs: 3,
			Fn: currencyFormat,
		},
		{
			Name: "percent_format", Usage: "percent_format(n, locale?)", Doc: "Formats the fraction n as a percentage.",
			MinArgs: 1, MaxArgs: 2,
			Fn: percentFormat,
		},

		// Size
		{
			Name: "length", Usage: "length(v)", Doc: "Counts the characters of a scalar or the elements of a container.",
			MinArgs: 1, MaxArgs: 1,
			Fn: func(args ...Value) (Value, error) {
				if n, ok := args[0].Len(); ok {
					return NumberValue(float64(n)), nil
				}

				return NumberValue(float64(utf8.RuneCountInString(args[0].String()))), nil
			},
		},
		{
			Name: "count", Usage: "count(v)", Doc: "Counts the elements of a container; null is 0 and other scalars 1.",
			MinArgs: 1, MaxArgs: 1,
			Fn: func(args ...Value) (Value, error) {
				switch v := args[0]; {
				case v.IsContainer():
					n, _ := v.Len()

					return NumberValue(float64(n)), nil

				case v.IsNull():
					return NumberValue(0), nil

				default:
					return NumberValue(1), nil
				}
			},
		},

		// Dates
		{
			Name: "date", Usage: "date(format, timestamp?)", Doc: "Formats a Unix or RFC 3339 timestamp (default now) with PHP-style format characters.",
			MinArgs: 1, MaxArgs: 2,
			Fn: func(args ...Value) (Value, error) {
				t := clock()

				if len(args) > 1 && !args[1].IsNull() {
					var err error

					if t, err = parseTime(args[1]); err != nil {
						return Null, err
					}
				}

				return StringValue(formatDate(args[0].String(), t)), nil
			},
		},

		// Hashing
		unary("md5", "Hex MD5 digest of s.", func(s string) string {
			sum := md5.Sum([]byte(s))

			return hex.EncodeToString(sum[:])
		}),
		unary("sha1", "Hex SHA-1 digest of s.", func(s string) string {
			sum := sha1.Sum([]byte(s))

			return hex.EncodeToString(sum[:])
		}),
		unary("sha256", "Hex SHA-256 digest of s.", func(s string) string {
			sum := sha256.Sum256([]byte(s))

			return hex.EncodeToString(sum[:])
		}),
		unary("xxh3", "Hex XXH3 64-bit hash of s.", func(s string) string {
			return strconv.FormatUint(xxh3.HashString(s), 16)
		}),

		// Encoding
		{
			Name: "json", Usage: "json(v)", Doc: "Encodes v as JSON, keeping mapping order.",
			MinArgs: 1, MaxArgs: 1,
			Fn: func(args ...Value) (Value, error) {
				b, err := args[0].MarshalJSON()
				if err != nil {
					return Null, ErrFunctionCall.Wrap(err).With(slog.String("function", "json"))
				}

				return StringValue(string(b)), nil
			},
		},
		{
			Name: "yaml", Usage: "yaml(v)", Doc: "Encodes v as YAML, keeping mapping order.",
			MinArgs: 1, MaxArgs: 1,
			Fn: func(args ...Value) (Value, error) {
				b, err := yaml.Marshal(args[0].Native())
				if err != nil {
					return Null, ErrFunctionCall.Wrap(err).With(slog.String("function", "yaml"))
				}

				return StringValue(strings.TrimSuffix(string(b), "\n")), nil
			},
		},
		unary("url_encode", "Query-escapes s.", url.QueryEscape),
		unary("escape", "HTML-escapes s.", html.EscapeString),
		{
			Name: "raw", Usage: "raw(v)", Doc: "Emits v without HTML escaping.",
			MinArgs: 1, MaxArgs: 1, Safe: true,
			Fn: func(args ...Value) (Value, error) { return args[0], nil },
		},

		// Type predicates
		predicate("is_null", "Reports whether v is null.", Value.IsNull),
		predicate("is_bool", "Reports whether v is a boolean.", kindIs(KindBool)),
		predicate("is_number", "Reports whether v is a number.", kindIs(KindNumber)),
		predicate("is_numeric", "Reports whether v is a number or numeric string.", func(v Value) bool {
			_, ok := v.Number()

			return ok
		}),
		predicate("is_string", "Reports whether v is a string.", kindIs(KindString)),
		predicate("is_array", "Reports whether v is a sequence.", kindIs(KindSequence)),
		predicate("is_map", "Reports whether v is a mapping.", kindIs(KindMapping)),
		predicate("is_empty", "Reports whether v is falsy.", func(v Value) bool { return !v.Truthy() }),
		{
			Name: "typeof", Usage: "typeof(v)", Doc: "Names the kind of v.",
			MinArgs: 1, MaxArgs: 1,
			Fn: func(args ...Value) (Value, error) { return StringValue(args[0].Kind().String()), nil },
		},

		// Misc
		{
			Name: "default", Usage: "default(v, fallback)", Doc: "Yields fallback when v is null or the empty string.",
			MinArgs: 2, MaxArgs: 2,
			Fn: func(args ...Value) (Value, error) {
				if args[0].IsNull() || args[0].Kind() == KindString && args[0].String() == "" {
					return args[1], nil
				}

				return args[0], nil
			},
		},
		{
			Name: "path_join", Usage: "path_join(elem...)", Doc: "Joins path elements with the OS separator.",
			MinArgs: 1, MaxArgs: Variadic,
			Fn: func(args ...Value) (Value, error) { return StringValue(filepath.Join(strs(args)...)), nil },
		},
		{
			Name: "path_prefix", Usage: "path_prefix(list, items...)", Doc: "Prepends items to a PATH-style list, removing duplicates.",
			MinArgs: 1, MaxArgs: Variadic,
			Fn: func(args ...Value) (Value, error) {
				return StringValue(mungPrefix(args[0].String(), strs(args[1:])...)), nil
			},
		},
	}
}

func unary(name, doc string, fn func(string) string) Func {
	return Func{
		Name: name, Usage: name + "(s)", Doc: doc,
		MinArgs: 1, MaxArgs: 1,
		Fn: func(args ...Value) (Value, error) { return StringValue(fn(args[0].String())), nil },
	}
}

func predicate(name, doc string, fn func(Value) bool) Func {
	return Func{
		Name: name, Usage: name + "(v)", Doc: doc,
		MinArgs: 1, MaxArgs: 1,
		Fn: func(args ...Value) (Value, error) { return BoolValue(fn(args[0])), nil },
	}
}

func kindIs(k Kind) func(Value) bool {
	return func(v Value) bool { return v.Kind() == k }
}

func strs(args []Value) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.String()
	}

	return out
}

func argString(args []Value, i int, def string) string {
	if i >= len(args) || args[i].IsNull() {
		return def
	}

	return args[i].String()
}

func argNumber(args []Value, i int, fn string) (float64, error) {
	n, ok := args[i].Number()
	if !ok {
		return 0, ErrFunctionCall.With(
			slog.String("function", fn),
			slog.String("issue", "argument is not numeric"),
			slog.Int("arg", i),
			slog.String("value", args[i].String()),
		)
	}

	return n, nil
}

func argInt(args []Value, i int, fn string) (int, error) {
	n, err := argNumber(args, i, fn)

	return int(math.Trunc(n)), err
}

// product returns a*b for non-negative a and b, saturating at math.MaxInt.
// Negative operands count as zero.
func product(a, b int) int {
	if a <= 0 || b <= 0 {
		return 0
	}

	if a > math.MaxInt/b {
		return math.MaxInt
	}

	return a * b
}

func ucfirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}

	return string(unicode.ToUpper(r)) + s[n:]
}

func trimmer(
	cut func(s, cutset string) string,
	space func(string) string,
) func(...Value) (Value, error) {
	return func(args ...Value) (Value, error) {
		if len(args) > 1 && !args[1].IsNull() {
			return StringValue(cut(args[0].String(), args[1].String())), nil
		}

		return StringValue(space(args[0].String())), nil
	}
}

func truncate(args ...Value) (Value, error) {
	n, err := argInt(args, 1, "truncate")
	if err != nil {
		return Null, err
	}

	s := []rune(args[0].String())
	if n < 0 || len(s) <= n {
		return StringValue(string(s)), nil
	}

	return StringValue(string(s[:n]) + argString(args, 2, "...")), nil
}

func contains(haystack, needle Value) bool {
	switch haystack.Kind() {
	case KindSequence:
		for _, item := range haystack.Items() {
			if LooseEqual(item, needle) {
				return true
			}
		}

		return false

	case KindMapping:
		_, ok := haystack.Mapping().Get(needle.String())

		return ok

	default:
		return strings.Contains(haystack.String(), needle.String())
	}
}

func join(args ...Value) (Value, error) {
	sep := argString(args, 1, ",")

	var parts []string

	switch v := args[0]; v.Kind() {
	case KindSequence:
		parts = strs(v.Items())

	case KindMapping:
		for _, item := range v.Mapping().All() {
			parts = append(parts, item.String())
		}

	default:
		return StringValue(v.String()), nil
	}

	return StringValue(strings.Join(parts, sep)), nil
}

func printer(args []Value, i int, fn string) (*message.Printer, error) {
	locale := argString(args, i, DefaultLocale)

	tag, err := language.Parse(locale)
	if err != nil {
		return nil, ErrFunctionCall.Wrap(err).With(
			slog.String("function", fn),
			slog.String("locale", locale),
		)
	}

	return message.NewPrinter(tag), nil
}

func numberFormat(args ...Value) (Value, error) {
	n, err := argNumber(args, 0, "number_format")
	if err != nil {
		return Null, err
	}

	decimals := 0
	if len(args) > 1 && !args[1].IsNull() {
		if decimals, err = argInt(args, 1, "number_format"); err != nil {
			return Null, err
		}
	}

	p, err := printer(args, 2, "number_format")
	if err != nil {
		return Null, err
	}

	return StringValue(p.Sprintf("%v", number.Decimal(n,
		number.Scale(min(max(decimals, 0), MaxDecimals)),
	))), nil
}

func currencyFormat(args ...Value) (Value, error) {
	n, err := argNumber(args, 0, "currency_format")
	if err != nil {
		return Null, err
	}

	unit, err := currency.ParseISO(args[1].String())
	if err != nil {
		return Null, ErrFunctionCall.Wrap(err).With(
			slog.String("function", "currency_format"),
			slog.String("code", args[1].String()),
		)
	}

	p, err := printer(args, 2, "currency_format")
	if err != nil {
		return Null, err
	}

	return StringValue(p.Sprintf("%v", currency.Symbol(unit.Amount(n)))), nil
}

func percentFormat(args ...Value) (Value, error) {
	n, err := argNumber(args, 0, "percent_format")
	if err != nil {
		return Null, err
	}

	p, err := printer(args, 1, "percent_format")
	if err != nil {
		return Null, err
	}

	return StringValue(p.Sprintf("%v", number.Percent(n))), nil
}

// mungPrefix prepends items to the list. It never consults the file system.
func mungPrefix(list string, items ...string) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(items...),
	).String()
}

// timeLayouts are the string timestamp forms the date function accepts.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	time.DateOnly,
}

func parseTime(v Value) (time.Time, error) {
	if n, ok := v.Number(); ok {
		sec, frac := math.Modf(n)

		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	}

	s := strings.TrimSpace(v.String())
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, ErrFunctionCall.With(
		slog.String("function", "date"),
		slog.String("issue", "unrecognized timestamp"),
		slog.String("value", s),
	)
}

// formatDate formats t using PHP date() format characters. A backslash
// emits the following character literally.
func formatDate(format string, t time.Time) string {
	var b strings.Builder

	for i := 0; i < len(format); {
		r, n := utf8.DecodeRuneInString(format[i:])
		i += n

		if r == '\\' && i < len(format) {
			r, n = utf8.DecodeRuneInString(format[i:])
			i += n

			b.WriteRune(r)

			continue
		}

		b.WriteString(dateField(r, t))
	}

	return b.String()
}

func dateField(r rune, t time.Time) string {
	switch r {
	case 'd':
		return t.Format("02")

	case 'D':
		return t.Format("Mon")

	case 'j':
		return strconv.Itoa(t.Day())

	case 'l':
		return t.Weekday().String()

	case 'N':
		return strconv.Itoa((int(t.Weekday())+6)%7 + 1)

	case 'w':
		return strconv.Itoa(int(t.Weekday()))

	case 'z':
		return strconv.Itoa(t.YearDay() - 1)

	case 'W':
		_, week := t.ISOWeek()

		return pad2(week)

	case 'F':
		return t.Month().String()

	case 'm':
		return t.Format("01")

	case 'M':
		return t.Format("Jan")

	case 'n':
		return strconv.Itoa(int(t.Month()))

	case 't':
		return strconv.Itoa(time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day())

	case 'L':
		if y := t.Year(); y%4 == 0 && (y%100 != 0 || y%400 == 0) {
			return "1"
		}

		return "0"

	case 'Y':
		return strconv.Itoa(t.Year())

	case 'y':
		return t.Format("06")

	case 'a':
		return strings.ToLower(t.Format("PM"))

	case 'A':
		return t.Format("PM")

	case 'g':
		return t.Format("3")

	case 'G':
		return strconv.Itoa(t.Hour())

	case 'h':
		return t.Format("03")

	case 'H':
		return t.Format("15")

	case 'i':
		return t.Format("04")

	case 's':
		return t.Format("05")

	case 'v':
		return t.Format(".000")[1:]

	case 'e':
		return t.Location().String()

	case 'T':
		return t.Format("MST")

	case 'O':
		return t.Format("-0700")

	case 'P':
		return t.Format("-07:00")

	case 'c':
		return t.Format(time.RFC3339)

	case 'r':
		return t.Format(time.RFC1123Z)

	case 'U':
		return strconv.FormatInt(t.Unix(), 10)

	default:
		return string(r)
	}
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}

	return strconv.Itoa(n)
}
