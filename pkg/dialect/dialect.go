// Package dialect provides SQL dialect configuration for the generator.
//
// This package contains the public contract for dialect definitions.
// Concrete dialect implementations are registered from pkg/dialects/*/
// packages.
package dialect

import (
	"strings"
)

// Normalization controls how unquoted identifiers are folded.
type Normalization int

const (
	NormPreserve Normalization = iota
	NormLowercase
	NormUppercase
)

// LimitStyle controls how row limiting is rendered.
type LimitStyle int

const (
	// StyleLimitOffset renders LIMIT n OFFSET m.
	StyleLimitOffset LimitStyle = iota
	// StyleLimitComma renders LIMIT m, n.
	StyleLimitComma
	// StyleTop renders TOP n after SELECT; offsets fall back to
	// OFFSET m ROWS FETCH NEXT n ROWS ONLY.
	StyleTop
	// StyleOffsetFetch always renders OFFSET m ROWS FETCH NEXT n ROWS ONLY.
	StyleOffsetFetch
)

// String returns a human readable name for the limit style.
func (s LimitStyle) String() string {
	switch s {
	case StyleLimitComma:
		return "LIMIT m, n"
	case StyleTop:
		return "TOP n"
	case StyleOffsetFetch:
		return "OFFSET .. FETCH"
	default:
		return "LIMIT / OFFSET"
	}
}

// Dialect is one SQL dialect configuration.
type Dialect struct {
	Name string

	// Identifier quoting
	Quote         string
	QuoteEnd      string
	Escape        string // replacement for QuoteEnd inside quoted identifiers
	Normalization Normalization

	Limit            LimitStyle
	SupportsWindow   bool
	SupportsFullJoin bool
	BoolAsInt        bool   // render true/false as 1/0
	DateTemplate     string // e.g. "DATE '%s'"

	functions     map[string]string // canonical function name -> SQL template
	reservedWords map[string]struct{}
}

// NormalizeName folds an identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Normalization {
	case NormUppercase:
		return strings.ToUpper(name)
	case NormLowercase:
		return strings.ToLower(name)
	default:
		return name
	}
}

// FunctionSQL returns the SQL template for a canonical function name.
// Templates are fmt format strings over the rendered arguments.
func (d *Dialect) FunctionSQL(name string) (string, bool) {
	tmpl, ok := d.functions[name]
	return tmpl, ok
}

// IsReservedWord returns true if the word needs quoting as an identifier.
// Reserved words are matched case insensitively.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[strings.ToLower(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.QuoteEnd, d.Escape)
	return d.Quote + escaped + d.QuoteEnd
}

// QuoteIfNeeded quotes an identifier when it is reserved or not a plain
// lowercase word.
func (d *Dialect) QuoteIfNeeded(name string) string {
	if d.IsReservedWord(name) || !plainIdent(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

func plainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// standardFunctions maps canonical built-in names to ANSI SQL renderings.
// Dialects override individual entries via the builder.
var standardFunctions = map[string]string{
	"sum":     "SUM(%s)",
	"average": "AVG(%s)",
	"count":   "COUNT(%s)",
	"min":     "MIN(%s)",
	"max":     "MAX(%s)",
	"stddev":  "STDDEV(%s)",

	"abs":    "ABS(%s)",
	"floor":  "FLOOR(%s)",
	"ceil":   "CEIL(%s)",
	"round":  "ROUND(%[2]s, %[1]s)",
	"sqrt":   "SQRT(%s)",
	"ln":     "LN(%s)",
	"log10":  "LOG10(%s)",
	"lower":  "LOWER(%s)",
	"upper":  "UPPER(%s)",
	"length": "LENGTH(%s)",
	"trim":   "TRIM(%s)",

	"row_number": "ROW_NUMBER()",
	"rank":       "RANK()",
	"lag":        "LAG(%s)",
	"lead":       "LEAD(%s)",
}

// standardReserved is the shared core of reserved words. Individual dialects
// extend it via the builder.
var standardReserved = []string{
	"select", "from", "where", "group", "order", "by", "having", "join",
	"left", "right", "full", "inner", "outer", "on", "as", "and", "or",
	"not", "union", "all", "limit", "offset", "with", "case", "when",
	"then", "else", "end", "table", "user", "column", "default",
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with ANSI defaults.
func NewDialect(name string) *Builder {
	d := &Dialect{
		Name:             name,
		Quote:            `"`,
		QuoteEnd:         `"`,
		Escape:           `""`,
		Normalization:    NormPreserve,
		Limit:            StyleLimitOffset,
		SupportsWindow:   true,
		SupportsFullJoin: true,
		DateTemplate:     "DATE '%s'",
		functions:        make(map[string]string, len(standardFunctions)),
		reservedWords:    make(map[string]struct{}),
	}
	for k, v := range standardFunctions {
		d.functions[k] = v
	}
	b := &Builder{dialect: d}
	return b.ReservedWords(standardReserved...)
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm Normalization) *Builder {
	b.dialect.Quote = quote
	b.dialect.QuoteEnd = quoteEnd
	b.dialect.Escape = escape
	b.dialect.Normalization = norm
	return b
}

// LimitStyle sets how row limiting is rendered.
func (b *Builder) LimitStyle(style LimitStyle) *Builder {
	b.dialect.Limit = style
	return b
}

// NoWindowFunctions marks the dialect as lacking window function support.
func (b *Builder) NoWindowFunctions() *Builder {
	b.dialect.SupportsWindow = false
	return b
}

// NoFullJoin marks the dialect as lacking FULL OUTER JOIN support.
func (b *Builder) NoFullJoin() *Builder {
	b.dialect.SupportsFullJoin = false
	return b
}

// BoolAsInt renders boolean literals as 1 and 0.
func (b *Builder) BoolAsInt() *Builder {
	b.dialect.BoolAsInt = true
	return b
}

// DateLiteral sets the template for date literals.
func (b *Builder) DateLiteral(tmpl string) *Builder {
	b.dialect.DateTemplate = tmpl
	return b
}

// Function overrides the SQL template for one canonical function.
func (b *Builder) Function(name, tmpl string) *Builder {
	b.dialect.functions[name] = tmpl
	return b
}

// Functions overrides SQL templates in bulk.
func (b *Builder) Functions(overrides map[string]string) *Builder {
	for name, tmpl := range overrides {
		b.dialect.functions[name] = tmpl
	}
	return b
}

// ReservedWords registers words that need quoting when used as identifiers.
func (b *Builder) ReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[strings.ToLower(w)] = struct{}{}
	}
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
