package csvimport

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Kind is the expected type of a cell
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindDecimal
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "boolean"
	}
	return "text"
}

// Rule constrains one column
type Rule struct {
	Column   string
	Required bool
	Kind     Kind
	MaxLen   int
	Min      *decimal.Decimal
	Unique   bool
	Pattern  *regexp.Regexp
	Format   string // human description of Pattern
	Check    func(value string) error
}

// RuleBuilder builds a Rule fluently
type RuleBuilder struct{ rule Rule }

// Column starts a rule for the named column
func Column(name string) *RuleBuilder {
	return &RuleBuilder{rule: Rule{Column: name}}
}

func (b *RuleBuilder) Required() *RuleBuilder { b.rule.Required = true; return b }
func (b *RuleBuilder) Int() *RuleBuilder      { b.rule.Kind = KindInt; return b }
func (b *RuleBuilder) Decimal() *RuleBuilder  { b.rule.Kind = KindDecimal; return b }
func (b *RuleBuilder) Bool() *RuleBuilder     { b.rule.Kind = KindBool; return b }
func (b *RuleBuilder) Unique() *RuleBuilder   { b.rule.Unique = true; return b }

// MaxLen limits the length in characters
func (b *RuleBuilder) MaxLen(n int) *RuleBuilder { b.rule.MaxLen = n; return b }

// Min sets an inclusive lower bound for numeric kinds
func (b *RuleBuilder) Min(v decimal.Decimal) *RuleBuilder { b.rule.Min = &v; return b }

// Match requires the value to match re; format describes it in errors
func (b *RuleBuilder) Match(re *regexp.Regexp, format string) *RuleBuilder {
	b.rule.Pattern, b.rule.Format = re, format
	return b
}

// Check adds a custom validation run after the built-in ones
func (b *RuleBuilder) Check(fn func(string) error) *RuleBuilder { b.rule.Check = fn; return b }

// Build returns the rule
func (b *RuleBuilder) Build() Rule { return b.rule }

// Schema validates rows against a set of rules
type Schema struct {
	rules    []Rule
	expected []string
	seen     map[string]map[string]int // column -> value -> first line
}

// NewSchema creates a schema from rules
func NewSchema(rules ...Rule) *Schema {
	return &Schema{rules: rules, seen: make(map[string]map[string]int)}
}

// Expect requires columns in the header without requiring a value in
// every row
func (s *Schema) Expect(columns ...string) *Schema {
	s.expected = append(s.expected, columns...)
	return s
}

// RequiredColumns lists the columns that must be present in the header
func (s *Schema) RequiredColumns() []string {
	var cols []string
	for _, r := range s.rules {
		if r.Required {
			cols = append(cols, r.Column)
		}
	}
	for _, c := range s.expected {
		if !slices.Contains(cols, c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// Validate checks a row and records every problem in errs. It returns false
// when the row has at least one error.
func (s *Schema) Validate(row *Row, errs *Collector) bool {
	ok := true
	for _, rule := range s.rules {
		if !s.validateCell(rule, row, errs) {
			ok = false
		}
	}
	return ok
}

func (s *Schema) validateCell(rule Rule, row *Row, errs *Collector) bool {
	value := row.Get(rule.Column)
	fail := func(code, msg string) bool {
		errs.Add(RowError{Row: row.Line, Column: rule.Column, Code: code, Message: msg, Value: value})
		return false
	}

	if value == "" {
		if rule.Required {
			return fail(CodeRequired, "value is required")
		}
		return true
	}

	if rule.MaxLen > 0 && utf8.RuneCountInString(value) > rule.MaxLen {
		return fail(CodeInvalidLength, "must be at most "+strconv.Itoa(rule.MaxLen)+" characters")
	}

	switch rule.Kind {
	case KindInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fail(CodeInvalidType, "must be an integer")
		}
	case KindDecimal:
		if _, err := decimal.NewFromString(value); err != nil {
			return fail(CodeInvalidType, "must be a decimal number")
		}
	case KindBool:
		if _, ok := ParseBool(value); !ok {
			return fail(CodeInvalidType, "must be true or false")
		}
	}

	if rule.Min != nil && (rule.Kind == KindInt || rule.Kind == KindDecimal) {
		if d, _ := decimal.NewFromString(value); d.LessThan(*rule.Min) {
			return fail(CodeOutOfRange, "must be at least "+rule.Min.String())
		}
	}

	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		return fail(CodeInvalidFormat, "must be "+rule.Format)
	}

	if rule.Unique {
		seen := s.seen[rule.Column]
		if seen == nil {
			seen = make(map[string]int)
			s.seen[rule.Column] = seen
		}
		key := strings.ToLower(value)
		if first, dup := seen[key]; dup {
			return fail(CodeDuplicate, "duplicates row "+strconv.Itoa(first))
		}
		seen[key] = row.Line
	}

	if rule.Check != nil {
		if err := rule.Check(value); err != nil {
			return fail(CodeInvalidFormat, err.Error())
		}
	}
	return true
}

// ParseBool accepts the spellings spreadsheets commonly use
func ParseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}
