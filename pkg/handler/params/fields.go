// Package params reads and checks query parameters. Every problem found is
// kept so one 422 response can list them all.
package params

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid parameter")

// Rule is the shape a string value must have.
type Rule struct {
	MaxLen  int
	Pattern *regexp.Regexp
	// shown in the error instead of the raw pattern
	Describe string
}

var (
	VOGID      = Rule{MaxLen: 10, Pattern: regexp.MustCompile(`^VOG`), Describe: "a VOG id"}
	PlainVOGID = Rule{MaxLen: 10, Pattern: regexp.MustCompile(`^VOG\d+$`), Describe: "a VOG id"}
	ProteinID  = Rule{MaxLen: 30, Pattern: regexp.MustCompile(`^.*(YP|NP).*$`), Describe: "a protein id"}
	Letters    = Rule{MaxLen: 20, Pattern: regexp.MustCompile(`^[a-zA-Z\s]*$`), Describe: "letters and spaces"}
	ShortText  = Rule{MaxLen: 20}
	Category   = Rule{MaxLen: 5}
	Text       = Rule{MaxLen: 100}
	Lineage    = Rule{MaxLen: 200}
)

const (
	MaxTaxonID = 9999999
	MaxCount   = 999999
)

func (r Rule) Check(name, v string) error {
	if r.MaxLen > 0 && len(v) > r.MaxLen {
		return fmt.Errorf("%w: %s: ensure this value has at most %d characters", ErrInvalid, name, r.MaxLen)
	}
	if r.Pattern != nil && !r.Pattern.MatchString(v) {
		return fmt.Errorf("%w: %s: %q is not %s", ErrInvalid, name, v, r.Describe)
	}
	return nil
}

// Query wraps url.Values. Getters return the zero value on problems and
// record them for Err.
type Query struct {
	values url.Values
	errs   []error
}

func New(values url.Values) *Query {
	return &Query{values: values}
}

func (q *Query) fail(err error) {
	q.errs = append(q.errs, err)
}

// Err joins everything that went wrong, nil when all values were fine.
func (q *Query) Err() error {
	return errors.Join(q.errs...)
}

// Has reports whether any of names was sent.
func (q *Query) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := q.values[n]; ok {
			return true
		}
	}
	return false
}

// raw returns the values of all names, in the order they were given.
func (q *Query) raw(names ...string) []string {
	var out []string
	for _, n := range names {
		out = append(out, q.values[n]...)
	}
	return out
}

// Strings returns the repeatable parameter under any of names.
func (q *Query) Strings(rule Rule, names ...string) []string {
	var out []string
	for _, v := range q.raw(names...) {
		if err := rule.Check(names[0], v); err != nil {
			q.fail(err)
			continue
		}
		out = append(out, v)
	}
	return out
}

// String returns the last value, or nil when not sent.
func (q *Query) String(rule Rule, name string) *string {
	vs := q.Strings(rule, name)
	if len(vs) == 0 {
		return nil
	}
	return &vs[len(vs)-1]
}

// Ints parses a repeatable integer parameter bounded by limit.
func (q *Query) Ints(limit int64, names ...string) []int64 {
	var out []int64
	for _, v := range q.raw(names...) {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			q.fail(fmt.Errorf("%w: %s: value is not a valid integer", ErrInvalid, names[0]))
			continue
		}
		if n > limit {
			q.fail(fmt.Errorf("%w: %s: ensure this value is less than or equal to %d", ErrInvalid, names[0], limit))
			continue
		}
		out = append(out, n)
	}
	return out
}

// Int is the single valued form of Ints. Negative values are passed on,
// the caller decides what they mean.
func (q *Query) Int(limit int64, name string) *int64 {
	vs := q.Ints(limit, name)
	if len(vs) == 0 {
		return nil
	}
	return &vs[len(vs)-1]
}

// Bool accepts the usual spellings: true/false, 1/0, yes/no, on/off.
func (q *Query) Bool(name string) *bool {
	vs := q.raw(name)
	if len(vs) == 0 {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(vs[len(vs)-1])) {
	case "true", "1", "yes", "on", "t":
		b := true
		return &b
	case "false", "0", "no", "off", "f":
		b := false
		return &b
	}
	q.fail(fmt.Errorf("%w: %s: value could not be parsed to a boolean", ErrInvalid, name))
	return nil
}

// Require records a missing parameter.
func (q *Query) Require(names ...string) {
	if !q.Has(names...) {
		q.fail(fmt.Errorf("%w: %s: field required", ErrInvalid, names[0]))
	}
}
