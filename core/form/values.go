package form

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/refdata"
)

// DateLayout is the layout of date field values.
const DateLayout = "2006-01-02"

// Bounds of number field values. Wider values make decimal arithmetic unbounded.
const (
	maxNumberDigits = 30
	maxNumberScale  = 18
)

var errNumberOutOfRange = errors.New("number out of range")

// ParseNumber parses a number field value, rejecting values with more than
// maxNumberDigits significant digits or an exponent beyond maxNumberScale.
func ParseNumber(val string) (decimal.Decimal, error) {
	val = strings.TrimSpace(val)
	if len(val) > 2*maxNumberDigits {
		return decimal.Zero, errNumberOutOfRange
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, err
	}
	digits := len(strings.TrimPrefix(d.Coefficient().String(), "-"))
	if exp := d.Exponent(); exp > maxNumberScale || exp < -maxNumberScale || digits > maxNumberDigits {
		return decimal.Zero, errNumberOutOfRange
	}
	return d, nil
}

// Values holds a submission payload keyed by field key.
// Every value is kept as its textual representation.
type Values map[string]string

// UnmarshalJSON accepts strings, numbers and booleans; nulls are dropped.
func (v *Values) UnmarshalJSON(data []byte) error {
	raw := make(map[string]interface{})
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for key, val := range raw {
		switch tv := val.(type) {
		case nil:
			continue
		case string:
			out[key] = tv
		case json.Number:
			out[key] = tv.String()
		case bool:
			out[key] = fmt.Sprint(tv)
		default:
			return errors.Errorf("field %q: unsupported value type %T", key, val)
		}
	}
	*v = out
	return nil
}

// OptionsLookup resolves the options of a reference data set by name.
type OptionsLookup func(ctx context.Context, setName string) ([]refdata.Option, error)

// ValidateDraft checks a submission payload against a definition and returns the
// cleaned values to persist. Aggregate values are derived, any provided are dropped.
func ValidateDraft(ctx context.Context, def Definition, values Values, lookup OptionsLookup) (Values, error) {
	leaves := def.Leaves()
	var flds []core.FieldError
	report := func(key, msg string) {
		flds = append(flds, core.FieldError{Field: "data." + key, Error: msg})
	}

	unknown := make([]string, 0)
	for key := range values {
		if _, ok := leaves[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		report(key, "unknown field")
	}

	optsCache := make(map[string]map[string]struct{})
	options := func(setName string) (map[string]struct{}, error) {
		if opts, ok := optsCache[setName]; ok {
			return opts, nil
		}
		opts := make(map[string]struct{})
		if lookup != nil {
			list, err := lookup(ctx, setName)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving options of %q", setName)
			}
			for _, o := range list {
				opts[o.Key] = struct{}{}
			}
		}
		optsCache[setName] = opts
		return opts, nil
	}

	cleaned := make(Values)
	for _, key := range def.LeafKeys() {
		f := leaves[key]
		if f.Type == FieldAggregate {
			continue
		}
		val := core.CleanString(values[key])

		var opts map[string]struct{}
		if f.Type == FieldSelect {
			var err error
			if opts, err = options(f.ReferenceDataName); err != nil {
				return nil, err
			}
		}

		if val == "" {
			// a select without options cannot be answered
			if f.Required && !(f.Type == FieldSelect && len(opts) == 0) {
				report(key, "this field is required")
			}
			continue
		}

		switch f.Type {
		case FieldNumber:
			if _, err := ParseNumber(val); err != nil {
				if err == errNumberOutOfRange {
					report(key, "number is out of range")
				} else {
					report(key, "must be a number")
				}
				continue
			}
		case FieldDate:
			if _, err := time.Parse(DateLayout, val); err != nil {
				report(key, "must be a date (YYYY-MM-DD)")
				continue
			}
		case FieldSelect:
			if len(opts) > 0 {
				if _, ok := opts[val]; !ok {
					report(key, "invalid option")
					continue
				}
			}
		}
		cleaned[key] = val
	}

	if len(flds) > 0 {
		return nil, core.NewValidationError(nil, flds...)
	}
	return cleaned, nil
}

// Aggregate computes the value of every aggregate field of def from values.
// Blank, non numeric or out of range sources count as zero.
func Aggregate(def Definition, values Values) map[string]decimal.Decimal {
	sources := make(map[string][]string)
	Walk(def.Fields, func(key string, f FieldSpec, _ int) {
		if f.Type != FieldAggregate || f.HasSubHeaders() {
			return
		}
		prefix := strings.TrimSuffix(key, f.Name)
		srcKeys := make([]string, 0, len(f.AggregateFields))
		for _, src := range f.AggregateFields {
			srcKeys = append(srcKeys, prefix+src)
		}
		sources[key] = srcKeys
	})

	result := make(map[string]decimal.Decimal, len(sources))
	inProgress := make(map[string]bool)
	var compute func(key string) decimal.Decimal
	compute = func(key string) decimal.Decimal {
		if v, ok := result[key]; ok {
			return v
		}
		srcs, isAgg := sources[key]
		if !isAgg {
			d, err := ParseNumber(values[key])
			if err != nil {
				return decimal.Zero
			}
			return d
		}
		if inProgress[key] {
			return decimal.Zero
		}
		inProgress[key] = true
		sum := decimal.Zero
		for _, src := range srcs {
			sum = sum.Add(compute(src))
		}
		inProgress[key] = false
		result[key] = sum
		return sum
	}
	for key := range sources {
		compute(key)
	}
	return result
}
