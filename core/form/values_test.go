package form

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/refdata"
)

func districtLookup(ctx context.Context, setName string) ([]refdata.Option, error) {
	if setName != "Districts" {
		return nil, nil
	}
	return []refdata.Option{{Key: "north", Value: "North"}, {Key: "south", Value: "South"}}, nil
}

func TestValuesUnmarshalJSON(t *testing.T) {
	var v Values
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","b":12.50,"c":true,"d":null}`), &v))
	assert.Equal(t, Values{"a": "x", "b": "12.50", "c": "true"}, v)

	assert.Error(t, json.Unmarshal([]byte(`{"a":[1]}`), &v))
}

func TestValidateDraft(t *testing.T) {
	def := Definition{Fields: append(populationFields(),
		FieldSpec{Name: "visited", Label: "Visited", Type: FieldDate},
		FieldSpec{Name: "facility", Label: "Facility", Type: FieldSelect, Required: true, ReferenceDataName: "Facilities"},
	)}

	tests := []struct {
		name       string
		values     Values
		want       Values
		wantFields map[string]string
	}{
		{
			name: "Valid",
			values: Values{
				"district":                "north",
				"population.youth.male":   " 12 ",
				"population.youth.female": "3.5",
				"population.youth.total":  "999",
				"visited":                 "2025-01-31",
			},
			want: Values{
				"district":                "north",
				"population.youth.male":   "12",
				"population.youth.female": "3.5",
				"visited":                 "2025-01-31",
			},
		},
		{
			name: "Invalid",
			values: Values{
				"population.youth.male":  "twelve",
				"population.adults.male": "n/a",
				"visited":                "31/01/2025",
				"population":             "1",
				"bogus":                  "x",
			},
			wantFields: map[string]string{
				"data.bogus":                  "unknown field",
				"data.population":             "unknown field",
				"data.district":               "this field is required",
				"data.population.youth.male":  "must be a number",
				"data.population.adults.male": "must be a number",
				"data.visited":                "must be a date (YYYY-MM-DD)",
			},
		},
		{
			name: "Out Of Range",
			values: Values{
				"district":                "north",
				"population.youth.male":   "1e20000000",
				"population.youth.female": "0.0000000000000000000001",
				"population.adults.male":  "1234567890123456789012345678901",
			},
			wantFields: map[string]string{
				"data.population.youth.male":   "number is out of range",
				"data.population.youth.female": "number is out of range",
				"data.population.adults.male":  "number is out of range",
			},
		},
		{
			name:       "Unknown Option",
			values:     Values{"district": "east"},
			wantFields: map[string]string{"data.district": "invalid option"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateDraft(context.Background(), def, tt.values, districtLookup)
			if tt.wantFields == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			var valErr *core.ValidationError
			require.ErrorAs(t, err, &valErr)
			gotFields := make(map[string]string, len(valErr.Fields))
			for _, f := range valErr.Fields {
				gotFields[f.Field] = f.Error
			}
			assert.Equal(t, tt.wantFields, gotFields)
		})
	}
}

func TestValidateDraftLookupError(t *testing.T) {
	def := Definition{Fields: []FieldSpec{{Name: "district", Type: FieldSelect, ReferenceDataName: "Districts"}}}
	failing := func(context.Context, string) ([]refdata.Option, error) { return nil, errors.New("db down") }

	_, err := ValidateDraft(context.Background(), def, Values{"district": "north"}, failing)
	require.Error(t, err)
	assert.False(t, core.IsValidation(err))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		val     string
		want    string
		wantErr bool
	}{
		{val: "12", want: "12"},
		{val: " -3.25 ", want: "-3.25"},
		{val: "1.5e3", want: "1500"},
		{val: "123456789012345678901234567890", want: "123456789012345678901234567890"},
		{val: "1e18", want: "1000000000000000000"},
		{val: "1e19", wantErr: true},
		{val: "1e-19", wantErr: true},
		{val: "1e20000000", wantErr: true},
		{val: "1e-20000000", wantErr: true},
		{val: "1234567890123456789012345678901", wantErr: true},
		{val: "n/a", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			got, err := ParseNumber(tt.val)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), got.String())
		})
	}
}

func TestAggregateIgnoresOutOfRange(t *testing.T) {
	def := Definition{Fields: []FieldSpec{
		{Name: "males", Type: FieldNumber},
		{Name: "females", Type: FieldNumber},
		{Name: "total", Type: FieldAggregate, AggregateFields: []string{"males", "females"}},
	}}

	got := Aggregate(def, Values{"males": "1e20000000", "females": "1"})
	assert.True(t, decimal.NewFromInt(1).Equal(got["total"]))
}

func TestAggregate(t *testing.T) {
	def := Definition{Fields: []FieldSpec{
		{Name: "males", Type: FieldNumber},
		{Name: "females", Type: FieldNumber},
		{Name: "total", Type: FieldAggregate, AggregateFields: []string{"males", "females"}},
		{Name: "grand", Type: FieldAggregate, AggregateFields: []string{"total", "others"}},
		{Name: "others", Type: FieldNumber},
		{Name: "age", Type: FieldNumber, SubHeaders: []SubHeader{
			{Name: "youth", Fields: []FieldSpec{
				{Name: "a", Type: FieldNumber},
				{Name: "b", Type: FieldNumber},
				{Name: "sum", Type: FieldAggregate, AggregateFields: []string{"a", "b"}},
			}},
		}},
	}}
	values := Values{
		"males":       "2",
		"females":     "3.25",
		"others":      "oops",
		"age.youth.a": "1",
	}

	got := Aggregate(def, values)
	require.Len(t, got, 3)
	assert.True(t, decimal.RequireFromString("5.25").Equal(got["total"]))
	assert.True(t, decimal.RequireFromString("5.25").Equal(got["grand"]))
	assert.True(t, decimal.NewFromInt(1).Equal(got["age.youth.sum"]))
}
