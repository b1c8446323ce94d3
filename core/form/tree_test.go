package form

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statbureau/datahub/core"
)

// populationFields is a two level tree: age groups split by sex.
func populationFields() []FieldSpec {
	return []FieldSpec{
		{Name: "district", Label: "District", Type: FieldSelect, Required: true, Primary: true, ReferenceDataName: "Districts"},
		{Name: "population", Label: "Population", Type: FieldNumber, SubHeaders: []SubHeader{
			{Name: "youth", Label: "0-14", Fields: []FieldSpec{
				{Name: "male", Label: "Male", Type: FieldNumber},
				{Name: "female", Label: "Female", Type: FieldNumber},
				{Name: "total", Label: "Total", Type: FieldAggregate, AggregateFields: []string{"male", "female"}},
			}},
			{Name: "adults", Label: "15+", Fields: []FieldSpec{
				{Name: "male", Label: "Male", Type: FieldNumber},
				{Name: "female", Label: "Female", Type: FieldNumber},
			}},
		}},
		{Name: "notes", Label: "Notes", Type: FieldTextarea, Group: "extra"},
	}
}

func TestLeafKeys(t *testing.T) {
	def := Definition{Fields: populationFields()}
	assert.Equal(t, []string{
		"district",
		"population.youth.male",
		"population.youth.female",
		"population.youth.total",
		"population.adults.male",
		"population.adults.female",
		"notes",
	}, def.LeafKeys())

	leaves := def.Leaves()
	assert.Len(t, leaves, 7)
	assert.NotContains(t, leaves, "population")
	assert.Equal(t, "population.adults.female", leaves["population.adults.female"].Key)
}

func TestWalkDepth(t *testing.T) {
	depths := make(map[string]int)
	Walk(populationFields(), func(key string, _ FieldSpec, depth int) { depths[key] = depth })
	assert.Equal(t, 0, depths["population"])
	assert.Equal(t, 1, depths["population.youth.total"])
}

func TestFlattenBuild(t *testing.T) {
	groups := []FieldGroup{{Name: "extra", Label: "Extra"}}
	fields := populationFields()

	outGroups, rows := Flatten("form-1", groups, fields)
	require.Len(t, outGroups, 1)
	require.Len(t, rows, 8)

	byKey := make(map[string]FieldRow, len(rows))
	for i, r := range rows {
		assert.Equal(t, i, r.Order)
		assert.Equal(t, "form-1", r.FormID)
		byKey[r.Key] = r
	}
	parent := byKey["population"]
	child := byKey["population.adults.male"]
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)
	assert.Equal(t, "adults", *child.SubHeaderName)
	assert.Equal(t, 1, child.Depth)
	assert.Equal(t, outGroups[0].ID, *byKey["notes"].GroupID)

	// rows come back from storage in any order
	shuffled := append([]FieldRow{}, rows...)
	for i, j := 0, len(shuffled)-1; i < j; i, j = i+1, j-1 {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	def := Build(Form{ID: "form-1", Version: 3}, outGroups, shuffled)
	assert.Equal(t, 3, def.Version)
	assert.Equal(t, Definition{Fields: fields}.LeafKeys(), def.LeafKeys())
	assert.Equal(t, "extra", def.Fields[2].Group)
	assert.Equal(t, "Districts", def.Fields[0].ReferenceDataName)
	assert.Equal(t, []string{"male", "female"}, def.Fields[1].SubHeaders[0].Fields[2].AggregateFields)
}

func nested(depth int) []FieldSpec {
	leaf := []FieldSpec{{Name: "value", Label: "Value", Type: FieldNumber}}
	for i := 0; i < depth; i++ {
		leaf = []FieldSpec{{Name: "level", Label: "Level", Type: FieldText, SubHeaders: []SubHeader{
			{Name: "sub", Label: "Sub", Fields: leaf},
		}}}
	}
	return leaf
}

func TestValidateTree(t *testing.T) {
	tests := []struct {
		name       string
		groups     []FieldGroup
		fields     []FieldSpec
		wantFields map[string]string
	}{
		{name: "Valid", groups: []FieldGroup{{Name: "extra"}}, fields: populationFields()},
		{name: "Max Depth", fields: nested(MaxDepth - 1)},
		{
			name:   "Too Deep",
			fields: nested(MaxDepth),
			wantFields: map[string]string{
				"fields[0].sub_headers[0].fields[0].sub_headers[0].fields[0].sub_headers[0].fields[0].sub_headers[0].fields[0]": "fields cannot be nested more than 4 levels deep",
			},
		},
		{
			name:   "Duplicates",
			groups: []FieldGroup{{Name: "a"}, {Name: "a"}},
			fields: []FieldSpec{
				{Name: "x", Type: FieldText},
				{Name: "x", Type: FieldText, Group: "b"},
			},
			wantFields: map[string]string{
				"groups[1].name":  "duplicate group name",
				"fields[1].name":  "duplicate field name",
				"fields[1].group": "unknown group",
			},
		},
		{
			name: "Select Without Data Set",
			fields: []FieldSpec{
				{Name: "district", Type: FieldSelect},
			},
			wantFields: map[string]string{"fields[0].reference_data_name": "select fields require a reference data set"},
		},
		{
			name: "Aggregate Sources",
			fields: []FieldSpec{
				{Name: "label", Type: FieldText, AggregateFields: []string{"x"}},
				{Name: "empty", Type: FieldAggregate},
				{Name: "bad", Type: FieldAggregate, AggregateFields: []string{"label"}},
				{Name: "missing", Type: FieldAggregate, AggregateFields: []string{"nope"}},
			},
			wantFields: map[string]string{
				"fields[0].aggregate_fields": "only aggregate fields can have source fields",
				"fields[1].aggregate_fields": "aggregate fields require at least one source field",
				"fields[2].aggregate_fields": `field "label" is not numeric`,
				"fields[3].aggregate_fields": `unknown sibling field "nope"`,
			},
		},
		{
			name: "Aggregate Cycle",
			fields: []FieldSpec{
				{Name: "a", Type: FieldAggregate, AggregateFields: []string{"b"}},
				{Name: "b", Type: FieldAggregate, AggregateFields: []string{"a"}},
			},
			wantFields: map[string]string{"fields": "aggregate fields form a cycle: a -> b -> a"},
		},
		{
			name: "Container Aggregate",
			fields: []FieldSpec{
				{Name: "c", Type: FieldAggregate, SubHeaders: []SubHeader{
					{Name: "s", Fields: []FieldSpec{{Name: "v", Type: FieldNumber}}},
				}},
			},
			wantFields: map[string]string{"fields[0].type": "a field with sub-headers cannot be an aggregate"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTree(tt.groups, tt.fields)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			var valErr *core.ValidationError
			require.ErrorAs(t, err, &valErr)
			got := make(map[string]string, len(valErr.Fields))
			for _, f := range valErr.Fields {
				got[f.Field] = f.Error
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestFieldKey(t *testing.T) {
	assert.Equal(t, "a", FieldKey("", "", "a"))
	assert.Equal(t, "a.s.b", FieldKey("a", "s", "b"))
	assert.True(t, strings.HasPrefix(FieldKey("a.s.b", "t", "c"), "a.s.b.t."))
}
