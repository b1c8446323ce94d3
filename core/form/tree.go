package form

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/statbureau/datahub/core"
)

// MaxDepth caps sub-header nesting: top level fields sit at depth 0.
const MaxDepth = 4

const keySep = "."

// FieldKey returns the key of a field under parentKey.subHeader.
func FieldKey(parentKey, subHeader, name string) string {
	if parentKey == "" {
		return name
	}
	return parentKey + keySep + subHeader + keySep + name
}

// WalkFunc is called for every node of a field tree in depth first order.
type WalkFunc func(key string, f FieldSpec, depth int)

// Walk traverses fields depth first, parents before their children.
func Walk(fields []FieldSpec, fn WalkFunc) {
	walk(fields, "", "", 0, fn)
}

func walk(fields []FieldSpec, parentKey, subHeader string, depth int, fn WalkFunc) {
	for _, f := range fields {
		key := FieldKey(parentKey, subHeader, f.Name)
		fn(key, f, depth)
		for _, sh := range f.SubHeaders {
			walk(sh.Fields, key, sh.Name, depth+1, fn)
		}
	}
}

// Leaves returns the value holding fields keyed by field key, aggregates included.
func (d Definition) Leaves() map[string]FieldSpec {
	leaves := make(map[string]FieldSpec)
	Walk(d.Fields, func(key string, f FieldSpec, _ int) {
		if !f.HasSubHeaders() {
			f.Key = key
			leaves[key] = f
		}
	})
	return leaves
}

// LeafKeys returns the keys of value holding fields in definition order.
func (d Definition) LeafKeys() []string {
	var keys []string
	Walk(d.Fields, func(key string, f FieldSpec, _ int) {
		if !f.HasSubHeaders() {
			keys = append(keys, key)
		}
	})
	return keys
}

// Flatten turns a definition tree into rows ready to be persisted.
// Rows are returned parents first so they can be inserted in order.
func Flatten(formID string, groups []FieldGroup, fields []FieldSpec) ([]FieldGroup, []FieldRow) {
	groupIDs := make(map[string]string, len(groups))
	outGroups := make([]FieldGroup, 0, len(groups))
	for i, g := range groups {
		g.ID = uuid.NewString()
		g.FormID = formID
		g.Order = i
		groupIDs[g.Name] = g.ID
		outGroups = append(outGroups, g)
	}

	var (
		rows  []FieldRow
		order int
	)
	var flatten func(fields []FieldSpec, parentID *string, parentKey, subHeader string, depth int)
	flatten = func(fields []FieldSpec, parentID *string, parentKey, subHeader string, depth int) {
		for _, f := range fields {
			row := FieldRow{
				ID:                uuid.NewString(),
				FormID:            formID,
				ParentID:          parentID,
				Key:               FieldKey(parentKey, subHeader, f.Name),
				Name:              f.Name,
				Label:             f.Label,
				Type:              f.Type,
				Required:          f.Required,
				Primary:           f.Primary,
				Secondary:         f.Secondary,
				ReferenceDataName: strPtr(f.ReferenceDataName),
				Placeholder:       strPtr(f.Placeholder),
				AggregateFields:   append([]string{}, f.AggregateFields...),
				SubHeaders:        make([]SubHeaderMeta, 0, len(f.SubHeaders)),
				Order:             order,
				Depth:             depth,
			}
			if parentID != nil {
				sh := subHeader
				row.SubHeaderName = &sh
			}
			if id, ok := groupIDs[f.Group]; ok {
				gid := id
				row.GroupID = &gid
			}
			for _, sh := range f.SubHeaders {
				row.SubHeaders = append(row.SubHeaders, SubHeaderMeta{Name: sh.Name, Label: sh.Label})
			}
			order++
			rows = append(rows, row)

			id := row.ID
			for _, sh := range f.SubHeaders {
				flatten(sh.Fields, &id, row.Key, sh.Name, depth+1)
			}
		}
	}
	flatten(fields, nil, "", "", 0)
	return outGroups, rows
}

// Build rebuilds the definition tree from persisted rows.
func Build(form Form, groups []FieldGroup, rows []FieldRow) Definition {
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Order < groups[j].Order })
	groupNames := make(map[string]string, len(groups))
	for _, g := range groups {
		groupNames[g.ID] = g.Name
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Order < rows[j].Order })
	type childKey struct{ parentID, subHeader string }
	children := make(map[childKey][]FieldRow)
	var roots []FieldRow
	for _, r := range rows {
		if r.ParentID == nil {
			roots = append(roots, r)
			continue
		}
		ck := childKey{parentID: *r.ParentID, subHeader: deref(r.SubHeaderName)}
		children[ck] = append(children[ck], r)
	}

	var build func(rows []FieldRow) []FieldSpec
	build = func(rows []FieldRow) []FieldSpec {
		specs := make([]FieldSpec, 0, len(rows))
		for _, r := range rows {
			f := FieldSpec{
				Key:               r.Key,
				Name:              r.Name,
				Label:             r.Label,
				Type:              r.Type,
				Required:          r.Required,
				Primary:           r.Primary,
				Secondary:         r.Secondary,
				ReferenceDataName: deref(r.ReferenceDataName),
				Placeholder:       deref(r.Placeholder),
				AggregateFields:   r.AggregateFields,
			}
			if r.GroupID != nil {
				f.Group = groupNames[*r.GroupID]
			}
			for _, sh := range r.SubHeaders {
				f.SubHeaders = append(f.SubHeaders, SubHeader{
					Name:   sh.Name,
					Label:  sh.Label,
					Fields: build(children[childKey{parentID: r.ID, subHeader: sh.Name}]),
				})
			}
			specs = append(specs, f)
		}
		return specs
	}

	if groups == nil {
		groups = []FieldGroup{}
	}
	return Definition{
		FormID:  form.ID,
		Version: form.Version,
		Groups:  groups,
		Fields:  build(roots),
	}
}

// validateTree checks the structural rules the validator tags cannot express.
func validateTree(groups []FieldGroup, fields []FieldSpec) error {
	var flds []core.FieldError
	report := func(path, msg string) {
		flds = append(flds, core.FieldError{Field: path, Error: msg})
	}

	groupNames := make(map[string]struct{}, len(groups))
	for i, g := range groups {
		if _, dup := groupNames[g.Name]; dup {
			report(fmt.Sprintf("groups[%d].name", i), "duplicate group name")
		}
		groupNames[g.Name] = struct{}{}
	}

	var check func(fields []FieldSpec, path string, depth int)
	check = func(fields []FieldSpec, path string, depth int) {
		siblings := make(map[string]FieldSpec, len(fields))
		for i, f := range fields {
			fPath := fmt.Sprintf("%s[%d]", path, i)
			if _, dup := siblings[f.Name]; dup {
				report(fPath+".name", "duplicate field name")
			}
			siblings[f.Name] = f

			if depth >= MaxDepth {
				report(fPath, fmt.Sprintf("fields cannot be nested more than %d levels deep", MaxDepth))
				continue
			}
			if f.Group != "" {
				if _, ok := groupNames[f.Group]; !ok {
					report(fPath+".group", "unknown group")
				}
			}
			if f.HasSubHeaders() {
				if f.Type == FieldAggregate {
					report(fPath+".type", "a field with sub-headers cannot be an aggregate")
				}
				shNames := make(map[string]struct{}, len(f.SubHeaders))
				for j, sh := range f.SubHeaders {
					shPath := fmt.Sprintf("%s.sub_headers[%d]", fPath, j)
					if _, dup := shNames[sh.Name]; dup {
						report(shPath+".name", "duplicate sub-header name")
					}
					shNames[sh.Name] = struct{}{}
					check(sh.Fields, shPath+".fields", depth+1)
				}
				continue
			}
			if f.Type == FieldSelect && f.ReferenceDataName == "" {
				report(fPath+".reference_data_name", "select fields require a reference data set")
			}
			if f.Type == FieldAggregate && len(f.AggregateFields) == 0 {
				report(fPath+".aggregate_fields", "aggregate fields require at least one source field")
			}
			if f.Type != FieldAggregate && len(f.AggregateFields) > 0 {
				report(fPath+".aggregate_fields", "only aggregate fields can have source fields")
			}
		}

		// aggregate sources must be numeric siblings
		for i, f := range fields {
			if f.Type != FieldAggregate || f.HasSubHeaders() {
				continue
			}
			fPath := fmt.Sprintf("%s[%d].aggregate_fields", path, i)
			for _, src := range f.AggregateFields {
				sib, ok := siblings[src]
				switch {
				case src == f.Name:
					report(fPath, "an aggregate cannot reference itself")
				case !ok:
					report(fPath, fmt.Sprintf("unknown sibling field %q", src))
				case sib.HasSubHeaders() || (sib.Type != FieldNumber && sib.Type != FieldAggregate):
					report(fPath, fmt.Sprintf("field %q is not numeric", src))
				}
			}
		}
		if cycle := aggregateCycle(fields); cycle != "" {
			report(path, "aggregate fields form a cycle: "+cycle)
		}
	}
	check(fields, "fields", 0)

	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// aggregateCycle returns a description of the first aggregate cycle among siblings, if any.
func aggregateCycle(fields []FieldSpec) string {
	deps := make(map[string][]string)
	for _, f := range fields {
		if f.Type == FieldAggregate {
			deps[f.Name] = f.AggregateFields
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(deps))
	var stack []string
	var visit func(name string) string
	visit = func(name string) string {
		switch state[name] {
		case visiting:
			return strings.Join(append(stack, name), " -> ")
		case done:
			return ""
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range deps[name] {
			if _, isAgg := deps[dep]; !isAgg || dep == name {
				continue
			}
			if cycle := visit(dep); cycle != "" {
				return cycle
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return ""
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if cycle := visit(name); cycle != "" {
			return cycle
		}
	}
	return ""
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
