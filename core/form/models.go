package form

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/statbureau/datahub/core"
)

type FieldType string

// Field types
const (
	FieldText      FieldType = "text"
	FieldNumber    FieldType = "number"
	FieldSelect    FieldType = "select"
	FieldAggregate FieldType = "aggregate"
	FieldDate      FieldType = "date"
	FieldTextarea  FieldType = "textarea"
)

// FieldTypes lists every field type, in the order offered to form authors.
var FieldTypes = []FieldType{FieldText, FieldNumber, FieldSelect, FieldAggregate, FieldDate, FieldTextarea}

func (ft FieldType) Valid() bool {
	for _, t := range FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// Form describes a data collection form. Its fields are managed through Definition.
type Form struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DepartmentID string    `json:"department_id"`
	CreatedBy    *string   `json:"created_by"`
	Version      int       `json:"version"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type (
	FieldGroup struct {
		ID     string `json:"id,omitempty"`
		FormID string `json:"-"`
		Name   string `json:"name" validate:"required,slug,max=63"`
		Label  string `json:"label" validate:"required,notblank"`
		Order  int    `json:"-"`
	}

	// FieldSpec is a node of the form definition tree. A field with sub-headers
	// is a container: its children hold the values, it holds none itself.
	FieldSpec struct {
		Key               string      `json:"key,omitempty"` // computed
		Name              string      `json:"name" validate:"required,slug,max=63"`
		Label             string      `json:"label" validate:"required,notblank"`
		Type              FieldType   `json:"type" validate:"required,fieldtype"`
		Required          bool        `json:"required"`
		Primary           bool        `json:"primary"`
		Secondary         bool        `json:"secondary"`
		ReferenceDataName string      `json:"reference_data_name,omitempty"`
		Placeholder       string      `json:"placeholder,omitempty"`
		AggregateFields   []string    `json:"aggregate_fields,omitempty"`
		Group             string      `json:"group,omitempty"`
		SubHeaders        []SubHeader `json:"sub_headers,omitempty" validate:"dive"`
	}

	SubHeader struct {
		Name   string      `json:"name" validate:"required,slug,max=63"`
		Label  string      `json:"label" validate:"required,notblank"`
		Fields []FieldSpec `json:"fields" validate:"required,min=1,dive"`
	}

	// Definition is the full field tree of a form at a given version.
	Definition struct {
		FormID  string       `json:"form_id"`
		Version int          `json:"version"`
		Groups  []FieldGroup `json:"groups"`
		Fields  []FieldSpec  `json:"fields"`
	}
)

func (f FieldSpec) HasSubHeaders() bool { return len(f.SubHeaders) > 0 }

// FieldRow is the persisted, flattened shape of a FieldSpec.
type FieldRow struct {
	ID                string
	FormID            string
	GroupID           *string
	ParentID          *string
	SubHeaderName     *string
	Key               string
	Name              string
	Label             string
	Type              FieldType
	Required          bool
	Primary           bool
	Secondary         bool
	ReferenceDataName *string
	Placeholder       *string
	AggregateFields   []string
	SubHeaders        []SubHeaderMeta
	Order             int
	Depth             int
}

// SubHeaderMeta is a sub-header as stored on its parent row.
type SubHeaderMeta struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type NewForm struct {
	Name         string `json:"name" validate:"required,notblank,max=200"`
	Description  string `json:"description"`
	DepartmentID string `json:"department_id" validate:"required,uuid"`
}

func (nf *NewForm) Validate(validate *validator.Validate) error {
	nf.Name = core.CleanString(nf.Name)
	nf.Description = core.CleanString(nf.Description)
	nf.DepartmentID = core.CleanString(nf.DepartmentID)
	return validate.Struct(nf)
}

type UpdateForm struct {
	Name         string  `json:"name" validate:"required,notblank,max=200"`
	Description  *string `json:"description"`
	DepartmentID string  `json:"department_id" validate:"required,uuid"`
}

func (uf *UpdateForm) Validate(orig Form, validate *validator.Validate) error {
	if name := core.CleanString(uf.Name); name != "" {
		uf.Name = name
	} else {
		uf.Name = orig.Name
	}
	if uf.Description == nil {
		uf.Description = &orig.Description
	}
	if dept := core.CleanString(uf.DepartmentID); dept != "" {
		uf.DepartmentID = dept
	} else {
		uf.DepartmentID = orig.DepartmentID
	}
	return validate.Struct(uf)
}

// DefineFields replaces the whole definition of a form.
// ExpectedVersion, when set, must match the stored form version.
type DefineFields struct {
	ExpectedVersion *int         `json:"expected_version"`
	Groups          []FieldGroup `json:"groups" validate:"dive"`
	Fields          []FieldSpec  `json:"fields" validate:"required,min=1,dive"`
}

func (df *DefineFields) Validate(validate *validator.Validate) error {
	cleanFields(df.Fields)
	for i := range df.Groups {
		df.Groups[i].Name = core.CleanString(df.Groups[i].Name, true /* lower */)
		df.Groups[i].Label = core.CleanString(df.Groups[i].Label)
	}
	if err := validate.Struct(df); err != nil {
		return err
	}
	return validateTree(df.Groups, df.Fields)
}

func cleanFields(fields []FieldSpec) {
	for i := range fields {
		f := &fields[i]
		f.Name = core.CleanString(f.Name, true /* lower */)
		f.Label = core.CleanString(f.Label)
		f.Group = core.CleanString(f.Group, true /* lower */)
		f.ReferenceDataName = core.CleanString(f.ReferenceDataName)
		f.Placeholder = core.CleanString(f.Placeholder)
		f.Key = ""
		for j := range f.AggregateFields {
			f.AggregateFields[j] = core.CleanString(f.AggregateFields[j], true /* lower */)
		}
		for j := range f.SubHeaders {
			f.SubHeaders[j].Name = core.CleanString(f.SubHeaders[j].Name, true /* lower */)
			f.SubHeaders[j].Label = core.CleanString(f.SubHeaders[j].Label)
			cleanFields(f.SubHeaders[j].Fields)
		}
	}
}

type QueryFilter struct {
	DepartmentID    string `query:"department_id"`
	Search          string `query:"search"`
	IncludeInactive bool   `query:"include_inactive"`
}

func (qf *QueryFilter) Clean() {
	qf.DepartmentID = core.CleanString(qf.DepartmentID)
	qf.Search = core.CleanString(qf.Search)
}
