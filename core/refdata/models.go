package refdata

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/statbureau/datahub/core"
)

// Entry ordering
const (
	OrderByValue = "value"
	OrderByKey   = "key"
)

type (
	// DataBank is a named reference data set used to populate select fields.
	DataBank struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Description  string    `json:"description"`
		DepartmentID *string   `json:"department_id"`
		IsActive     bool      `json:"is_active"`
		CreatedBy    *string   `json:"created_by"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	Entry struct {
		ID         string    `json:"id"`
		DataBankID string    `json:"data_bank_id"`
		Key        string    `json:"key"`
		Value      string    `json:"value"`
		IsActive   bool      `json:"is_active"`
		CreatedBy  *string   `json:"created_by"`
		CreatedAt  time.Time `json:"created_at"`
		UpdatedAt  time.Time `json:"updated_at"`
	}

	// Option is an entry as rendered in a select field.
	Option struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}

	// BulkResult reports the outcome of a bulk import.
	// Skipped lists the values whose key already existed in the set.
	BulkResult struct {
		Inserted []Entry  `json:"inserted"`
		Skipped  []string `json:"skipped"`
		Warning  string   `json:"warning,omitempty"`
	}
)

type NewDataBank struct {
	Name         string  `json:"name" validate:"required,notblank,max=200"`
	Description  string  `json:"description"`
	DepartmentID *string `json:"department_id" validate:"omitempty,uuid"`
}

func (nb *NewDataBank) Validate(validate *validator.Validate) error {
	nb.Name = core.CleanString(nb.Name)
	nb.Description = core.CleanString(nb.Description)
	nb.DepartmentID = core.CleanStringPtr(nb.DepartmentID)
	return validate.Struct(nb)
}

type UpdateDataBank struct {
	Name         string  `json:"name" validate:"required,notblank,max=200"`
	Description  *string `json:"description"`
	DepartmentID *string `json:"department_id" validate:"omitempty,uuid"`
}

func (ub *UpdateDataBank) Validate(orig DataBank, validate *validator.Validate) error {
	if name := core.CleanString(ub.Name); name != "" {
		ub.Name = name
	} else {
		ub.Name = orig.Name
	}
	if ub.Description == nil {
		ub.Description = &orig.Description
	}
	if ub.DepartmentID == nil {
		ub.DepartmentID = orig.DepartmentID
	} else {
		ub.DepartmentID = core.CleanStringPtr(ub.DepartmentID)
	}
	return validate.Struct(ub)
}

// NewEntry adds a single entry; Key is derived from Value when omitted.
type NewEntry struct {
	Key   string `json:"key" validate:"required,slug,max=50"`
	Value string `json:"value" validate:"required,notblank"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.Value = core.CleanString(ne.Value)
	ne.Key = core.CleanString(ne.Key, true /* lower */)
	if ne.Key == "" {
		ne.Key = GenerateKey(ne.Value)
	}
	return validate.Struct(ne)
}

type UpdateEntry struct {
	Key   string `json:"key" validate:"required,slug,max=50"`
	Value string `json:"value" validate:"required,notblank"`
}

func (ue *UpdateEntry) Validate(orig Entry, validate *validator.Validate) error {
	if val := core.CleanString(ue.Value); val != "" {
		ue.Value = val
	} else {
		ue.Value = orig.Value
	}
	if key := core.CleanString(ue.Key, true /* lower */); key != "" {
		ue.Key = key
	} else {
		ue.Key = orig.Key
	}
	return validate.Struct(ue)
}

type BulkEntries struct {
	Raw string `json:"raw" validate:"required,notblank"`
}

func (be BulkEntries) Validate(validate *validator.Validate) error { return validate.Struct(be) }

type SetFilter struct {
	DepartmentID    string `query:"department_id"`
	IncludeInactive bool   `query:"include_inactive"`
}

type EntryFilter struct {
	Order           string `query:"order"`
	IncludeInactive bool   `query:"include_inactive"`
}

func (ef *EntryFilter) Clean() {
	if ef.Order != OrderByKey {
		ef.Order = OrderByValue
	}
}
