package department

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/statbureau/datahub/core"
)

// Department owns forms and reference data sets.
type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewDepartment struct {
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Description string `json:"description"`
}

func (nd *NewDepartment) Validate(validate *validator.Validate) error {
	nd.Name = core.CleanString(nd.Name)
	nd.Description = core.CleanString(nd.Description)
	return validate.Struct(nd)
}

type UpdateDepartment struct {
	Name        string  `json:"name" validate:"required,notblank,max=200"`
	Description *string `json:"description"`
}

func (ud *UpdateDepartment) Validate(orig Department, validate *validator.Validate) error {
	if name := core.CleanString(ud.Name); name != "" {
		ud.Name = name
	} else {
		ud.Name = orig.Name
	}
	if ud.Description == nil {
		ud.Description = &orig.Description
	} else {
		desc := core.CleanString(*ud.Description)
		ud.Description = &desc
	}
	return validate.Struct(ud)
}

type QueryFilter struct {
	Search          string `query:"search"`
	IncludeInactive bool   `query:"include_inactive"`
}
