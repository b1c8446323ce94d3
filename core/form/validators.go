package form

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/statbureau/datahub/core"
)

var (
	fieldTypeTag  = "fieldtype"
	fieldTypeText = "invalid field type"
)

// InitValidators registers the form specific validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(fieldTypeTag, fieldTypeValidation)
	core.RegisterCustomTranslation(validate, translator, fieldTypeTag, fieldTypeText)
}

func fieldTypeValidation(fl validator.FieldLevel) bool {
	return FieldType(fl.Field().String()).Valid()
}
