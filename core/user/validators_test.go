package user

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/statbureau/datahub/core"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func TestPasswordPolicy(t *testing.T) {
	validate := newValidator()

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 123!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "not complex", pwd: "abcdefgh1", wantTag: pwdComplexityTag},
		{name: "similar to email", pwd: "Jane.Doe@st4ts", wantTag: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "Str0ng!Pass#42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Email:           "jane.doe@stats.test",
				FullName:        "Jane Doe",
				Role:            RoleDataEntryUser,
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			err := validate.Struct(nu)
			if tt.wantTag == "" {
				if err != nil {
					t.Fatalf("validate.Struct() error = %v, want nil", err)
				}
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok || len(vErrs) != 1 {
				t.Fatalf("validate.Struct() error = %v, want 1 %s error", err, tt.wantTag)
			}
			if vErrs[0].Tag() != tt.wantTag || vErrs[0].Field() != "password" {
				t.Errorf("got %s on %s, want %s on password", vErrs[0].Tag(), vErrs[0].Field(), tt.wantTag)
			}
		})
	}
}

func TestUserRoleValidation(t *testing.T) {
	validate := newValidator()
	for _, role := range AllRoles {
		uu := UpdateUser{Role: role}
		if err := validate.Struct(uu); err != nil {
			t.Errorf("role %q: unexpected error %v", role, err)
		}
	}
	if err := validate.Struct(UpdateUser{Role: "superuser"}); err == nil {
		t.Error("role superuser: expected an error")
	}
}
