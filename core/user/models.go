package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/statbureau/datahub/core"
)

// Roles
const (
	RoleAdmin          = "admin"
	RoleDepartmentUser = "department_user"
	RoleDataEntryUser  = "data_entry_user"
)

var (
	AllRoles = []string{RoleAdmin, RoleDepartmentUser, RoleDataEntryUser}

	rolePriorities = map[string]int{
		RoleAdmin:          30,
		RoleDepartmentUser: 20,
		RoleDataEntryUser:  10,
	}

	Roles = []Role{
		{Name: "Data Entry User", Value: RoleDataEntryUser},
		{Name: "Department User", Value: RoleDepartmentUser},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is a profile allowed to sign in.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	DepartmentID *string   `json:"department_id"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`           // UTC
	UpdatedAt    time.Time `json:"updated_at"`           // UTC
	LastLogin    time.Time `json:"last_login,omitempty"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool          { return u.Role == RoleAdmin }
func (u *User) IsDepartmentUser() bool { return u.Role == RoleDepartmentUser }
func (u *User) IsDataEntryUser() bool  { return u.Role == RoleDataEntryUser }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Email           string  `json:"email" validate:"required,email"`
	FullName        string  `json:"full_name" validate:"required,notblank"`
	Role            string  `json:"role" validate:"required,userrole"`
	DepartmentID    *string `json:"department_id" validate:"omitempty,uuid"`
	Password        string  `json:"password" validate:"required"`
	PasswordConfirm string  `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.DepartmentID = core.CleanStringPtr(nu.DepartmentID)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Email           string  `json:"email" validate:"omitempty,email"`
	FullName        string  `json:"full_name"`
	Role            string  `json:"role" validate:"omitempty,userrole"`
	DepartmentID    *string `json:"department_id" validate:"omitempty,uuid"`
	IsActive        *bool   `json:"is_active"`
	Password        string  `json:"password" validate:"omitempty"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(uu.FullName); name != "" {
		uu.FullName = name
	} else {
		uu.FullName = origUsr.FullName
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if uu.Role == "" {
		uu.Role = origUsr.Role
	}
	if uu.DepartmentID == nil {
		uu.DepartmentID = origUsr.DepartmentID
	} else {
		uu.DepartmentID = core.CleanStringPtr(uu.DepartmentID)
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Email, origUsr)
}

// TempSignup is the self-service registration payload; it always yields a data entry user.
type TempSignup struct {
	Email           string `json:"email" validate:"required,email"`
	FullName        string `json:"full_name" validate:"required,notblank"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ts *TempSignup) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	ts.FullName = core.CleanString(ts.FullName)
	ts.Email = core.CleanString(ts.Email, true /* lower */)
	if err := validate.Struct(ts); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, ts.Email)
}

func (ts TempSignup) NewUser() NewUser {
	return NewUser{
		Email:           ts.Email,
		FullName:        ts.FullName,
		Role:            RoleDataEntryUser,
		Password:        ts.Password,
		PasswordConfirm: ts.PasswordConfirm,
	}
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search       string   `query:"search"`
	Roles        []string `query:"role"`
	DepartmentID string   `query:"department_id"`
	IsActive     *bool    `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.DepartmentID = core.CleanString(qf.DepartmentID)
}

type GetFilter struct {
	ID    string
	Email string
}
