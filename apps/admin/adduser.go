package main

import (
	"context"
	"fmt"

	"github.com/statbureau/datahub/core/user"
)

// addUser creates an active user.User.
func (cli *commandLine) addUser(email, name, role, deptID, pwd string) error {
	ctx := context.Background()
	nu := user.NewUser{
		Email:           email,
		FullName:        name,
		Role:            role,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if deptID != "" {
		nu.DepartmentID = &deptID
	}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return cli.validationError(err)
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s user %s\n", usr.Role, usr.Email)
	return nil
}
