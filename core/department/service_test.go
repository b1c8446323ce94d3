package department_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/department"
	"github.com/statbureau/datahub/testutil"
)

func TestDepartmentLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	svc := env.DepartmentSvc

	nd := department.NewDepartment{Name: "  Health ", Description: " Public health "}
	require.NoError(t, nd.Validate(env.Validate))
	health, err := svc.Create(ctx, nd)
	require.NoError(t, err)
	assert.Equal(t, "Health", health.Name)
	assert.Equal(t, "Public health", health.Description)

	_, err = svc.Create(ctx, department.NewDepartment{Name: "HEALTH"})
	assert.True(t, core.IsDuplicate(err))

	education := env.CreateDepartment(t, "Education")

	ud := department.UpdateDepartment{Name: "health"}
	require.NoError(t, ud.Validate(education, env.Validate))
	_, err = svc.Update(ctx, education.ID, ud)
	assert.True(t, core.IsDuplicate(err))

	list, err := svc.List(ctx, department.QueryFilter{Search: " edu "})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, education.ID, list[0].ID)

	require.NoError(t, svc.Deactivate(ctx, health.ID))
	require.NoError(t, svc.Deactivate(ctx, health.ID))

	list, err = svc.List(ctx, department.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.List(ctx, department.QueryFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// an inactive department frees its name
	_, err = svc.Create(ctx, department.NewDepartment{Name: "Health"})
	assert.NoError(t, err)

	assert.True(t, core.IsNotFound(svc.Deactivate(ctx, "00000000-0000-0000-0000-000000000000")))
}

func TestNewDepartmentValidate(t *testing.T) {
	env := testutil.NewEnv(t)

	nd := department.NewDepartment{Name: "   "}
	err := nd.Validate(env.Validate)
	require.Error(t, err)
	valErr, ok := core.TranslateValidationErrors(err, env.Translator).(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, []core.FieldError{{Field: "name", Error: "this field is required"}}, valErr.Fields)
}
