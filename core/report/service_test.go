package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/schedule"
	"github.com/statbureau/datahub/core/submission"
	"github.com/statbureau/datahub/core/user"
	"github.com/statbureau/datahub/testutil"
)

func TestProgressAndExport(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	dept := env.CreateDepartment(t, "Health")
	households := env.CreateForm(t, "Households", dept.ID,
		form.FieldSpec{Name: "males", Label: "Males", Type: form.FieldNumber},
		form.FieldSpec{Name: "females", Label: "Females", Type: form.FieldNumber},
		form.FieldSpec{Name: "total", Label: "Total", Type: form.FieldAggregate, AggregateFields: []string{"males", "females"}},
	)
	clinics := env.CreateForm(t, "Clinics", dept.ID, form.FieldSpec{Name: "beds", Label: "Beds", Type: form.FieldNumber})
	vehicles := env.CreateForm(t, "Vehicles", dept.ID, form.FieldSpec{Name: "cars", Label: "Cars", Type: form.FieldNumber})

	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	sch := env.CreateSchedule(t, "Census 2025", start, start.AddDate(0, 1, 0), schedule.StatusCollection)
	env.AttachForm(t, sch.ID, households.ID, true)
	env.AttachForm(t, sch.ID, clinics.ID, true)
	env.AttachForm(t, sch.ID, vehicles.ID, false)

	alice := env.CreateUser(t, "Alice", "alice@stats.test", user.RoleDataEntryUser, nil, true)
	bob := env.CreateUser(t, "Bob", "bob@stats.test", user.RoleDataEntryUser, nil, true)
	submit := func(usr user.User, formID string, data form.Values) {
		t.Helper()
		_, err := env.SubmissionSvc.Submit(ctx, submission.NewSubmission{ScheduleID: sch.ID, FormID: formID, Data: data}, usr.ID)
		require.NoError(t, err)
	}
	submit(alice, households.ID, form.Values{"males": "2", "females": "3"})
	submit(bob, households.ID, form.Values{"males": "1"})
	submit(alice, clinics.ID, form.Values{"beds": "12"})

	t.Run("Schedule Progress", func(t *testing.T) {
		prog, err := env.ReportSvc.ScheduleProgress(ctx, sch.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, prog.TotalForms)
		assert.Equal(t, 2, prog.RequiredForms)
		assert.Equal(t, 2, prog.FormsWithSubmissions)
		assert.Equal(t, 3, prog.TotalSubmissions)
		assert.True(t, decimal.RequireFromString("66.7").Equal(prog.CompletionPct))

		counts := make(map[string]int)
		for _, fp := range prog.Forms {
			counts[fp.FormName] = fp.Submissions
		}
		assert.Equal(t, map[string]int{"Households": 2, "Clinics": 1, "Vehicles": 0}, counts)
	})

	t.Run("User Progress", func(t *testing.T) {
		prog, err := env.ReportSvc.UserProgress(ctx, sch.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "2 of 3 forms completed", prog.Summary)

		prog, err = env.ReportSvc.UserProgress(ctx, sch.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, prog.Completed)
		assert.Equal(t, "1 of 3 forms completed", prog.Summary)
	})

	t.Run("Export", func(t *testing.T) {
		f, filename, err := env.ReportSvc.ExportSubmissions(ctx, sch.ID, households.ID)
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "census_2025_households.xlsx", filename)

		rows, err := f.GetRows("Submissions")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"Submitted by", "Submitted at", "Males", "Females", "Total"}, rows[0])

		totals := make(map[string]string)
		for _, row := range rows[1:] {
			totals[row[0]] = row[len(row)-1]
		}
		assert.Equal(t, map[string]string{"alice@stats.test": "5", "bob@stats.test": "1"}, totals)

		for _, cell := range []string{"C2", "C3", "E2"} {
			typ, err := f.GetCellType("Submissions", cell)
			require.NoError(t, err)
			assert.NotEqual(t, excelize.CellTypeSharedString, typ, cell)
			assert.NotEqual(t, excelize.CellTypeInlineString, typ, cell)
		}
	})
}

func TestProgressCountsWithoutAggregates(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	dept := env.CreateDepartment(t, "Health")
	frm := env.CreateForm(t, "Households", dept.ID,
		form.FieldSpec{Name: "males", Label: "Males", Type: form.FieldNumber},
		form.FieldSpec{Name: "females", Label: "Females", Type: form.FieldNumber},
		form.FieldSpec{Name: "total", Label: "Total", Type: form.FieldAggregate, AggregateFields: []string{"males", "females"}},
	)
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	sch := env.CreateSchedule(t, "Census 2025", start, start.AddDate(0, 1, 0), schedule.StatusCollection)
	env.AttachForm(t, sch.ID, frm.ID, true)
	usr := env.CreateUser(t, "Alice", "alice@stats.test", user.RoleDataEntryUser, nil, true)

	// rows written before number bounds existed
	_, err := env.SubmissionRepo.CreateSubmission(ctx, submission.Submission{
		ID:          "legacy",
		FormID:      frm.ID,
		ScheduleID:  sch.ID,
		SubmittedBy: usr.ID,
		SubmittedAt: start.AddDate(0, 0, 2),
		Data:        form.Values{"males": "1e20000000", "females": "1"},
	})
	require.NoError(t, err)

	counts, err := env.SubmissionSvc.CountByForm(ctx, submission.QueryFilter{ScheduleID: sch.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{frm.ID: 1}, counts)

	prog, err := env.ReportSvc.ScheduleProgress(ctx, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.TotalSubmissions)
	assert.Equal(t, "100", prog.CompletionPct.String())

	up, err := env.ReportSvc.UserProgress(ctx, sch.ID, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 of 1 forms completed", up.Summary)

	subs, err := env.SubmissionSvc.List(ctx, submission.QueryFilter{ScheduleID: sch.ID})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "1", subs[0].Aggregates["total"].String())
}
