package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/submission"
)

const exportSheet = "Submissions"

type exportColumn struct {
	key    string
	label  string
	agg    bool
	number bool
}

// exportColumns lists the value holding fields of def with their full label path,
// e.g. "Personnel / Doctors / Male".
func exportColumns(def form.Definition) []exportColumn {
	var cols []exportColumn
	var walk func(fields []form.FieldSpec, parentKey, subHeader string, labels []string)
	walk = func(fields []form.FieldSpec, parentKey, subHeader string, labels []string) {
		for _, f := range fields {
			key := form.FieldKey(parentKey, subHeader, f.Name)
			path := append(append([]string{}, labels...), f.Label)
			if !f.HasSubHeaders() {
				cols = append(cols, exportColumn{
					key:    key,
					label:  strings.Join(path, " / "),
					agg:    f.Type == form.FieldAggregate,
					number: f.Type == form.FieldNumber,
				})
				continue
			}
			for _, sh := range f.SubHeaders {
				walk(sh.Fields, key, sh.Name, append(path, sh.Label))
			}
		}
	}
	walk(def.Fields, "", "", nil)
	return cols
}

// ExportSubmissions builds a workbook with one row per submission of formID in scheduleID.
// The caller must close the returned file.
func (svc *Service) ExportSubmissions(ctx context.Context, scheduleID, formID string) (*excelize.File, string, error) {
	sch, err := svc.schedSvc.Get(ctx, scheduleID)
	if err != nil {
		return nil, "", err
	}
	frm, err := svc.formSvc.Get(ctx, formID)
	if err != nil {
		return nil, "", err
	}
	def, err := svc.formSvc.GetDefinition(ctx, formID)
	if err != nil {
		return nil, "", err
	}
	subs, err := svc.subSvc.List(ctx, submission.QueryFilter{ScheduleID: scheduleID, FormID: formID})
	if err != nil {
		return nil, "", errors.Wrap(err, "listing submissions")
	}

	emails := make(map[string]string)
	for _, sub := range subs {
		if _, ok := emails[sub.SubmittedBy]; ok {
			continue
		}
		emails[sub.SubmittedBy] = sub.SubmittedBy
		if usr, err := svc.userSvc.GetByID(ctx, sub.SubmittedBy); err == nil {
			emails[sub.SubmittedBy] = usr.Email
		}
	}

	f := excelize.NewFile()
	if err = f.SetSheetName("Sheet1", exportSheet); err != nil {
		_ = f.Close()
		return nil, "", errors.Wrap(err, "naming sheet")
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		_ = f.Close()
		return nil, "", errors.Wrap(err, "creating header style")
	}

	cols := exportColumns(def)
	header := []interface{}{"Submitted by", "Submitted at"}
	for _, col := range cols {
		header = append(header, col.label)
	}
	if err = f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		_ = f.Close()
		return nil, "", errors.Wrap(err, "writing header")
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		_ = f.Close()
		return nil, "", errors.Wrap(err, "naming last column")
	}
	if err = f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		_ = f.Close()
		return nil, "", errors.Wrap(err, "styling header")
	}

	for i, sub := range subs {
		row := []interface{}{emails[sub.SubmittedBy], sub.SubmittedAt.Format("2006-01-02 15:04")}
		for _, col := range cols {
			if col.agg {
				row = append(row, sub.Aggregates[col.key].InexactFloat64())
				continue
			}
			row = append(row, cellValue(col, sub.Data[col.key]))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, "", errors.Wrap(err, "naming row cell")
		}
		if err = f.SetSheetRow(exportSheet, cell, &row); err != nil {
			_ = f.Close()
			return nil, "", errors.Wrap(err, "writing row")
		}
	}

	filename := fmt.Sprintf("%s_%s.xlsx", slugify(sch.Name), slugify(frm.Name))
	return f, filename, nil
}

// cellValue writes number answers as numeric cells. Blank or unparsable answers stay text.
func cellValue(col exportColumn, val string) interface{} {
	if !col.number || val == "" {
		return val
	}
	d, err := form.ParseNumber(val)
	if err != nil {
		return val
	}
	return d.InexactFloat64()
}

func slugify(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}), "_")
}
