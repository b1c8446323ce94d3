package main

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/alert"
	"github.com/statbureau/datahub/core/schedule"
	"github.com/statbureau/datahub/core/user"
)

// notify emails the error and warning alerts of today to every active admin.
func (cli *commandLine) notify() error {
	ctx := context.Background()
	schedules, err := cli.schedSvc.List(ctx, schedule.QueryFilter{})
	if err != nil {
		return err
	}
	var alerts []alert.Alert
	for _, a := range alert.Derive(schedules, core.Today().Time) {
		if a.Level != alert.LevelInfo {
			alerts = append(alerts, a)
		}
	}
	if len(alerts) == 0 {
		fmt.Fprintln(cli.out, "no alerts to send")
		return nil
	}

	active := true
	admins, err := cli.usrSvc.Query(ctx, &user.QueryFilter{Roles: []string{user.RoleAdmin}, IsActive: &active}, nil)
	if err != nil {
		return err
	}
	msgs := make([]*core.EmailMessage, 0, len(admins))
	for _, usr := range admins {
		msg := core.NewEmailMessage(cli.conf, "Data collection alerts", mail.Address{Name: usr.FullName, Address: usr.Email})
		msg.TemplateName = "deadline_alerts"
		msg.TemplateData = map[string]interface{}{
			"Name":   usr.FullName,
			"Alerts": alerts,
		}
		msgs = append(msgs, msg)
	}
	cli.mailSvc.SendMessages(msgs...)
	fmt.Fprintf(cli.out, "sent %d alerts to %d admins\n", len(alerts), len(admins))
	return nil
}
