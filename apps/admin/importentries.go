package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core/refdata"
)

var errBankNotFound = errors.New("no active data bank with this name")

func (cli *commandLine) importEntries(bankName, path string) error {
	ctx := context.Background()
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading values")
	}

	sets, err := cli.refdataSvc.ListSets(ctx, refdata.SetFilter{})
	if err != nil {
		return err
	}
	var bank *refdata.DataBank
	for i := range sets {
		if sets[i].Name == bankName {
			bank = &sets[i]
			break
		}
	}
	if bank == nil {
		return errBankNotFound
	}

	res, err := cli.refdataSvc.BulkAddEntries(ctx, bank.ID, string(raw), nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "imported %d entries into %s\n", len(res.Inserted), bank.Name)
	if res.Warning != "" {
		fmt.Fprintf(cli.out, "warning: %s\n", res.Warning)
		for _, val := range res.Skipped {
			fmt.Fprintf(cli.out, "  skipped %q\n", val)
		}
	}
	return nil
}
