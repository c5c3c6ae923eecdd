package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"profilecheck/internal/ledger"
	"profilecheck/internal/ledger/kv"
)

type recordItem struct {
	Account    string    `json:"account_id"`
	CheckType  string    `json:"check_type"`
	VerifiedAt time.Time `json:"verified_at"`
}

func runRecords(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	path := c.String("path")
	if path == "" {
		return errors.New("path is required")
	}
	backend, err := kv.OpenLevelDB(path)
	if err != nil {
		return err
	}
	defer backend.Close()

	items := make([]recordItem, 0)
	err = ledger.Scan(backend, func(rec *ledger.VerificationRecord) error {
		items = append(items, recordItem{
			Account:    rec.AccountID.String(),
			CheckType:  rec.CheckType.String(),
			VerifiedAt: rec.VerifiedAt,
		})
		return nil
	})
	if err != nil {
		return err
	}

	if m.verbose {
		usage, err := backend.Usage(context.Background())
		if err == nil {
			fmt.Fprintf(m.e, "usage: %d bytes\n", usage)
		}
	}
	printJson(m.w, items)
	return nil
}
