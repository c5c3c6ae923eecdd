package main

import (
	"errors"

	"github.com/urfave/cli"

	"profilecheck/internal/accounting"
	"profilecheck/internal/ledger"
	"profilecheck/pkg/domain"
)

func runCost(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	rate := accounting.DefaultByteCostRate
	if s := c.String("rate"); s != "" {
		r, err := domain.ParseAmount(s)
		if err != nil {
			return err
		}
		rate = r
	}

	var bytes uint64
	switch {
	case c.String("account") != "" && c.IsSet("bytes"):
		return errors.New("select one of account or bytes")
	case c.String("account") != "":
		account, err := domain.ParseAccountID(c.String("account"))
		if err != nil {
			return err
		}
		bytes = ledger.RecordFootprint(account)
	case c.IsSet("bytes"):
		bytes = c.Uint64("bytes")
	default:
		return errors.New("account or bytes is required")
	}

	cost, err := accounting.New(rate).CostOf(bytes)
	if err != nil {
		return err
	}
	printJson(m.w, struct {
		Bytes uint64 `json:"bytes"`
		Rate  string `json:"rate"`
		Cost  string `json:"cost"`
	}{
		Bytes: bytes,
		Rate:  rate.String(),
		Cost:  cost.String(),
	})
	return nil
}
