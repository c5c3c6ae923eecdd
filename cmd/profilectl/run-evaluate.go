package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"profilecheck/internal/profile"
	"profilecheck/pkg/domain"
	"profilecheck/pkg/jsonvalue"
)

func runEvaluate(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	account, err := domain.ParseAccountID(c.String("account"))
	if err != nil {
		return err
	}
	fileName := c.String("file")
	if fileName == "" {
		return errors.New("file is required")
	}

	var r io.Reader = os.Stdin
	if fileName != "-" {
		file, err := os.Open(fileName)
		if err != nil {
			return err
		}
		defer file.Close()
		r = file
	}
	doc, err := jsonvalue.Decode(r)
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	report := profile.Check(doc, account)
	missing := make([]string, 0)
	for _, criterion := range report.Missing() {
		missing = append(missing, string(criterion))
	}

	if m.verbose {
		fmt.Fprintf(m.e, "profile found: %t\n", report.ProfileFound)
	}
	printJson(m.w, struct {
		Account  string   `json:"account_id"`
		Complete bool     `json:"complete"`
		Missing  []string `json:"missing"`
	}{
		Account:  account.String(),
		Complete: report.Passed(),
		Missing:  missing,
	})
	return nil
}
