// Command profilectl evaluates profile documents, prices storage, mints API
// tokens and inspects LevelDB ledgers without a running server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"
)

type metadata struct {
	verbose bool
	e       io.Writer
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

func newApp(w, e io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "profilectl"
	app.Usage = "offline tooling for the profilecheck service"
	app.Version = version
	app.HideVersion = true

	app.Writer = w
	app.ErrWriter = e

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "evaluate",
			Usage:     "check a registry document against the profile criteria",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "account, a",
					Usage: "*account whose profile is checked `ACCOUNT`",
				},
				cli.StringFlag{
					Name:  "file, f",
					Usage: "*registry document `FILE`, - for stdin",
				},
			},
			Action: runEvaluate,
		},
		{
			Name:      "cost",
			Usage:     "price storage at the byte cost rate",
			ArgsUsage: "\n   (+ = select one)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "account, a",
					Usage: "+price the record kept for `ACCOUNT`",
				},
				cli.Uint64Flag{
					Name:  "bytes, b",
					Usage: "+price `COUNT` bytes",
				},
				cli.StringFlag{
					Name:  "rate, r",
					Usage: " byte cost `RATE` [default protocol rate]",
				},
			},
			Action: runCost,
		},
		{
			Name:      "token",
			Usage:     "mint a signed API access token",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "account, a",
					Usage: "*token subject `ACCOUNT`",
				},
				cli.StringFlag{
					Name:  "signer, s",
					Usage: " signing `ACCOUNT` [default subject]",
				},
				cli.StringFlag{
					Name:   "key, k",
					Usage:  "*HMAC signing `KEY`",
					EnvVar: "PROFILECHECK_AUTH_JWT_SIGNING_KEY",
				},
				cli.StringFlag{
					Name:  "issuer",
					Value: "profilecheck",
					Usage: " token `ISSUER`",
				},
				cli.StringFlag{
					Name:  "audience",
					Value: "profilecheck-api",
					Usage: " token `AUDIENCE`",
				},
				cli.DurationFlag{
					Name:  "expires, e",
					Value: defaultTokenLifetime,
					Usage: " token lifetime `DURATION`",
				},
			},
			Action: runToken,
		},
		{
			Name:      "records",
			Usage:     "list verification records held in a LevelDB ledger",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "path, p",
					Usage: "*ledger directory `PATH`",
				},
			},
			Action: runRecords,
		},
	}

	app.Before = func(c *cli.Context) error {
		app.Metadata = map[string]interface{}{
			"config": &metadata{
				verbose: c.GlobalBool("verbose"),
				e:       app.ErrWriter,
				w:       app.Writer,
			},
		}
		return nil
	}
	return app
}

func printJson(handle io.Writer, message interface{}) {
	b, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		fmt.Fprintf(handle, "json error: %s\n", err)
		return
	}
	fmt.Fprintf(handle, "%s\n", b)
}
