// Command essaycli extracts, redacts and scores a local essay file without
// running the HTTP server.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "essaycli",
		Usage: "extract, redact and score essays from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to an optional YAML config file",
				EnvVars: []string{"CONFIG_FILE"},
			},
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "PDF pages to read",
				Value: 5,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "extract",
				Usage:     "print the text extracted from FILE",
				ArgsUsage: "FILE",
				Action:    ExtractAction,
			},
			{
				Name:      "redact",
				Usage:     "print the extracted text of FILE with emails and names redacted",
				ArgsUsage: "FILE",
				Action:    RedactAction,
			},
			{
				Name:      "score",
				Usage:     "score FILE with the fixed rubric, or with --category for a custom one",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "essay title"},
					&cli.StringSliceFlag{
						Name:    "category",
						Aliases: []string{"c"},
						Usage:   "custom category as name or name:description (repeatable)",
					},
					&cli.BoolFlag{Name: "quotes", Usage: "ask for a supporting quote per category"},
				},
				Action: ScoreAction,
			},
		},
	}
}
