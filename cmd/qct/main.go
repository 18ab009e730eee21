package main

import (
	"fmt"
	"image/png"
	"io/ioutil"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/arbcharts/qct"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}
}

func main() {
	app := cli.NewApp()

	app.Name = "qct"
	app.Usage = "QuickChart (QCT) raster nautical chart decoder"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "i", Usage: "input QCT file"},
		&cli.StringFlag{Name: "o", Usage: "output image file (PNG)"},
		&cli.IntFlag{Name: "s", Value: 1, Usage: "scale factor (1, 2, 4, or 8)"},
		&cli.BoolFlag{Name: "q", Usage: "query only; do not decode the image"},
		&cli.BoolFlag{Name: "v", Usage: "verbose"},
		&cli.BoolFlag{Name: "d", Usage: "debug"},
	}

	app.Action = func(c *cli.Context) error {
		input := c.String("i")
		output := c.String("o")
		queryOnly := c.Bool("q")

		if input == "" {
			return cli.Exit("missing -i input path", 1)
		}
		if !queryOnly && output == "" {
			return cli.Exit("either -q or -o must be supplied", 1)
		}

		log := logrus.New()
		log.Out = ioutil.Discard
		if c.Bool("v") {
			log.Out = os.Stderr
		}
		if c.Bool("d") {
			log.Out = os.Stderr
			log.SetLevel(logrus.DebugLevel)
		}

		m, err := qct.Open(input, queryOnly, c.Int("s"), log)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer m.Close()

		if err := m.PrintMetadata(os.Stdout, c.Bool("d")); err != nil {
			return cli.Exit(err, 1)
		}

		if queryOnly {
			return nil
		}

		f, err := os.Create(output)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer f.Close()

		if err := png.Encode(f, m.Image()); err != nil {
			return cli.Exit(err, 1)
		}

		return nil
	}

	app.Commands = []*cli.Command{
		{
			Name:      "scan",
			Usage:     "Scan a directory for QCT files and update the catalog",
			ArgsUsage: "DIRECTORY",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "cache", Value: "qct-catalog.db", Usage: "path to catalog database"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				if err := qct.Scan(c.Args().First(), c.String("cache")); err != nil {
					return cli.Exit(err, 1)
				}
				return nil
			},
		},
		{
			Name:  "find",
			Usage: "Look up charts covering a coordinate in a catalog built by scan",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "cache", Value: "qct-catalog.db", Usage: "path to catalog database"},
				&cli.Float64Flag{Name: "lat", Usage: "latitude"},
				&cli.Float64Flag{Name: "lon", Usage: "longitude"},
			},
			Action: func(c *cli.Context) error {
				if !c.IsSet("lat") || !c.IsSet("lon") {
					return cli.Exit("both -lat and -lon are required", 1)
				}

				charts, err := qct.FindCharts(c.String("cache"), c.Float64("lat"), c.Float64("lon"))
				if err != nil {
					return cli.Exit(err, 1)
				}
				for _, chart := range charts {
					fmt.Printf("%s\t%s\t%s\n", chart.Path, chart.Ident, chart.Title)
				}
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
