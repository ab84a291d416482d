// Command gcodeleveling is the minimal concrete host for the Fit and
// Level APIs (spec.md §6): it reads probe samples from a CSV file, fits a
// bivariate polynomial surface, and rewrites a G-code file's Z
// coordinates to follow that surface.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/willmac16/gcodeleveling/gcode"
	"github.com/willmac16/gcodeleveling/surfacefit"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:  "gcodeleveling",
		Usage: "fit a probe surface and rewrite G-code Z coordinates to follow it",
		Commands: []*cli.Command{
			levelCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func levelCommand() *cli.Command {
	return &cli.Command{
		Name:  "level",
		Usage: "fit probe samples and rewrite a G-code file against the resulting surface",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "samples", Required: true, Usage: "CSV file of x,y,z probe samples"},
			&cli.IntFlag{Name: "x-degree", Value: 1, Usage: "polynomial degree in x"},
			&cli.IntFlag{Name: "y-degree", Value: 1, Usage: "polynomial degree in y"},
			&cli.BoolFlag{Name: "invert-z", Usage: "subtract the surface instead of adding it"},
			&cli.Float64Flag{Name: "max-line", Usage: "subdivide linear moves longer than this (0 disables)"},
			&cli.Float64Flag{Name: "max-arc", Usage: "subdivide arcs longer than this (0 disables)"},
			&cli.Float64Flag{Name: "min-z", Usage: "accepted but not consulted, see spec.md §9"},
			&cli.Float64Flag{Name: "max-z", Usage: "accepted but not consulted, see spec.md §9"},
			&cli.BoolFlag{Name: "verbose", Usage: "enable debug-level diagnostics"},
		},
		ArgsUsage: "<input.gcode>",
		Action:    runLevel,
	}
}

func runLevel(c *cli.Context) error {
	inputPath := c.Args().First()
	if inputPath == "" {
		return cli.Exit("missing required argument <input.gcode>", 1)
	}

	logLevel := zerolog.InfoLevel
	if c.Bool("verbose") {
		logLevel = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(logLevel).With().Timestamp().Logger()
	logger := gcode.NewZerologLogger(zl)

	samples, err := readSamples(c.String("samples"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("reading samples: %v", err), 1)
	}

	coeffs := surfacefit.Fit(samples, c.Int("x-degree"), c.Int("y-degree"))
	zl.Info().Int("samples", len(samples)).Msg("surface fit complete")

	job := gcode.Job{
		InputPath: inputPath,
		Coeffs:    coeffs,
		Params: gcode.Params{
			InvertZ: c.Bool("invert-z"),
			MaxLine: c.Float64("max-line"),
			MaxArc:  c.Float64("max-arc"),
			MinZ:    c.Float64("min-z"),
			MaxZ:    c.Float64("max-z"),
			Version: version,
		},
	}

	outPath, err := gcode.Level(job, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("leveling job: %v", err), 1)
	}

	fmt.Println(outPath)
	return nil
}

// readSamples parses a headerless CSV of x,y,z probe samples.
func readSamples(path string) ([]surfacefit.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	r.TrimLeadingSpace = true

	var samples []surfacefit.Sample
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var s surfacefit.Sample
		if _, err := fmt.Sscanf(row[0], "%g", &s.X); err != nil {
			return nil, fmt.Errorf("parsing x: %w", err)
		}
		if _, err := fmt.Sscanf(row[1], "%g", &s.Y); err != nil {
			return nil, fmt.Errorf("parsing y: %w", err)
		}
		if _, err := fmt.Sscanf(row[2], "%g", &s.Z); err != nil {
			return nil, fmt.Errorf("parsing z: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}
