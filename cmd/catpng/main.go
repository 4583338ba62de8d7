package main

import (
	"bufio"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dylif/catpng"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func concat(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowAppHelpAndExit(c, 1)
	}

	args := c.Args().Slice()
	output := args[0]

	// LEVEL is only present when there are at least three arguments;
	// with two, the second argument is the sole input. An integer
	// second argument must be a valid level.
	level := catpng.DefaultLevel
	rest := args[1:]
	if c.NArg() >= 3 {
		if _, err := strconv.Atoi(strings.TrimSpace(args[1])); err == nil {
			l, err := catpng.ParseLevel(args[1])
			if err != nil {
				return cli.NewExitError(err, 1)
			}
			level = l
			rest = args[2:]
		}
	}

	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}

	inputs := make([]catpng.Input, 0, len(rest))
	for _, path := range rest {
		f, err := os.Open(path)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		defer f.Close()
		inputs = append(inputs, catpng.Input{Name: path, Reader: bufio.NewReader(f)})
	}

	// Write to a temporary file next to the destination and rename
	// only on success, so a failed run never leaves a malformed file
	// at the output path.
	tmp, err := os.CreateTemp(filepath.Dir(output), filepath.Base(output)+".*")
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	w := bufio.NewWriter(tmp)
	err = catpng.New(level, logger).Concat(inputs, w)
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}
	if err == nil {
		err = os.Rename(tmp.Name(), output)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return cli.NewExitError(err, 1)
	}

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "catpng"
	app.Usage = "Concatenate same-width PNG images vertically"
	app.ArgsUsage = "OUTPUT [LEVEL] INPUT..."
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			EnvVars: []string{"CATPNG_VERBOSE"},
			Usage:   "increase verbosity",
		},
	}

	app.Action = concat

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
