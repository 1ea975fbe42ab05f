package cli

import (
	"flag"
	"io"

	"github.com/urfave/cli"
)

// Arguments are the parsed command line options
type Arguments struct {
	Image    string
	Config   string
	Model    string
	LogLevel string
	Quiet    bool
	Guidance bool
}

// ParseArguments parses argv (including the program name). Usage and help
// text go to out, never to stdout. flag.ErrHelp is returned when --help or
// --version was handled and nothing should run.
func ParseArguments(argv []string, appVersion string, out io.Writer) (*Arguments, error) {
	var args Arguments
	ran := false

	app := cli.NewApp()
	app.Name = "plant-predict"
	app.Usage = "Plant disease predictor"
	app.Description = "Classifies a single leaf image and prints the result as one JSON line"
	app.Version = appVersion
	app.Writer = out
	app.ErrWriter = out

	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "image", Usage: "Path to image file", Required: true},
		cli.StringFlag{Name: "config, c", Usage: "Path to a YAML or JSON config file"},
		cli.StringFlag{Name: "model", Usage: "Override the model artifact path"},
		cli.StringFlag{Name: "log-level", Usage: "Trace level on stderr (debug, info, warn, error)"},
		cli.BoolFlag{Name: "quiet, q", Usage: "Only trace warnings and errors"},
		cli.BoolFlag{Name: "guidance", Usage: "Add description and suggestions to the result"},
	}

	app.Action = func(c *cli.Context) error {
		ran = true
		args.Image = c.String("image")
		args.Config = c.String("config")
		args.Model = c.String("model")
		args.LogLevel = c.String("log-level")
		args.Quiet = c.Bool("quiet")
		args.Guidance = c.Bool("guidance")
		return nil
	}

	if err := app.Run(argv); err != nil {
		return nil, err
	}
	if !ran {
		return nil, flag.ErrHelp
	}
	return &args, nil
}
