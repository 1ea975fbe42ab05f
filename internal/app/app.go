// Package app drives a single prediction from argv to exit code. Every
// terminal state writes exactly one JSON object to stdout; traces go to
// stderr.
package app

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/menta2k/plant-predict/internal/cli"
	"github.com/menta2k/plant-predict/internal/config"
	"github.com/menta2k/plant-predict/internal/logger"
	"github.com/menta2k/plant-predict/internal/utils"
	"github.com/menta2k/plant-predict/pkg/classifier"
	"github.com/menta2k/plant-predict/pkg/deps"
	"github.com/menta2k/plant-predict/pkg/labels"
	"github.com/menta2k/plant-predict/pkg/processing"
	"github.com/menta2k/plant-predict/pkg/types"
)

// Process exit codes
const (
	ExitOK            = 0
	ExitImageNotFound = 1
	ExitSetup         = 2
	ExitProcessing    = 3
)

// Version is reported by --version
var Version = "1.0.0"

// ExitError is a terminal failure: Message goes to stdout as
// {"error": Message} and Code becomes the process exit status.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s (exit %d)", e.Message, e.Code)
}

func exitErrorf(code int, format string, args ...interface{}) *ExitError {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// App holds the collaborators of a run. The zero value is not usable, use New.
type App struct {
	Stdout io.Writer
	Stderr io.Writer

	// Dependencies lists the runtime requirements checked before any work
	Dependencies func(cfg *config.Config) []deps.Dependency
	// Opener builds the model opener for cfg
	Opener func(cfg *config.Config) classifier.OpenFunc
	// BaseDir locates the default model artifact
	BaseDir func() (string, error)
}

// New creates an App wired to ONNX Runtime and the executable's directory
func New(stdout, stderr io.Writer) *App {
	return &App{
		Stdout:       stdout,
		Stderr:       stderr,
		Dependencies: DefaultDependencies,
		Opener:       DefaultOpener,
		BaseDir:      utils.ExecutableDir,
	}
}

// Run executes a prediction with the default collaborators
func Run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	return New(stdout, stderr).Run(ctx, argv)
}

// DefaultDependencies checks the ONNX runtime first, then the decoders
func DefaultDependencies(cfg *config.Config) []deps.Dependency {
	return []deps.Dependency{
		deps.ONNXRuntime(cfg.Model.RuntimeLibrary),
		deps.ImageDecoders(),
	}
}

// DefaultOpener opens ONNX artifacts shaped by cfg
func DefaultOpener(cfg *config.Config) classifier.OpenFunc {
	return classifier.ONNXOpener(classifier.ONNXOptions{
		InputName:   cfg.Model.InputName,
		OutputName:  cfg.Model.OutputName,
		InputShape:  []int64{1, int64(cfg.Preprocess.Height), int64(cfg.Preprocess.Width), processing.Channels},
		OutputShape: []int64{1, int64(cfg.Model.NumClasses)},
	})
}

// Run executes one prediction and returns the process exit code
func (a *App) Run(ctx context.Context, argv []string) int {
	args, err := cli.ParseArguments(argv, Version, a.Stderr)
	if err == flag.ErrHelp {
		return ExitOK
	}
	if err != nil {
		// usage was already printed to stderr
		return ExitSetup
	}

	cfg, err := resolveConfig(args)
	if err != nil {
		return a.fail(exitErrorf(ExitSetup, "Invalid configuration: %v", err))
	}
	log := logger.NewWithWriter(&cfg.Log, a.Stderr)

	p := &pipeline{app: a, cfg: cfg, args: args, log: log}
	pred, err := p.run(ctx)
	if err != nil {
		var ee *ExitError
		if !errors.As(err, &ee) {
			ee = exitErrorf(ExitProcessing, "Prediction error: %v", err)
		}
		log.WithField("exit_code", ee.Code).Error(ee.Message)
		return a.fail(ee)
	}

	if err := a.emit(pred); err != nil {
		log.WithError(err).Error("Failed to write result")
		return ExitProcessing
	}
	log.Debug("Prediction complete")
	return ExitOK
}

func resolveConfig(args *cli.Arguments) (*config.Config, error) {
	cfg, err := config.Load(args.Config)
	if err != nil {
		return nil, err
	}
	if args.Model != "" {
		cfg.Model.Path = args.Model
	}
	if args.LogLevel != "" {
		cfg.Log.Level = args.LogLevel
	}
	if args.Quiet {
		cfg.Log.Level = logrus.WarnLevel.String()
	}
	if args.Guidance {
		cfg.Output.Guidance = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *App) fail(ee *ExitError) int {
	if err := a.emit(types.ErrorResponse{Error: ee.Message}); err != nil {
		return ExitProcessing
	}
	return ee.Code
}

// emit writes v as one compact JSON line
func (a *App) emit(v interface{}) error {
	enc := json.NewEncoder(a.Stdout)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

type pipeline struct {
	app  *App
	cfg  *config.Config
	args *cli.Arguments
	log  *logrus.Logger
}

func (p *pipeline) run(ctx context.Context) (pred *types.Prediction, err error) {
	set, err := deps.Check(ctx, p.log, p.app.Dependencies(p.cfg))
	if err != nil {
		var ce *deps.CheckError
		if errors.As(err, &ce) {
			return nil, exitErrorf(ExitSetup, "Failed to import %s: %v", ce.Name, ce.Err)
		}
		return nil, exitErrorf(ExitSetup, "Failed to import dependencies: %v", err)
	}
	defer func() {
		if rerr := set.Release(); rerr != nil {
			p.log.WithError(rerr).Warn("Failed to release runtime")
		}
	}()

	baseDir, err := p.app.BaseDir()
	if err != nil {
		return nil, exitErrorf(ExitSetup, "Failed to locate executable: %v", err)
	}
	modelPath := p.cfg.ModelPath(baseDir)
	p.log.Debugf("Go version: %s", runtime.Version())
	p.log.Debugf("Executable directory: %s", baseDir)
	p.log.Debugf("Model path: %s", modelPath)
	p.log.Debugf("Model exists: %t", utils.PathExists(modelPath))

	image := p.args.Image
	p.log.Debugf("Processing image: %s", image)
	if !utils.PathExists(image) {
		return nil, exitErrorf(ExitImageNotFound, "Image not found: %s", image)
	}

	loader := classifier.NewLoader(modelPath, p.app.Opener(p.cfg), p.log)
	defer func() {
		if cerr := loader.Close(); cerr != nil {
			p.log.WithError(cerr).Warn("Failed to close model")
		}
	}()

	// Anything that panics from here on is a prediction error
	defer func() {
		if r := recover(); r != nil {
			pred = nil
			err = exitErrorf(ExitProcessing, "Prediction error: %v", r)
		}
	}()

	model, err := loader.Load()
	if err != nil {
		if errors.Cause(err) == classifier.ErrModelNotFound {
			return nil, exitErrorf(ExitSetup, "Model file not found at: %s", modelPath)
		}
		return nil, exitErrorf(ExitSetup, "Failed to load model: %v", err)
	}

	processor, err := p.processor()
	if err != nil {
		return nil, exitErrorf(ExitProcessing, "Failed to preprocess image: %v", err)
	}
	input, err := processor.Preprocess(ctx, image)
	if err != nil {
		return nil, exitErrorf(ExitProcessing, "Failed to preprocess image: %v", err)
	}

	p.log.Debug("Making prediction")
	res, err := classifier.Classify(ctx, model, input)
	if err != nil {
		return nil, err
	}
	if res.Scores != labels.Count {
		p.log.Warnf("Model returned %d scores, label table has %d", res.Scores, labels.Count)
	}
	if !res.Known {
		p.log.Warnf("Class index outside label table, reporting %s", res.Prediction.Disease)
	}
	p.log.WithFields(logrus.Fields{
		"disease":    res.Prediction.Disease,
		"confidence": res.Prediction.Confidence,
	}).Debug("Prediction result")

	out := res.Prediction
	if p.cfg.Output.Guidance {
		g, err := labels.GuidanceFor(out.Disease)
		if err != nil {
			return nil, err
		}
		out.Description = g.Description
		out.Suggestions = g.Suggestions
	}
	return &out, nil
}

func (p *pipeline) processor() (*processing.Processor, error) {
	pc := p.cfg.Preprocess
	resizer, err := processing.NewResizer(strings.ToLower(pc.Engine), strings.ToLower(pc.Filter))
	if err != nil {
		return nil, err
	}
	return processing.NewProcessor(
		processing.WithSize(pc.Width, pc.Height),
		processing.WithResizer(resizer),
		processing.WithLogger(p.log),
	), nil
}
