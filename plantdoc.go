// Package plantdoc classifies plant leaf images into one of 38 crop and
// disease classes.
//
// The same pipeline backs the plant-predict command: decode the image,
// force three RGB channels, resize straight to the model's input size,
// scale to [0,1] and run a single forward pass through an ONNX model. The
// model is loaded lazily on the first prediction and reused afterwards.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		plantdoc "github.com/menta2k/plant-predict"
//	)
//
//	func main() {
//		cfg := plantdoc.DefaultConfig()
//		cfg.ModelPath = "/opt/models/trained_model.onnx"
//
//		predictor, err := plantdoc.New(cfg, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer predictor.Close()
//
//		pred, err := predictor.PredictFile(context.Background(), "leaf.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("%s (%.4f)\n", pred.Disease, pred.Confidence)
//	}
//
// The package consists of these components:
//
// 1. Processing (pkg/processing): decoding, RGB conversion, resizing and normalisation
// 2. Classifier (pkg/classifier): the model interface, the ONNX backend and the load-once loader
// 3. Labels (pkg/labels): the class table and the optional treatment guidance
// 4. Deps (pkg/deps): runtime checks for the ONNX Runtime library and the image decoders
//
// The ONNX Runtime shared library must be installed. Set RuntimeLibrary when
// it is not on the default search path.
package plantdoc

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/menta2k/plant-predict/internal/config"
	"github.com/menta2k/plant-predict/internal/utils"
	"github.com/menta2k/plant-predict/pkg/classifier"
	"github.com/menta2k/plant-predict/pkg/deps"
	"github.com/menta2k/plant-predict/pkg/labels"
	"github.com/menta2k/plant-predict/pkg/processing"
	"github.com/menta2k/plant-predict/pkg/types"
)

// Version of the plantdoc library
const Version = "1.0.0"

var (
	// ErrImageNotFound is returned when the image path does not exist
	ErrImageNotFound = errors.New("image not found")
	// ErrModelNotFound is returned when the model artifact does not exist
	ErrModelNotFound = classifier.ErrModelNotFound
)

// Config controls a Predictor
type Config struct {
	ModelPath      string
	RuntimeLibrary string
	InputName      string
	OutputName     string
	NumClasses     int

	Width  int
	Height int
	Engine string
	Filter string

	// Guidance adds description and suggestions to every prediction
	Guidance bool
}

// DefaultConfig returns the settings the command line tool uses. ModelPath
// points at trained_model.onnx next to the running executable.
func DefaultConfig() Config {
	d := config.Default()
	dir, err := utils.ExecutableDir()
	if err != nil {
		dir = "."
	}
	return Config{
		ModelPath:  d.ModelPath(dir),
		InputName:  d.Model.InputName,
		OutputName: d.Model.OutputName,
		NumClasses: d.Model.NumClasses,
		Width:      d.Preprocess.Width,
		Height:     d.Preprocess.Height,
		Engine:     d.Preprocess.Engine,
		Filter:     d.Preprocess.Filter,
	}
}

// Predictor classifies image files with a lazily loaded model
type Predictor struct {
	loader    *classifier.Loader
	processor *processing.Processor
	runtime   *deps.Set
	guidance  bool
	log       logrus.FieldLogger
}

// New checks the ONNX runtime and image decoders and prepares a Predictor.
// A nil log discards traces.
func New(cfg Config, log logrus.FieldLogger) (*Predictor, error) {
	opener := classifier.ONNXOpener(classifier.ONNXOptions{
		InputName:   cfg.InputName,
		OutputName:  cfg.OutputName,
		InputShape:  []int64{1, int64(cfg.Height), int64(cfg.Width), processing.Channels},
		OutputShape: []int64{1, int64(cfg.NumClasses)},
	})
	return build(cfg, opener, log, deps.ONNXRuntime(cfg.RuntimeLibrary), deps.ImageDecoders())
}

// NewWithModel prepares a Predictor that opens models with open instead of
// ONNX Runtime.
func NewWithModel(cfg Config, open classifier.OpenFunc, log logrus.FieldLogger) (*Predictor, error) {
	return build(cfg, open, log, deps.ImageDecoders())
}

func build(cfg Config, open classifier.OpenFunc, log logrus.FieldLogger, list ...deps.Dependency) (*Predictor, error) {
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}
	if cfg.Width < 1 || cfg.Height < 1 {
		return nil, errors.Errorf("invalid input size %dx%d", cfg.Width, cfg.Height)
	}

	resizer, err := processing.NewResizer(strings.ToLower(cfg.Engine), strings.ToLower(cfg.Filter))
	if err != nil {
		return nil, err
	}

	set, err := deps.Check(context.Background(), log, list)
	if err != nil {
		return nil, errors.Wrap(err, "runtime check failed")
	}

	return &Predictor{
		loader: classifier.NewLoader(cfg.ModelPath, open, log),
		processor: processing.NewProcessor(
			processing.WithSize(cfg.Width, cfg.Height),
			processing.WithResizer(resizer),
			processing.WithLogger(log),
		),
		runtime:  set,
		guidance: cfg.Guidance,
		log:      log,
	}, nil
}

// PredictFile classifies the image at path
func (p *Predictor) PredictFile(ctx context.Context, path string) (*types.Prediction, error) {
	if !utils.PathExists(path) {
		return nil, errors.Wrapf(ErrImageNotFound, "%s", path)
	}

	model, err := p.loader.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load model")
	}

	input, err := p.processor.Preprocess(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to preprocess image")
	}

	res, err := classifier.Classify(ctx, model, input)
	if err != nil {
		return nil, errors.Wrap(err, "prediction failed")
	}
	if !res.Known {
		p.log.Warnf("Class index outside label table, reporting %s", res.Prediction.Disease)
	}

	pred := res.Prediction
	if p.guidance {
		g, err := labels.GuidanceFor(pred.Disease)
		if err != nil {
			return nil, err
		}
		pred.Description = g.Description
		pred.Suggestions = g.Suggestions
	}
	return &pred, nil
}

// Labels returns the class table in model output order
func Labels() []string {
	return labels.Names()
}

// Close releases the model and the runtime
func (p *Predictor) Close() error {
	err := p.loader.Close()
	if rerr := p.runtime.Release(); err == nil {
		err = rerr
	}
	return err
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
