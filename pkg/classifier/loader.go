package classifier

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/menta2k/plant-predict/internal/utils"
)

// ErrModelNotFound is returned when the model artifact is absent
var ErrModelNotFound = errors.New("model file not found")

// OpenFunc turns a model artifact path into a Model
type OpenFunc func(path string) (Model, error)

// Loader loads a model at most once. The first Load call decides the
// outcome; every later call returns the same handle or error without
// touching the filesystem again.
type Loader struct {
	path string
	open OpenFunc
	log  logrus.FieldLogger

	once  sync.Once
	model Model
	err   error
}

// NewLoader creates a loader for the artifact at path. A nil log discards
// traces.
func NewLoader(path string, open OpenFunc, log logrus.FieldLogger) *Loader {
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}
	return &Loader{path: path, open: open, log: log}
}

// Path returns the artifact location
func (l *Loader) Path() string {
	return l.path
}

// Load returns the cached model, loading it on first use
func (l *Loader) Load() (Model, error) {
	l.once.Do(func() {
		if !utils.PathExists(l.path) {
			l.err = errors.Wrapf(ErrModelNotFound, "%s", l.path)
			return
		}

		l.log.WithField("path", l.path).Debug("Loading model")
		m, err := l.open(l.path)
		if err != nil {
			l.err = err
			return
		}
		l.model = m
		l.log.Debug("Model loaded successfully")
	})
	return l.model, l.err
}

// Close releases the model if it was loaded
func (l *Loader) Close() error {
	if l.model == nil {
		return nil
	}
	return l.model.Close()
}
