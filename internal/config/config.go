package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/plant-predict/internal/utils"
)

// DefaultModelFile is the model artifact expected next to the executable
const DefaultModelFile = "trained_model.onnx"

// EnvPrefix prefixes every environment override
const EnvPrefix = "PLANT_PREDICT_"

// Config holds the application configuration
type Config struct {
	Model      ModelConfig      `yaml:"model"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Log        LogConfig        `yaml:"log"`
	Output     OutputConfig     `yaml:"output"`
}

// ModelConfig describes the model artifact and how to bind its tensors
type ModelConfig struct {
	// Path to the ONNX artifact. Empty means DefaultModelFile next to the executable.
	Path           string `yaml:"path"`
	InputName      string `yaml:"input_name"`
	OutputName     string `yaml:"output_name"`
	NumClasses     int    `yaml:"num_classes"`
	RuntimeLibrary string `yaml:"runtime_library"`
}

// PreprocessConfig holds the image preprocessing parameters
type PreprocessConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Filter string `yaml:"filter"`
	Engine string `yaml:"engine"`
}

// LogConfig holds the logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OutputConfig holds configuration for the stdout payload
type OutputConfig struct {
	Guidance bool `yaml:"guidance"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			InputName:  "input",
			OutputName: "output",
			NumClasses: 38,
		},
		Preprocess: PreprocessConfig{
			Width:  128,
			Height: 128,
			Filter: "bicubic",
			Engine: "imaging",
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a YAML (or JSON) file on top of
// the defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return config, nil
}

// Load resolves the configuration: an explicit file must exist, otherwise
// the file at GetConfigPath is used when present. Environment overrides are
// applied last.
func Load(explicit string) (*Config, error) {
	var (
		config *Config
		err    error
	)

	switch {
	case explicit != "":
		config, err = LoadFromFile(explicit)
	case utils.FileExists(GetConfigPath()):
		config, err = LoadFromFile(GetConfigPath())
	default:
		config = Default()
	}
	if err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from PLANT_PREDICT_* variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"MODEL_PATH":            &c.Model.Path,
		"MODEL_INPUT_NAME":      &c.Model.InputName,
		"MODEL_OUTPUT_NAME":     &c.Model.OutputName,
		"MODEL_RUNTIME_LIBRARY": &c.Model.RuntimeLibrary,
		"PREPROCESS_FILTER":     &c.Preprocess.Filter,
		"PREPROCESS_ENGINE":     &c.Preprocess.Engine,
		"LOG_LEVEL":             &c.Log.Level,
		"LOG_FORMAT":            &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MODEL_NUM_CLASSES": &c.Model.NumClasses,
		"PREPROCESS_WIDTH":  &c.Preprocess.Width,
		"PREPROCESS_HEIGHT": &c.Preprocess.Height,
	}
	for key, dst := range ints {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return errors.Wrapf(err, "invalid %s%s", EnvPrefix, key)
			}
			*dst = n
		}
	}

	if v, ok := lookup(EnvPrefix + "OUTPUT_GUIDANCE"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "invalid %sOUTPUT_GUIDANCE", EnvPrefix)
		}
		c.Output.Guidance = b
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Model.InputName == "" || c.Model.OutputName == "" {
		return errors.New("model.input_name and model.output_name are required")
	}

	if c.Model.NumClasses < 1 {
		return errors.New("model.num_classes must be positive")
	}

	if c.Preprocess.Width < 1 || c.Preprocess.Height < 1 {
		return errors.New("preprocess.width and preprocess.height must be positive")
	}

	switch strings.ToLower(c.Preprocess.Engine) {
	case "imaging", "nfnt":
	default:
		return errors.Errorf("preprocess.engine must be imaging or nfnt, got %q", c.Preprocess.Engine)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// ModelPath returns the configured model path, or DefaultModelFile inside
// baseDir when none is set.
func (c *Config) ModelPath(baseDir string) string {
	if c.Model.Path != "" {
		return c.Model.Path
	}
	return filepath.Join(baseDir, DefaultModelFile)
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./plant-predict.yaml"
	}
	return filepath.Join(home, ".config", "plant-predict", "config.yaml")
}
