package cli

import (
	"io/ioutil"
	"os"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Config is the node configuration of the demo application.
type Config struct {
	// DBPath is the location of the capability cache database.
	DBPath string `yaml:"dbPath"`

	// Title is the title of the demo exam.
	Title string `yaml:"title"`

	// Threshold is the passing threshold of the demo exam.
	Threshold uint64 `yaml:"threshold"`

	// MaxScores is the maximum score of each question.
	MaxScores []int `yaml:"maxScores"`

	// Scores is the set of scores submitted by the demo student.
	Scores []uint64 `yaml:"scores"`
}

// defaultConfig is used when no configuration file is provided.
var defaultConfig = Config{
	DBPath:    "eexam.db",
	Title:     "algebra",
	Threshold: 60,
	MaxScores: []int{30, 30, 40},
	Scores:    []uint64{25, 28, 35},
}

// LoadConfig reads the YAML configuration at the given path. An empty path
// returns the default configuration.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return defaultConfig, nil
	}

	buffer, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig, nil
		}

		return Config{}, xerrors.Errorf("failed to read config: %v", err)
	}

	config := defaultConfig

	err = yaml.Unmarshal(buffer, &config)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to unmarshal config: %v", err)
	}

	if len(config.Scores) != len(config.MaxScores) {
		return Config{}, xerrors.Errorf("expected %d scores, got %d",
			len(config.MaxScores), len(config.Scores))
	}

	return config, nil
}
