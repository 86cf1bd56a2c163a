package gamification

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

//go:embed levels.toml
var defaultLevelTable []byte

type levelFile struct {
	Levels []LevelDefinition `toml:"levels"`
}

// LoadLevelTable reads a TOML level table from path, or the built-in table
// when path is empty. Every failure is a *ConfigurationError.
func LoadLevelTable(path string) (*LevelTable, error) {
	if path == "" {
		return DecodeLevelTable(bytes.NewReader(defaultLevelTable))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: "open " + path, Err: err}
	}
	defer file.Close()

	return DecodeLevelTable(file)
}

// DecodeLevelTable decodes and validates a level table. Unknown keys are rejected.
func DecodeLevelTable(r io.Reader) (*LevelTable, error) {
	var f levelFile
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&f); err != nil {
		return nil, &ConfigurationError{Reason: "decode", Err: err}
	}
	return NewLevelTable(f.Levels)
}
