package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/wordsort/wordsort/pkg/codec"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

const (
	// DefaultMemoryBudget is the default batch byte budget
	DefaultMemoryBudget = 64 * 1024 * 1024 // 64MB
	// DefaultBlockSize is the default uncompressed segment block size
	DefaultBlockSize = 64 * 1024 // 64KB
	// DefaultMaxWordLen caps the size of a single input token
	DefaultMaxWordLen = 1024 * 1024 // 1MB
)

type Config struct {
	// Sort configuration
	MemoryBudget int64 `json:"memory_budget"`
	Reverse      bool  `json:"reverse"`
	CountRuns    bool  `json:"count_runs"`
	Unique       bool  `json:"unique"`

	// Spill segment configuration
	TempDir   string `json:"temp_dir"`
	BlockSize int    `json:"block_size"`
	Codec     string `json:"codec"`

	// Input configuration
	MaxWordLen int `json:"max_word_len"`
}

// NewDefaultConfig creates a Config with recommended default values
func NewDefaultConfig() *Config {
	return &Config{
		MemoryBudget: DefaultMemoryBudget,
		TempDir:      os.TempDir(),
		BlockSize:    DefaultBlockSize,
		Codec:        codec.TypeZstd.String(),
		MaxWordLen:   DefaultMaxWordLen,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MemoryBudget <= 0 {
		return fmt.Errorf("%w: memory budget must be positive", ErrInvalidConfig)
	}

	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: block size must be positive", ErrInvalidConfig)
	}

	if int64(c.BlockSize) > c.MemoryBudget {
		return fmt.Errorf("%w: block size %d exceeds memory budget %d",
			ErrInvalidConfig, c.BlockSize, c.MemoryBudget)
	}

	if c.TempDir == "" {
		return fmt.Errorf("%w: temp directory not specified", ErrInvalidConfig)
	}

	if c.MaxWordLen <= 0 {
		return fmt.Errorf("%w: max word length must be positive", ErrInvalidConfig)
	}

	if _, err := codec.ParseType(c.Codec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.CountRuns && c.Unique {
		return fmt.Errorf("%w: count and unique modes are mutually exclusive", ErrInvalidConfig)
	}

	return nil
}

// CodecType resolves the configured codec name
func (c *Config) CodecType() (codec.Type, error) {
	return codec.ParseType(c.Codec)
}
