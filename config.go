package worldline

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig is the on-disk shape LoadOptionsFile decodes: the scalar
// knobs a CheckSystem caller would otherwise hardcode, split out so a
// deployment can tune them without a rebuild.
type FileConfig struct {
	Concurrency   int    `toml:"concurrency"`
	Repetitions   int    `toml:"repetitions"`
	SearchThreads int    `toml:"search_threads"`
	DeadlineMS    int    `toml:"deadline_ms"`
	NumTests      int    `toml:"num_tests"`
	Seed          int64  `toml:"seed"`
	MaxShrink     int    `toml:"max_shrink"`
	ReportStyle   string `toml:"report_style"`
}

// LoadOptionsFile decodes a TOML configuration file into a FileConfig.
func LoadOptionsFile(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FileConfig
	if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Deadline converts DeadlineMS to a time.Duration; zero means no deadline.
func (c *FileConfig) Deadline() time.Duration {
	if c == nil || c.DeadlineMS <= 0 {
		return 0
	}
	return time.Duration(c.DeadlineMS) * time.Millisecond
}

// ApplyFileConfig folds the non-zero Concurrency, Repetitions,
// SearchThreads and DeadlineMS fields of c into opts, returning the
// extended option list. NumTests, Seed, MaxShrink and ReportStyle are not
// Options and are not applied here. The file's options are appended after
// opts, so they take precedence over options already in opts; options
// appended to the returned list afterwards take precedence over the file.
func ApplyFileConfig[S, M, C any](c *FileConfig, opts []Option[S, M, C]) []Option[S, M, C] {
	if c == nil {
		return opts
	}
	if c.Concurrency > 0 {
		opts = append(opts, WithConcurrency[S, M, C](c.Concurrency))
	}
	if c.Repetitions > 0 {
		opts = append(opts, WithRepetitions[S, M, C](c.Repetitions))
	}
	if c.SearchThreads > 0 {
		opts = append(opts, WithSearchThreads[S, M, C](c.SearchThreads))
	}
	if d := c.Deadline(); d > 0 {
		opts = append(opts, WithDeadline[S, M, C](d))
	}
	return opts
}
