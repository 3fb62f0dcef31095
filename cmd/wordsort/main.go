package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/wordsort/wordsort/pkg/common/log"
	"github.com/wordsort/wordsort/pkg/config"
	"github.com/wordsort/wordsort/pkg/engine"
	"github.com/wordsort/wordsort/pkg/transform"
	"github.com/wordsort/wordsort/pkg/wordio"
)

const version = "1.0.0"

func main() {
	app := &cli.App{
		Name:      "wordsort",
		Usage:     "sort word lists larger than memory",
		Version:   version,
		ArgsUsage: "[input files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write sorted output to `FILE` instead of stdout",
			},
			&cli.StringFlag{
				Name:  "memory",
				Value: humanize.IBytes(config.DefaultMemoryBudget),
				Usage: "memory budget per in-memory batch (e.g. 256MiB)",
			},
			&cli.StringFlag{
				Name:  "block-size",
				Value: humanize.IBytes(config.DefaultBlockSize),
				Usage: "uncompressed size of a spill segment block",
			},
			&cli.StringFlag{
				Name:  "codec",
				Value: config.NewDefaultConfig().Codec,
				Usage: "spill compression codec: zstd, snappy or none",
			},
			&cli.StringFlag{
				Name:  "tmp-dir",
				Usage: "directory for spill segments (default: system temp)",
			},
			&cli.BoolFlag{
				Name:  "count",
				Usage: "emit each distinct word once as count<TAB>word",
			},
			&cli.BoolFlag{
				Name:  "unique",
				Usage: "emit each distinct word once",
			},
			&cli.BoolFlag{
				Name:  "reverse",
				Usage: "sort descending instead of ascending",
			},
			&cli.BoolFlag{
				Name:  "wordify",
				Usage: "split input lines into whitespace-separated words",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log progress to stderr",
			},

			// Per-word transforms
			&cli.BoolFlag{Name: "lower", Usage: "fold words to lower case"},
			&cli.BoolFlag{Name: "digit-trim", Usage: "trim digits from both ends of words"},
			&cli.BoolFlag{Name: "special-trim", Usage: "trim special characters from both ends of words"},
			&cli.BoolFlag{Name: "detab", Usage: "remove tabs and spaces from the beginning of words"},
			&cli.IntFlag{Name: "maxtrim", Usage: "trim words longer than `N` bytes"},
			&cli.BoolFlag{Name: "dup-remove", Usage: "collapse repeated characters within words"},
			&cli.BoolFlag{Name: "no-numbers", Usage: "drop all-numeric words"},
			&cli.BoolFlag{Name: "hash-remove", Usage: "drop words that look like hex hashes"},
			&cli.IntFlag{Name: "dup-sense", Usage: "drop words where one character exceeds `N`% of the word"},
			&cli.IntFlag{Name: "minlen", Usage: "drop words shorter than `N` bytes"},
			&cli.IntFlag{Name: "maxlen", Usage: "drop words longer than `N` bytes"},
			&cli.BoolFlag{Name: "dewebify", Usage: "strip HTML tags from input"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}

	level := log.LevelWarn
	if c.Bool("verbose") {
		level = log.LevelDebug
	}
	logger := log.NewStandardLogger(log.WithLevel(level))

	eng, err := engine.NewEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	input, closeInput, err := openInput(c.Args().Slice())
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInput, err)
	}
	defer closeInput()

	out, finalize, discard, err := openOutput(c.String("output"))
	if err != nil {
		return err
	}

	pipeline := transform.NewPipeline(transform.Options{
		Dewebify:    c.Bool("dewebify"),
		Lower:       c.Bool("lower"),
		DigitTrim:   c.Bool("digit-trim"),
		SpecialTrim: c.Bool("special-trim"),
		Detab:       c.Bool("detab"),
		MaxTrim:     c.Int("maxtrim"),
		DupRemove:   c.Bool("dup-remove"),
		NoNumbers:   c.Bool("no-numbers"),
		HashRemove:  c.Bool("hash-remove"),
		DupSense:    c.Int("dup-sense"),
		MinLen:      c.Int("minlen"),
		MaxLen:      c.Int("maxlen"),
	})

	src := transform.NewFilterSource(
		wordio.NewScanner(input, c.Bool("wordify"), cfg.MaxWordLen), pipeline)
	dst := wordio.NewWriter(out, cfg.CountRuns)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := eng.Sort(ctx, src, dst); err != nil {
		discard()
		return err
	}
	if err := finalize(); err != nil {
		return err
	}

	st := eng.Stats()
	logger.Info("sorted %s words into %s (%d batches, %d segments, %s spilled) in %v",
		humanize.Comma(int64(st.WordsIn)), humanize.Comma(int64(st.WordsOut)),
		st.BatchesSorted, st.SegmentsWritten, humanize.IBytes(st.BytesSpilled),
		time.Since(start).Round(time.Millisecond))

	return nil
}

func buildConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.NewDefaultConfig()

	memory, err := humanize.ParseBytes(c.String("memory"))
	if err != nil {
		return nil, fmt.Errorf("invalid --memory value %q: %w", c.String("memory"), err)
	}
	cfg.MemoryBudget = int64(memory)

	blockSize, err := humanize.ParseBytes(c.String("block-size"))
	if err != nil {
		return nil, fmt.Errorf("invalid --block-size value %q: %w", c.String("block-size"), err)
	}
	cfg.BlockSize = int(blockSize)

	cfg.Codec = c.String("codec")
	if dir := c.String("tmp-dir"); dir != "" {
		cfg.TempDir = dir
	}
	cfg.CountRuns = c.Bool("count")
	cfg.Unique = c.Bool("unique")
	cfg.Reverse = c.Bool("reverse")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openInput resolves the input stream: the named files concatenated in
// order, or stdin when no files are given. A newline is stitched between
// files so a missing trailing newline cannot join words across files.
func openInput(paths []string) (io.Reader, func(), error) {
	if len(paths) == 0 {
		return os.Stdin, func() {}, nil
	}

	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	readers := make([]io.Reader, 0, len(paths)*2)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		readers = append(readers, f, newlineReader{})
	}

	return io.MultiReader(readers...), closeAll, nil
}

// newlineReader yields a single newline, then EOF
type newlineReader struct{}

func (newlineReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = '\n'
	return 1, io.EOF
}

// openOutput resolves the output stream. Named outputs are written to a
// temporary file and renamed into place on success, so a failed sort leaves
// the destination untouched.
func openOutput(path string) (io.Writer, func() error, func(), error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, func() {}, nil
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}

	finalize := func() error {
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("failed to sync output file: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close output file: %w", err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return fmt.Errorf("failed to finalize output file: %w", err)
		}
		return nil
	}

	discard := func() {
		f.Close()
		os.Remove(tmpPath)
	}

	return f, finalize, discard, nil
}
