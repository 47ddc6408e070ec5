package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bep/debounce"
	"github.com/spf13/cobra"

	gen "github.com/cbegin/gen-go"
)

var (
	watchFlags    scoreFlags
	watchOutput   string
	watchInterval time.Duration
	watchDelay    time.Duration
)

func init() {
	watchFlags.register(watchCmd)
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "output file (default: input with .musicxml)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 250*time.Millisecond, "how often to stat the file")
	watchCmd.Flags().DurationVar(&watchDelay, "delay", 300*time.Millisecond, "quiet period before recompiling")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch file.gen",
	Short: "Recompile a score to MusicXML whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		output := watchOutput
		if output == "" {
			output = outputPath(input, ".musicxml")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rebuild := func() {
			if err := compileFile(input, output, watchFlags.options()); err != nil {
				logger.Error("compile failed", "file", input, "error", err)
				return
			}
			logger.Info("compiled", "file", input, "output", output)
		}
		rebuild()
		err := watchFile(ctx, input, watchInterval, watchDelay, rebuild)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func compileFile(input, output string, opts gen.CompileOptions) error {
	src, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	xml, err := gen.CompileWithOptions(string(src), opts)
	if err != nil {
		return err
	}
	return os.WriteFile(output, []byte(xml), 0o644)
}

// watchFile polls path and calls onChange once edits have been quiet for
// delay. It returns when ctx is done.
func watchFile(ctx context.Context, path string, interval, delay time.Duration, onChange func()) error {
	last, err := modTime(path)
	if err != nil {
		return err
	}
	debounced := debounce.New(delay)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			mt, err := modTime(path)
			if err != nil {
				// editors often replace the file; try again next tick
				logger.Debug("stat failed", "file", path, "error", err)
				continue
			}
			if !mt.Equal(last) {
				last = mt
				debounced(onChange)
			}
		}
	}
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
