package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	gen "github.com/cbegin/gen-go"
)

var verbose bool

// logger is replaced by initLogger before any command runs.
var logger = slog.Default()

var rootCmd = &cobra.Command{
	Use:           "gen",
	Short:         "Gen music notation compiler",
	Long:          `Compile Gen scores to MusicXML, MIDI and audio, play them, or serve the compiler over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(cmd.ErrOrStderr(), verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, AddSource: debug}))
	slog.SetDefault(logger)
}

// scoreFlags are the engraving options shared by every command that
// compiles a score.
type scoreFlags struct {
	clef      string
	octave    int
	group     string
	transpose string
	unchecked bool
}

func (f *scoreFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.clef, "clef", "treble", "treble|bass")
	cmd.Flags().IntVar(&f.octave, "octave-shift", 0, "octaves added to every written note")
	cmd.Flags().StringVar(&f.group, "group", "", "instrument group for mod points: Eb|Bb")
	cmd.Flags().StringVar(&f.transpose, "transpose", "", "viewed key of a transposing instrument: Bb|Eb|F")
	cmd.Flags().BoolVar(&f.unchecked, "unchecked", false, "skip measure and repeat validation")
}

func (f *scoreFlags) options() gen.CompileOptions {
	return gen.CompileOptions{
		Clef:            f.clef,
		OctaveShift:     f.octave,
		InstrumentGroup: f.group,
		TransposeKey:    f.transpose,
		Checked:         !f.unchecked,
	}
}

// readSource reads the score named by args[0], or stdin for "-" or no args.
func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// openOutput returns stdout for an empty path or "-".
func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// outputPath derives "song.musicxml" from "song.gen".
func outputPath(input, ext string) string {
	if input == "" || input == "-" {
		return ""
	}
	return strings.TrimSuffix(input, ".gen") + ext
}
