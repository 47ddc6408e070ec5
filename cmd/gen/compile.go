package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	gen "github.com/cbegin/gen-go"
	"github.com/cbegin/gen-go/internal/musicxml"
)

var (
	compileFlags  scoreFlags
	compileOutput string

	checkQuiet bool

	playbackFlags  scoreFlags
	playbackOutput string
	playbackIndent bool

	midiFlags    scoreFlags
	midiOutput   string
	midiNoChords bool
)

func init() {
	compileFlags.register(compileCmd)
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "output file (default stdout)")

	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "print nothing on success")

	playbackFlags.register(playbackCmd)
	playbackCmd.Flags().StringVarP(&playbackOutput, "output", "o", "", "output file (default stdout)")
	playbackCmd.Flags().BoolVar(&playbackIndent, "indent", false, "indent the JSON")

	midiFlags.register(midiCmd)
	midiCmd.Flags().StringVarP(&midiOutput, "output", "o", "", "output file (default: input with .mid)")
	midiCmd.Flags().BoolVar(&midiNoChords, "no-chords", false, "leave out the chord track")

	rootCmd.AddCommand(compileCmd, checkCmd, playbackCmd, midiCmd, chordCmd, inspectCmd)
}

var compileCmd = &cobra.Command{
	Use:   "compile [file.gen]",
	Short: "Compile a score to MusicXML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(cmd, args)
		if err != nil {
			return err
		}
		xml, err := gen.CompileWithOptions(src, compileFlags.options())
		if err != nil {
			return err
		}
		out, err := openOutput(cmd, compileOutput)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.WriteString(out, xml)
		return err
	},
}

var checkCmd = &cobra.Command{
	Use:   "check file.gen...",
	Short: "Validate scores",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			src, err := os.ReadFile(path)
			if err == nil {
				var score *gen.Score
				if score, err = gen.Parse(string(src)); err == nil {
					err = gen.Validate(score)
				}
			}
			if err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, err)
				continue
			}
			if !checkQuiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scores failed", failed, len(args))
		}
		return nil
	},
}

var playbackCmd = &cobra.Command{
	Use:   "playback [file.gen]",
	Short: "Print the playback schedule as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(cmd, args)
		if err != nil {
			return err
		}
		data, err := gen.GeneratePlaybackData(src, playbackFlags.options())
		if err != nil {
			return err
		}
		out, err := openOutput(cmd, playbackOutput)
		if err != nil {
			return err
		}
		defer out.Close()
		enc := json.NewEncoder(out)
		if playbackIndent {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(data)
	},
}

var midiCmd = &cobra.Command{
	Use:   "midi [file.gen]",
	Short: "Export a score as a Standard MIDI File",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(cmd, args)
		if err != nil {
			return err
		}
		data, err := gen.GeneratePlaybackData(src, midiFlags.options())
		if err != nil {
			return err
		}
		md, err := gen.ReadMetadata(src)
		if err != nil {
			return err
		}
		opts := gen.MIDIOptionsFor(md)
		opts.NoChords = midiNoChords

		path := midiOutput
		if path == "" && len(args) > 0 {
			path = outputPath(args[0], ".mid")
		}
		out, err := openOutput(cmd, path)
		if err != nil {
			return err
		}
		if err := gen.WriteMIDI(out, data, opts); err != nil {
			out.Close()
			return err
		}
		logger.Debug("wrote midi", "path", path, "notes", len(data.Notes), "chords", len(data.Chords))
		return out.Close()
	},
}

var chordCmd = &cobra.Command{
	Use:   "chord symbol...",
	Short: "Show the MIDI notes a chord symbol plays",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, sym := range args {
			notes := gen.ParseChordSymbol(sym)
			if len(notes) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: unrecognized\n", sym)
				continue
			}
			parts := make([]string, len(notes))
			for i, n := range notes {
				parts[i] = fmt.Sprint(n)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", sym, strings.Join(parts, " "))
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect file.musicxml",
	Short: "Summarize a MusicXML document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		doc, err := musicxml.Decode(r)
		if err != nil {
			return fmt.Errorf("decode musicxml: %w", err)
		}
		if len(doc.Parts) == 0 {
			return errors.New("no parts")
		}
		summarize(cmd.OutOrStdout(), doc)
		return nil
	},
}

func summarize(w io.Writer, doc *musicxml.Document) {
	if doc.Title != "" {
		fmt.Fprintf(w, "title:     %s\n", doc.Title)
	}
	if doc.Composer != "" {
		fmt.Fprintf(w, "composer:  %s\n", doc.Composer)
	}
	for _, p := range doc.Parts {
		notes, rests, harmonies := 0, 0, 0
		for _, m := range p.Measures {
			harmonies += len(m.Harmonies)
			for _, n := range m.Notes {
				if n.Rest != nil {
					rests++
				} else {
					notes++
				}
			}
		}
		fmt.Fprintf(w, "part %s:   %d measures, %d notes, %d rests, %d harmonies\n",
			p.ID, len(p.Measures), notes, rests, harmonies)
		if len(p.Measures) > 0 && len(p.Measures[0].Attributes) > 0 {
			a := p.Measures[0].Attributes[0]
			if a.Time != nil {
				fmt.Fprintf(w, "  time:    %d/%d\n", a.Time.Beats, a.Time.BeatType)
			}
			if a.Key != nil {
				fmt.Fprintf(w, "  fifths:  %d\n", a.Key.Fifths)
			}
			if a.Clef != nil {
				fmt.Fprintf(w, "  clef:    %s%d\n", a.Clef.Sign, a.Clef.Line)
			}
		}
	}
}
