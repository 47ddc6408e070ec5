package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	gen "github.com/cbegin/gen-go"
)

var (
	renderFlags      scoreFlags
	renderOutput     string
	renderSampleRate int
	renderSeconds    float64
	renderRoom       string
	renderNoChords   bool

	playFlags      scoreFlags
	playSampleRate int
	playLoop       bool
	playLoops      int
	playVolume     float64
	playChordLevel float64
	playOctave     int
	playNoChords   bool
	playStraight   bool
	playRoom       string
)

func init() {
	renderFlags.register(renderCmd)
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file (default: input with .wav)")
	renderCmd.Flags().IntVar(&renderSampleRate, "sample-rate", 48000, "output sample rate")
	renderCmd.Flags().Float64Var(&renderSeconds, "seconds", 0, "length to render (0 = whole score)")
	renderCmd.Flags().StringVar(&renderRoom, "room", "room", "master bus: dry|room|hall")
	renderCmd.Flags().BoolVar(&renderNoChords, "no-chords", false, "melody only")

	playFlags.register(playCmd)
	playCmd.Flags().IntVar(&playSampleRate, "sample-rate", 48000, "output sample rate")
	playCmd.Flags().BoolVar(&playLoop, "loop", false, "loop playback; use with --loops to count then stop")
	playCmd.Flags().IntVar(&playLoops, "loops", 3, "with --loop, stop after N loops (0 = forever)")
	playCmd.Flags().Float64Var(&playVolume, "volume", 1.0, "master volume scalar")
	playCmd.Flags().Float64Var(&playChordLevel, "chord-level", 0.6, "accompaniment level relative to the melody")
	playCmd.Flags().IntVar(&playOctave, "octave", 0, "playback octave shift")
	playCmd.Flags().BoolVar(&playNoChords, "no-chords", false, "melody only")
	playCmd.Flags().BoolVar(&playStraight, "straight", false, "ignore swing")
	playCmd.Flags().StringVar(&playRoom, "room", "room", "master bus: dry|room|hall")

	rootCmd.AddCommand(renderCmd, playCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render [file.gen]",
	Short: "Render a score to a WAV file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(cmd, args)
		if err != nil {
			return err
		}
		data, err := gen.GeneratePlaybackData(src, renderFlags.options())
		if err != nil {
			return err
		}
		samples, err := gen.Render(data, gen.RenderOptions{
			SampleRate: renderSampleRate,
			Seconds:    renderSeconds,
			Room:       renderRoom,
			NoChords:   renderNoChords,
		})
		if err != nil {
			return err
		}

		path := renderOutput
		if path == "" && len(args) > 0 {
			path = outputPath(args[0], ".wav")
		}
		out, err := openOutput(cmd, path)
		if err != nil {
			return err
		}
		if _, err := out.Write(gen.EncodeWAVFloat32LE(samples, renderSampleRate, 2)); err != nil {
			out.Close()
			return err
		}
		logger.Debug("rendered", "path", path, "frames", len(samples)/2)
		return out.Close()
	},
}

var playCmd = &cobra.Command{
	Use:   "play [file.gen]",
	Short: "Play a score through the audio device",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(cmd, args)
		if err != nil {
			return err
		}
		data, err := gen.GeneratePlaybackData(src, playFlags.options())
		if err != nil {
			return err
		}
		pl, err := gen.NewPlayer(playSampleRate,
			gen.WithLoopPlayback(playLoop),
			gen.WithChords(!playNoChords),
			gen.WithStraightTime(playStraight),
			gen.WithVolume(playVolume),
			gen.WithChordLevel(playChordLevel),
			gen.WithRoom(playRoom),
		)
		if err != nil {
			return err
		}
		pl.SetTranspose(playOctave)

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		defer signal.Stop(interrupt)

		ch := pl.Watch()
		if err := pl.Play(data); err != nil {
			return err
		}
		loopCount := 0
		for {
			select {
			case <-interrupt:
				return pl.Stop()
			case ev := <-ch:
				switch ev.Kind {
				case gen.EventPlaybackEnded:
					fmt.Fprintln(cmd.OutOrStdout(), "playback completed")
					pl.Wait()
					return nil
				case gen.EventLoopCompleted:
					loopCount++
					fmt.Fprintf(cmd.OutOrStdout(), "loop %d completed\n", loopCount)
					if playLoops > 0 && loopCount >= playLoops {
						if err := pl.Stop(); err != nil {
							return err
						}
					}
				case gen.EventNote:
					logger.Debug("note",
						"measure", ev.Note.MeasureNumber,
						"beat", ev.Note.BeatInMeasure,
						"midi", ev.Note.MIDINote,
						"key", ev.Note.OSMDMatchKey)
				}
			}
		}
	},
}
