package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"voicehal/services/hal"
	"voicehal/services/hal/setups"
	"voicehal/services/selftest"
	"voicehal/services/tools"
	"voicehal/x/logx"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg = loadConfig()
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "audiotest",
	Short:        "Board bring-up and audio self-test",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logx.Console(logx.ParseLevel(cfg.LogLevel, zerolog.InfoLevel))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	toneCmd.Flags().Float64SliceVar(&cfg.Freqs, "freq", cfg.Freqs, "tone frequencies in Hz")
	toneCmd.Flags().DurationVar(&cfg.StepDuration, "duration", cfg.StepDuration, "duration of each tone")
	toneCmd.Flags().DurationVar(&cfg.Pause, "pause", cfg.Pause, "silence between tones")
	micCmd.Flags().IntVar(&cfg.MicFrames, "frames", cfg.MicFrames, "frames to capture")

	toolsCmd.AddCommand(toolsListCmd, toolsCallCmd)
	rootCmd.AddCommand(infoCmd, toneCmd, micCmd, toolsCmd)
}

// withBoard brings the selected board up for the duration of fn.
func withBoard(fn func(ctx context.Context, b *hal.Board) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := hal.New(ctx, setups.Get(), hal.DefaultPlatform(), hal.WithLogger(log))
	if err != nil {
		return err
	}
	defer b.Close()
	if err := b.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, b)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "List bound capabilities and bring-up status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(func(_ context.Context, b *hal.Board) error {
			fmt.Printf("board: %s\n", b.Name())
			for _, st := range b.Status() {
				line := fmt.Sprintf("  %-14s %s", st.Kind, st.Link)
				if st.Error != "" {
					line += " (" + st.Error + ")"
				}
				fmt.Println(line)
			}
			if c, ok := b.AudioCodec().Get(); ok {
				fmt.Printf("codec: %s (%s)\n", c.Name(), c.Variant())
			}
			if d, ok := b.Display().Get(); ok {
				w, h := d.Size()
				fmt.Printf("display: %dx%d\n", w, h)
			}
			return nil
		})
	},
}

var toneCmd = &cobra.Command{
	Use:   "tone",
	Short: "Play the tone sweep through the speaker",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(func(ctx context.Context, b *hal.Board) error {
			c, ok := b.AudioCodec().Get()
			if !ok {
				return fmt.Errorf("board %s has no working audio codec", b.Name())
			}
			out, err := c.Output()
			if err != nil {
				return err
			}
			if err := c.EnableOutput(true); err != nil {
				return err
			}
			defer c.EnableOutput(false)

			steps := make([]selftest.Step, 0, len(cfg.Freqs))
			for _, f := range cfg.Freqs {
				steps = append(steps, selftest.Step{Freq: f, Duration: cfg.StepDuration})
			}
			h := &selftest.Harness{
				Out:          out,
				Rate:         b.Descriptor().Audio.RateOut,
				FrameSamples: b.Descriptor().Audio.FrameSamples,
				Steps:        steps,
				Pause:        cfg.Pause,
				Log:          log,
			}
			reps, err := h.Run(ctx)
			for _, r := range reps {
				log.Info().
					Float64("freq", r.Freq).
					Int("frames", r.Frames).
					Int("bytes", r.Bytes).
					Int("errors", r.Errors).
					Dur("elapsed", r.Elapsed).
					Msg("Step done")
			}
			return err
		})
	},
}

var micCmd = &cobra.Command{
	Use:   "mic",
	Short: "Measure microphone level",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(func(ctx context.Context, b *hal.Board) error {
			in, ok := b.Microphone().Get()
			if !ok {
				return fmt.Errorf("board %s has no microphone", b.Name())
			}
			lv, err := selftest.MeasureInput(ctx, in, cfg.MicFrames, time.Second)
			if err != nil {
				return err
			}
			log.Info().
				Int("samples", lv.Samples).
				Int("peak", lv.Peak).
				Float64("rms", lv.RMS).
				Float64("dbfs", lv.DBFS).
				Msg("Microphone level")
			return nil
		})
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List or call board tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTools(func(_ context.Context, r *tools.Registry) error {
			return printJSON(r.List())
		})
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <name> [json-args]",
	Short: "Invoke one tool",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw json.RawMessage
		if len(args) == 2 {
			raw = json.RawMessage(args[1])
		}
		return withTools(func(ctx context.Context, r *tools.Registry) error {
			return printJSON(r.Invoke(ctx, args[0], raw))
		})
	},
}

func withTools(fn func(ctx context.Context, r *tools.Registry) error) error {
	return withBoard(func(ctx context.Context, b *hal.Board) error {
		r := tools.NewRegistry(tools.WithLogger(log))
		if err := tools.RegisterBoardTools(r, b); err != nil {
			return err
		}
		return fn(ctx, r)
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
