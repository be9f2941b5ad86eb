// Package main is the entry point for the midi2gcode CLI
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/james-see/midi2gcode/pkg/api"
	"github.com/james-see/midi2gcode/pkg/converter"
	"github.com/james-see/midi2gcode/pkg/converter/dialects"
	"github.com/james-see/midi2gcode/pkg/printer"
	"github.com/james-see/midi2gcode/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile  string
	previewFile string
	dialectName string
	toStdout    bool
	verbose     bool
	serverPort  int
	serialPort  string
	baudRate    int

	channel    uint8
	gapMs      int
	tempo      uint32
	tempoTrack int
	order      string
	transpose  int
	comments   bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "midi2gcode",
	Short: "Turn MIDI melodies into beeper G-code",
	Long: `midi2gcode converts a channel of a Standard MIDI File into a program of
timed tones for a machine controller: M300 beeper G-code for Marlin
3D printers, or a :beep script for MikroTik RouterOS.

Examples:
  midi2gcode convert song.mid -o song.gcode
  midi2gcode convert song.mid --channel 1 --dialect mikrotik --stdout
  midi2gcode inspect song.mid
  midi2gcode send song.gcode --port /dev/ttyUSB0
  midi2gcode tui
  midi2gcode serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "midi2gcode"})
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
		cmd.SetContext(log.WithContext(cmd.Context(), logger))
	},
	SilenceUsage: true,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input.mid>",
	Short: "Convert a MIDI file to a tone program",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <input.mid>",
	Short: "Show conversion diagnostics without writing output",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var sendCmd = &cobra.Command{
	Use:   "send <program.gcode>",
	Short: "Stream a G-code program to a printer over serial",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE:  runPorts,
}

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List output dialects",
	RunE:  runDialects,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	// tui picks the dialect from its menu
	for _, cmd := range []*cobra.Command{convertCmd, inspectCmd} {
		cmd.Flags().StringVarP(&dialectName, "dialect", "d", dialects.Default, "Output dialect ("+strings.Join(dialects.Names(), ", ")+")")
	}
	for _, cmd := range []*cobra.Command{convertCmd, inspectCmd, tuiCmd} {
		addConversionFlags(cmd)
	}

	// convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: input with dialect extension)")
	convertCmd.Flags().StringVar(&previewFile, "preview", "", "Also write the tone sequence as a MIDI file")
	convertCmd.Flags().BoolVar(&toStdout, "stdout", false, "Print the program instead of writing a file")

	// send command
	sendCmd.Flags().StringVarP(&serialPort, "port", "p", "", "Serial port (required)")
	sendCmd.Flags().IntVarP(&baudRate, "baud", "b", printer.DefaultBaudRate, "Baud rate")
	_ = sendCmd.MarkFlagRequired("port")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(dialectsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func addConversionFlags(cmd *cobra.Command) {
	defaults := converter.DefaultOptions()
	cmd.Flags().Uint8VarP(&channel, "channel", "c", defaults.Channel, "MIDI channel to extract (0-15)")
	cmd.Flags().IntVarP(&gapMs, "gap", "g", defaults.GapMs, "Silence after each tone in ms")
	cmd.Flags().Uint32Var(&tempo, "tempo", defaults.MicrosecondsPerBeat, "Tempo in microseconds per beat until the first tempo event")
	cmd.Flags().IntVar(&tempoTrack, "tempo-track", defaults.TempoTrack, "Track whose tempo events are used")
	cmd.Flags().StringVar(&order, "order", string(defaults.Order), "Track merge order (interleave, concatenate)")
	cmd.Flags().IntVarP(&transpose, "transpose", "t", 0, "Transpose by semitones")
	cmd.Flags().BoolVar(&comments, "comments", false, "Annotate tones with note names")
}

func getOptions() (converter.Options, error) {
	ord, err := converter.ParseOrder(order)
	if err != nil {
		return converter.Options{}, err
	}
	opts := converter.Options{
		Channel:             channel,
		MicrosecondsPerBeat: tempo,
		GapMs:               gapMs,
		Order:               ord,
		TempoTrack:          tempoTrack,
		Transpose:           transpose,
		Comments:            comments,
	}
	return opts, opts.Validate()
}

func getConverter() (*converter.Converter, error) {
	opts, err := getOptions()
	if err != nil {
		return nil, err
	}
	dialect, err := dialects.Get(dialectName)
	if err != nil {
		return nil, err
	}
	return converter.New(dialect, opts), nil
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	conv, err := getConverter()
	if err != nil {
		return err
	}

	var res *converter.Result
	if toStdout {
		data, err := os.ReadFile(input)
		if err != nil {
			return err
		}
		if res, err = conv.Convert(cmd.Context(), data); err != nil {
			return err
		}
		if _, err := cmd.OutOrStdout().Write(res.Program); err != nil {
			return err
		}
	} else {
		output := getOutputPath(input, conv.GetDialect().Extension())
		if res, err = conv.ConvertFile(cmd.Context(), input, output); err != nil {
			return err
		}
		fmt.Printf("Converted %s -> %s (%d tones, %.1fs)\n", input, output, res.Stats.Tones, float64(res.Stats.DurationMs)/1000)
	}

	if previewFile != "" {
		data, err := converter.RenderPreview(res.Tones, conv.Options().GapMs)
		if err != nil {
			return err
		}
		if err := converter.WriteFileAtomic(previewFile, data); err != nil {
			return err
		}
		log.FromContext(cmd.Context()).Info("wrote preview", "file", previewFile)
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	conv, err := getConverter()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	res, err := conv.Convert(cmd.Context(), data)
	if err != nil {
		return err
	}

	st := res.Stats
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:               %s\n", args[0])
	fmt.Fprintf(out, "Tracks:             %d\n", st.Tracks)
	fmt.Fprintf(out, "Channel:            %d\n", conv.Options().Channel)
	fmt.Fprintf(out, "Note ons:           %d\n", st.NoteOns)
	fmt.Fprintf(out, "Resolved notes:     %d\n", st.Resolved)
	fmt.Fprintf(out, "Tones:              %d\n", st.Tones)
	fmt.Fprintf(out, "Too short:          %d\n", st.Dropped)
	fmt.Fprintf(out, "Out of range:       %d\n", st.OutOfRange)
	fmt.Fprintf(out, "Unclosed notes:     %d\n", st.Unclosed)
	fmt.Fprintf(out, "Unmatched offs:     %d\n", st.UnmatchedOffs)
	fmt.Fprintf(out, "Retriggered:        %d\n", st.Retriggered)
	fmt.Fprintf(out, "Tempo breakpoints:  %d\n", st.TempoBreakpoints)
	for _, bp := range res.Breakpoints {
		fmt.Fprintf(out, "  tick %-10d %7d us/beat (%.1f BPM)\n", bp.Tick, bp.MicrosecondsPerBeat, 60000000/float64(bp.MicrosecondsPerBeat))
	}
	fmt.Fprintf(out, "Ignored tempo:      %d\n", st.IgnoredTempoEvents)
	fmt.Fprintf(out, "Duration:           %.1fs\n", float64(st.DurationMs)/1000)
	if res.Empty() {
		fmt.Fprintln(out, "No tones produced; try another --channel")
	}
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	// Only G-code has the ok handshake, RouterOS scripts are imported on the router
	switch converter.DetectFormat(args[0]) {
	case converter.FormatGCode:
	case converter.FormatMIDI:
		return errors.New("send expects a converted program, run convert first")
	default:
		return fmt.Errorf("send expects a G-code program (.gcode, .gco, .g), got %s", args[0])
	}
	program, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	port, err := printer.Open(serialPort, baudRate)
	if err != nil {
		return err
	}
	defer func() { _ = port.Close() }()

	fmt.Printf("Sending %s to %s...\n", args[0], serialPort)
	sent, err := printer.NewSender(port).Send(cmd.Context(), bytes.NewReader(program))
	if err != nil {
		return fmt.Errorf("sent %d lines: %w", sent, err)
	}
	fmt.Printf("Sent %d lines\n", sent)
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := printer.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func runDialects(cmd *cobra.Command, args []string) error {
	for _, name := range dialects.Names() {
		d, err := dialects.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-6s %s\n", d.Name(), d.Extension(), d.Description())
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	opts, err := getOptions()
	if err != nil {
		return err
	}
	return tui.Run(opts)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort, log.FromContext(cmd.Context()))
}
