// Command spettro renders a scrolling, interactive logarithmic
// spectrogram of an audio file synchronized with its playback.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/spettro-go/spettro/pkg/config"
	"github.com/spettro-go/spettro/pkg/display"
	"github.com/spettro-go/spettro/pkg/logging"
	"github.com/spettro-go/spettro/pkg/notefreq"
)

const version = "0.1.0"

// cliOptions is the parsed and validated result of the flag table in
// spec.md §6.
type cliOptions struct {
	autoplay, exitOnEnd      bool
	width, height            int
	fullscreen               bool
	minFreq, maxFreq         float64
	dynRange, logMax         float64
	freqAxis, timeAxis       bool
	fftFreq                  float64
	startTime                float64
	leftBar, rightBar        *float64
	beats                    int
	ppsec, fps               float64
	piano, score, guitar     bool
	softVol                  float64
	window                   display.WindowKind
	colorMap                 display.ColorMap
	output                   string
	jobs                     int
	configPath               string
}

func main() {
	opts, files, exitCode, handled := parseFlags(os.Args[1:])
	if handled {
		os.Exit(exitCode)
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spettro: %v\n", err)
		os.Exit(1)
	}
	cfg.Scheduler.MaxThreads = opts.jobs
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "spettro: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitGlobal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "spettro: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseGlobal()

	app, err := newApp(cfg, logging.Global(), opts, files)
	if err != nil {
		logging.Error("main", err.Error())
		os.Exit(1)
	}

	if opts.output != "" {
		app.pnt.RepaintDisplay(true, app.controller.Snapshot())
		if err := app.controller.Screenshot(opts.output); err != nil {
			logging.Error("main", err.Error())
			os.Exit(1)
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	app.Start()
	logging.Info("main", fmt.Sprintf("spettro %s listening on %s", version, app.server.Addr()))

	select {
	case <-sigCh:
	case <-app.controller.QuitRequested():
	}

	logging.Info("main", "shutting down")
	app.Stop()
}

// parseFlags parses and validates spec.md §6's flag table. handled is
// true when main should exit immediately (info flags, usage errors);
// exitCode is only meaningful when handled is true.
func parseFlags(args []string) (cliOptions, []string, int, bool) {
	fs := flag.NewFlagSet("spettro", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: spettro [options] file...\n")
		fs.PrintDefaults()
	}

	autoplay := fs.BoolP("autoplay", "p", false, "Start playing immediately")
	exitOnEnd := fs.BoolP("exit", "e", false, "Quit when playback ends")
	width := fs.IntP("width", "w", 800, "Canvas width in pixels")
	height := fs.IntP("height", "h", 480, "Canvas height in pixels")
	fullscreen := fs.BoolP("fullscreen", "F", false, "Fullscreen on open")
	minFreqStr := fs.StringP("min-freq", "n", "20", "Minimum displayed frequency (Hz or note name)")
	maxFreqStr := fs.StringP("max-freq", "x", "8000", "Maximum displayed frequency (Hz or note name)")
	dynRange := fs.Float64P("dyn-range", "d", 100, "Color-map dynamic range (dB)")
	logMax := fs.Float64P("log-max", "M", 0, "Magnitude of the brightest pixel (dB)")
	freqAxis := fs.BoolP("freq-axis", "a", false, "Show frequency axes")
	timeAxis := fs.BoolP("time-axis", "A", false, "Show time axis and status")
	fftFreq := fs.Float64P("fft-freq", "f", 10, "FFT frequency resolution (Hz)")
	startStr := fs.StringP("start", "t", "0", "Initial playing time (s, M:S, H:M:S)")
	leftStr := fs.StringP("left", "l", "", "Left bar-line time")
	rightStr := fs.StringP("right", "r", "", "Right bar-line time")
	beats := fs.IntP("beats", "b", 0, "Beats per bar (0 -> default)")
	ppsec := fs.Float64P("ppsec", "P", 25, "Pixel columns per second")
	fps := fs.Float64P("fps", "R", 25, "Scroll rate (frames/s)")
	piano := fs.BoolP("piano", "k", false, "Piano-key overlay")
	score := fs.BoolP("score", "s", false, "Staff overlay")
	guitar := fs.BoolP("guitar", "g", false, "Guitar-string overlay")
	softVol := fs.Float64P("softvol", "v", 1.0, "Volume multiplier")
	windowStr := fs.StringP("window", "W", "kaiser", "Window function (K/D/N/B/H)")
	colorMapStr := fs.StringP("colormap", "m", "heat", "Color map (heat/gray/print)")
	output := fs.StringP("output", "o", "", "Dump one frame to PNG and quit")
	jobs := fs.IntP("jobs", "j", 4, "Worker-thread count")
	configPath := fs.String("config", "", "Configuration file path")
	showVersion := fs.Bool("version", false, "Show version and exit")
	showKeys := fs.Bool("keys", false, "Show keyboard shortcuts and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, nil, 1, true
	}

	if *showVersion {
		fmt.Printf("spettro version %s\n", version)
		return cliOptions{}, nil, 0, true
	}
	if *showKeys {
		printKeys()
		return cliOptions{}, nil, 0, true
	}

	opts := cliOptions{
		autoplay: *autoplay, exitOnEnd: *exitOnEnd,
		width: *width, height: *height, fullscreen: *fullscreen,
		dynRange: *dynRange, logMax: *logMax,
		freqAxis: *freqAxis, timeAxis: *timeAxis, fftFreq: *fftFreq,
		beats: *beats, ppsec: *ppsec, fps: *fps,
		piano: *piano, score: *score, guitar: *guitar, softVol: *softVol,
		output: *output, jobs: *jobs, configPath: *configPath,
	}

	var errs []string
	opts.minFreq, errs = parseFreq(*minFreqStr, "min-freq", errs)
	opts.maxFreq, errs = parseFreq(*maxFreqStr, "max-freq", errs)
	opts.startTime, errs = parseTime(*startStr, "start", errs)
	opts.window, errs = parseWindow(*windowStr, errs)
	opts.colorMap, errs = parseColorMap(*colorMapStr, errs)

	if *leftStr != "" {
		v, e := parseTimeErr(*leftStr)
		if e != nil {
			errs = append(errs, e.Error())
		} else {
			opts.leftBar = &v
		}
	}
	if *rightStr != "" {
		v, e := parseTimeErr(*rightStr)
		if e != nil {
			errs = append(errs, e.Error())
		} else {
			opts.rightBar = &v
		}
	}

	if opts.width <= 0 {
		errs = append(errs, "--width must be > 0")
	}
	if opts.height <= 0 {
		errs = append(errs, "--height must be > 0")
	}
	if opts.maxFreq-opts.minFreq < 1 {
		errs = append(errs, "--max-freq must exceed --min-freq by at least 1 Hz")
	}
	if opts.dynRange < 0 {
		errs = append(errs, "--dyn-range must be >= 0")
	}
	if opts.ppsec <= 0 {
		errs = append(errs, "--ppsec must be > 0")
	}
	if opts.fps < 0 {
		errs = append(errs, "--fps must be >= 0")
	}
	if opts.softVol <= 0 {
		errs = append(errs, "--softvol must be > 0")
	}
	if opts.jobs < 0 {
		errs = append(errs, "--jobs must be >= 0")
	}
	if opts.beats < 0 || opts.beats > 12 {
		errs = append(errs, "--beats must be in [0,12]")
	}
	if opts.beats == 0 {
		opts.beats = 1
	}
	if opts.score && opts.guitar {
		errs = append(errs, "--score and --guitar are mutually exclusive")
	}

	files := fs.Args()
	if len(files) == 0 && len(errs) == 0 {
		errs = append(errs, "at least one audio file is required")
	}

	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "spettro: %s\n", e)
		}
		fs.Usage()
		return cliOptions{}, nil, 1, true
	}

	return opts, files, 0, false
}

func parseFreq(s, flagName string, errs []string) (float64, []string) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v <= 0 {
			return 0, append(errs, fmt.Sprintf("--%s must be positive", flagName))
		}
		return v, errs
	}
	if v, err := notefreq.NoteNameToFreq(s); err == nil {
		return v, errs
	}
	return 0, append(errs, fmt.Sprintf("--%s: invalid frequency or note name %q", flagName, s))
}

func parseTime(s, flagName string, errs []string) (float64, []string) {
	v, err := notefreq.StringToSeconds(s)
	if err != nil {
		return 0, append(errs, fmt.Sprintf("--%s: %v", flagName, err))
	}
	return v, errs
}

func parseTimeErr(s string) (float64, error) {
	return notefreq.StringToSeconds(s)
}

func parseWindow(s string, errs []string) (display.WindowKind, []string) {
	if len(s) == 0 {
		return display.Kaiser, errs
	}
	switch s[0] {
	case 'k', 'K':
		return display.Kaiser, errs
	case 'd', 'D':
		return display.Dolph, errs
	case 'n', 'N':
		return display.Nuttall, errs
	case 'b', 'B':
		return display.Blackman, errs
	case 'h', 'H':
		return display.Hann, errs
	}
	return display.Kaiser, append(errs, fmt.Sprintf("--window: unrecognized window %q", s))
}

func parseColorMap(s string, errs []string) (display.ColorMap, []string) {
	switch s {
	case "heat":
		return display.Heat, errs
	case "gray":
		return display.Gray, errs
	case "print":
		return display.Print, errs
	}
	return display.Heat, append(errs, fmt.Sprintf("--colormap: unrecognized color map %q", s))
}

func printKeys() {
	fmt.Println(`Space        play/pause/restart
arrows       pan time 10% screen (Shift: full screen; Ctrl: 1px; Shift+Ctrl: 1s)
Up/Down      pan frequency 10% (Shift: full; Ctrl: 1px; Shift+Ctrl: 1 semitone)
PgUp/PgDn    pan frequency a screenful
X/x          time zoom in/out x2
Y/y          frequency zoom x2 (Ctrl: 1px per edge)
Ctrl +/-     zoom both axes
m            cycle color map
c/C          contrast +-6dB (Ctrl: +-1dB)
b/B          brightness +-6dB
f/F          halve/double FFT length
Ctrl K/D/N/B/H  set window
w/W          cycle window
a/A          toggle axes
k/s/g        toggle overlays (piano/staff/guitar)
l/r          set bar lines at current playhead
0            clear bar lines
1-9, F1-F12  set beats per bar
+/-          volume
t            print time
o            screenshot
Ctrl P       print params
Ctrl L       redraw from cache
Ctrl R       recompute
Ctrl F       toggle fullscreen
q, Ctrl C, Esc  quit`)
}
