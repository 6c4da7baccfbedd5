package main

import (
	"fmt"
	"time"

	clockpkg "github.com/spettro-go/spettro/pkg/clock"
	"github.com/spettro-go/spettro/pkg/config"
	"github.com/spettro-go/spettro/pkg/control"
	"github.com/spettro-go/spettro/pkg/display"
	"github.com/spettro-go/spettro/pkg/dspwin"
	"github.com/spettro-go/spettro/pkg/logging"
	"github.com/spettro-go/spettro/pkg/overlay"
	"github.com/spettro-go/spettro/pkg/painter"
	"github.com/spettro-go/spettro/pkg/playback"
	"github.com/spettro-go/spettro/pkg/resultcache"
	"github.com/spettro-go/spettro/pkg/sampleio"
	"github.com/spettro-go/spettro/pkg/scheduler"
	"github.com/spettro-go/spettro/pkg/screenshot"
	"github.com/spettro-go/spettro/pkg/webui"
)

// App wires every collaborator package into a single running
// instance: the sample source and worker pool feeding the result
// cache, the painter/overlay pipeline writing into the web canvas, the
// player driving playback, the scroll clock keeping disp_time aligned,
// and the controller/web server exposing it all. This is the
// composition root; every package above only knows about the small
// interfaces it depends on.
type App struct {
	cfg     *config.Config
	logger  *logging.Logger
	options cliOptions

	state      *display.State
	source     *sampleio.Source
	cache      *resultcache.Cache
	windows    *dspwin.WindowCache
	sched      *scheduler.Scheduler
	player     playback.Player
	canvas     *webui.Canvas
	pnt        *painter.Painter
	controller *control.Controller
	server     *webui.Server
	clock      *clockpkg.Clock

	playlist []string
	fileIdx  int

	resultsDone chan struct{}
}

// newApp opens the first file in files and wires the full pipeline.
// Subsequent files become the playlist for play_next_file/
// play_previous_file.
func newApp(cfg *config.Config, logger *logging.Logger, opts cliOptions, files []string) (*App, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("spettro: at least one audio file is required")
	}

	a := &App{cfg: cfg, logger: logger, options: opts, playlist: files, resultsDone: make(chan struct{})}

	a.state = &display.State{
		MinFreq: opts.minFreq, MaxFreq: opts.maxFreq, FFTFreq: opts.fftFreq, PPSec: opts.ppsec,
		WindowKind: opts.window, ColorMap: opts.colorMap, DynRange: opts.dynRange, LogMax: opts.logMax,
		ShowFreqAxes: opts.freqAxis, ShowTimeAxes: opts.timeAxis, PianoLines: opts.piano,
		StaffLines: opts.score, GuitarLines: opts.guitar, BeatsPerBar: opts.beats,
		SoftVol: opts.softVol, Fullscreen: opts.fullscreen, Width: opts.width, Height: opts.height,
	}
	if opts.leftBar != nil {
		a.state.SetBarLines(opts.leftBar, opts.rightBar)
	} else if opts.rightBar != nil {
		a.state.SetBarLines(nil, opts.rightBar)
	}

	a.cache = resultcache.NewCache(cfg.Cache.ResultCacheBytes)
	a.windows = dspwin.NewWindowCache()
	a.canvas = webui.NewCanvas(opts.width, opts.height)

	if err := a.openFile(files[0]); err != nil {
		return nil, err
	}

	a.pnt = &painter.Painter{
		Canvas:      a.canvas,
		Cache:       a.cache,
		Scheduler:   a.sched,
		Overlay:     &overlay.Engine{},
		AudioLength: float64(a.source.LengthFrames()) / float64(a.source.SampleRate()),
		SampleRate:  a.source.SampleRate(),
	}

	shotWriter := screenshot.NewWriter(a.canvas)

	a.controller = control.New(a.state, a.cache, a.sched, a.pnt, a.player, shotWriter, a, a, a.source.SampleRate())

	a.server = webui.NewServer(fmt.Sprintf("%s:%d", cfg.Web.BindAddress, cfg.Web.Port), a.canvas, a.controller, a.controller)

	getState := func() display.Snapshot {
		s := a.controller.Snapshot()
		s.Playing = a.player.State()
		return s
	}
	a.clock = clockpkg.New(opts.fps, a.player, a.sched, a.pnt, getState, func(t float64) { a.state.DispTime = t })

	if opts.startTime > 0 {
		_ = a.player.SetPlayingTime(opts.startTime)
		a.state.DispTime = opts.startTime
	}

	return a, nil
}

func (a *App) openFile(path string) error {
	src, err := sampleio.Open(path, a.cfg.Cache.SampleCacheBlocks)
	if err != nil {
		return fmt.Errorf("spettro: open %s: %w", path, err)
	}
	a.source = src
	a.sched = scheduler.New(src, a.windows, a.cfg.Scheduler.MaxThreads)

	p, err := playback.NewPortAudioPlayer(src)
	if err != nil {
		a.logger.Warn("playback", "falling back to silent mock player", map[string]interface{}{"error": err.Error()})
		a.player = playback.NewMockPlayer(src)
	} else {
		a.player = p
	}
	a.player.SetSoftVol(a.state.SoftVol)
	return nil
}

// SwitchTo implements control.FileSwitcher.
func (a *App) SwitchTo(path string) error {
	if a.sched != nil {
		a.sched.Close()
	}
	if a.player != nil {
		_ = a.player.Close()
	}
	if err := a.openFile(path); err != nil {
		return err
	}
	a.pnt.Scheduler = a.sched
	a.pnt.AudioLength = float64(a.source.LengthFrames()) / float64(a.source.SampleRate())
	a.pnt.SampleRate = a.source.SampleRate()
	a.controller.SetSampleRate(a.source.SampleRate())
	for i, p := range a.playlist {
		if p == path {
			a.fileIdx = i
		}
	}
	return nil
}

// Next implements control.Playlist.
func (a *App) Next() (string, bool) {
	if a.fileIdx+1 >= len(a.playlist) {
		return "", false
	}
	return a.playlist[a.fileIdx+1], true
}

// Previous implements control.Playlist.
func (a *App) Previous() (string, bool) {
	if a.fileIdx-1 < 0 {
		return "", false
	}
	return a.playlist[a.fileIdx-1], true
}

// Start brings the whole pipeline up: drains scheduler results into
// the cache and painter, starts the scroll clock, starts the web
// server, and paints the initial frame.
func (a *App) Start() {
	go a.drainResults()
	a.clock.Start()
	a.server.Start()
	a.pnt.RepaintDisplay(true, a.controller.Snapshot())
	if a.options.exitOnEnd {
		go a.watchForPlaybackEnd()
	}
	if a.options.autoplay {
		_ = a.player.Play()
	}
}

// watchForPlaybackEnd implements --exit: poll the player at the scroll
// fps and request a quit the moment playback transitions into Stopped
// having previously been Playing (StopAuto's own effect, not a
// user-initiated stop from the Stopped initial state).
func (a *App) watchForPlaybackEnd() {
	wasPlaying := false
	ticker := newPollTicker(a.options.fps)
	defer ticker.Stop()
	for {
		select {
		case <-a.resultsDone:
			return
		case <-ticker.C:
			state := a.player.State()
			if state == display.Playing {
				wasPlaying = true
			} else if state == display.Stopped && wasPlaying {
				_ = a.controller.Quit()
				return
			}
		}
	}
}

// Stop tears the pipeline down in roughly the reverse order Start
// brought it up.
func (a *App) Stop() {
	a.clock.Stop()
	_ = a.server.Stop()
	if a.sched != nil {
		a.sched.Close()
	}
	if a.player != nil {
		_ = a.player.Close()
	}
	close(a.resultsDone)
}

// drainResults consumes completed columns from the scheduler, inserts
// them into the result cache, and repaints the one column they
// satisfy. Stale results (from before a DropAllWork generation bump)
// are silently dropped by comparing against the scheduler's own live
// generation counter, not one inferred from previously-accepted
// results, so a stale result arriving first after a bump cannot slip
// through.
func (a *App) drainResults() {
	for result := range a.sched.Results() {
		if result.Generation < a.sched.CurrentGeneration() {
			continue
		}
		a.cache.Insert(result.Key, result.Column)

		snap := a.controller.Snapshot()
		x := noteColumnFor(result.Key.ColumnTime, snap)
		if x >= 0 && x < snap.Width {
			a.pnt.RepaintColumn(x, 0, a.canvas.Height()-1, false, snap)
		}
	}
}

func newPollTicker(fps float64) *time.Ticker {
	if fps <= 0 {
		fps = 25
	}
	return time.NewTicker(time.Duration(float64(time.Second) / fps))
}

func noteColumnFor(columnTime float64, snap display.Snapshot) int {
	secpp := snap.SecPP()
	return snap.DispOffset() + int((columnTime-snap.DispTime)/secpp+0.5)
}
