// Package control is the semantic UI command dispatcher: it owns the
// single display.State record and turns high-level commands into state
// mutations, cache invalidations, scheduler calls, and repaints.
package control

import (
	"fmt"
	"math"

	"github.com/spettro-go/spettro/pkg/display"
	"github.com/spettro-go/spettro/pkg/dspwin"
	"github.com/spettro-go/spettro/pkg/playback"
	"github.com/spettro-go/spettro/pkg/resultcache"
)

// Scheduler is the subset of pkg/scheduler.Scheduler the controller
// needs: dropping stale pending work and reprioritizing it.
type Scheduler interface {
	DropAllWork()
	Reprioritize(centerCol int)
}

// Repainter is the subset of pkg/painter.Painter the controller uses
// to request a full redraw after a command.
type Repainter interface {
	RepaintDisplay(fromScratch bool, snap display.Snapshot)
}

// Screenshotter writes the current canvas to path.
type Screenshotter interface {
	Save(path string, snap display.Snapshot) error
}

// Playlist resolves the next/previous file path relative to the one
// currently open. ok is false at either end of the list.
type Playlist interface {
	Next() (path string, ok bool)
	Previous() (path string, ok bool)
}

// FileSwitcher closes the current audio file and opens path in its
// place, re-pointing the sample source, player, and painter's audio
// length/sample rate at the new file.
type FileSwitcher interface {
	SwitchTo(path string) error
}

// Command mirrors the teacher's text-protocol Command/Response shape,
// letting external collaborators (pkg/webui, a future CLI) dispatch by
// name instead of importing every typed method.
type Command struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Response mirrors the teacher's protocol.Response shape.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Controller owns the display.State and is the only goroutine allowed
// to mutate it; every other package reads it only via Snapshot.
type Controller struct {
	state      *display.State
	cache      *resultcache.Cache
	scheduler  Scheduler
	repainter  Repainter
	player     playback.Player
	shot       Screenshotter
	playlist   Playlist
	switcher   FileSwitcher
	quitCh     chan struct{}
	quitClosed bool
	sampleRate int
}

// New creates a Controller. shot, playlist, and switcher may be nil if
// their commands (screenshot, play_next_file, play_previous_file)
// will never be issued. sampleRate is the open file's sample rate,
// needed by SetFFTFreq; call SetSampleRate after a file switch.
func New(state *display.State, cache *resultcache.Cache, scheduler Scheduler, repainter Repainter, player playback.Player, shot Screenshotter, playlist Playlist, switcher FileSwitcher, sampleRate int) *Controller {
	return &Controller{
		state:      state,
		cache:      cache,
		scheduler:  scheduler,
		repainter:  repainter,
		player:     player,
		shot:       shot,
		playlist:   playlist,
		switcher:   switcher,
		quitCh:     make(chan struct{}),
		sampleRate: sampleRate,
	}
}

// SetSampleRate updates the sample rate SetFFTFreq clamps and derives
// speclen against, after a file switch changes it.
func (c *Controller) SetSampleRate(sampleRate int) { c.sampleRate = sampleRate }

// QuitRequested reports whether Quit has been called.
func (c *Controller) QuitRequested() <-chan struct{} { return c.quitCh }

// Snapshot returns the current display state, for collaborators (e.g.
// pkg/webui) that need to read it without mutating it.
func (c *Controller) Snapshot() display.Snapshot { return c.state.Snapshot() }

func (c *Controller) repaint() {
	if c.repainter != nil {
		c.repainter.RepaintDisplay(false, c.state.Snapshot())
	}
}

func (c *Controller) centerCol() int {
	snap := c.state.Snapshot()
	return int(math.Round(snap.DispTime / snap.SecPP()))
}

// TimePanBy shifts disp_time by dt seconds, clamped to non-negative.
// Pixel columns are reused from the cache as-is, so this invalidates
// nothing; it only reprioritizes and repaints.
func (c *Controller) TimePanBy(dt float64) error {
	c.state.DispTime += dt
	if c.state.DispTime < 0 {
		c.state.DispTime = 0
	}
	if c.scheduler != nil {
		c.scheduler.Reprioritize(c.centerCol())
	}
	c.repaint()
	return nil
}

// FreqPanBy multiplies both ends of the frequency range by ratio,
// shifting the logarithmic frequency window without changing its span.
// Render-only: no result key depends on the frequency range.
func (c *Controller) FreqPanBy(ratio float64) error {
	if ratio <= 0 {
		return fmt.Errorf("control: freq_pan_by ratio must be positive, got %v", ratio)
	}
	c.state.MinFreq *= ratio
	c.state.MaxFreq *= ratio
	if c.state.MinFreq < 1 {
		c.state.MinFreq = 1
	}
	c.repaint()
	return nil
}

// TimeZoomBy multiplies ppsec by f (f > 1 zooms in, 0 < f < 1 zooms
// out). Changing secpp changes which result keys future columns hit,
// but never invalidates existing cached columns (spec.md §4.8's 50%
// reuse note); pending work queued at the old rate no longer matches
// the new column grid, so it is dropped.
func (c *Controller) TimeZoomBy(f float64) error {
	if f <= 0 {
		return fmt.Errorf("control: time_zoom_by factor must be positive, got %v", f)
	}
	c.state.PPSec *= f
	if c.state.PPSec < 1 {
		c.state.PPSec = 1
	}
	if c.scheduler != nil {
		c.scheduler.DropAllWork()
	}
	c.repaint()
	return nil
}

// FreqZoomBy scales the frequency range's span by f around its
// logarithmic midpoint. Render-only.
func (c *Controller) FreqZoomBy(f float64) error {
	if f <= 0 {
		return fmt.Errorf("control: freq_zoom_by factor must be positive, got %v", f)
	}
	logMin := math.Log(c.state.MinFreq)
	logMax := math.Log(c.state.MaxFreq)
	mid := (logMin + logMax) / 2
	halfSpan := (logMax - logMin) / 2 * f
	c.state.MinFreq = math.Exp(mid - halfSpan)
	c.state.MaxFreq = math.Exp(mid + halfSpan)
	if c.state.MinFreq < 1 {
		c.state.MinFreq = 1
	}
	if c.state.MaxFreq-c.state.MinFreq < 1 {
		c.state.MaxFreq = c.state.MinFreq + 1
	}
	c.repaint()
	return nil
}

// ChangeDynRange adds db to the displayed dynamic range, floored at 1.
// Render-only.
func (c *Controller) ChangeDynRange(db float64) error {
	c.state.DynRange += db
	if c.state.DynRange < 1 {
		c.state.DynRange = 1
	}
	c.repaint()
	return nil
}

// ChangeLogMax adds db to the displayed 0 dB reference. Render-only.
func (c *Controller) ChangeLogMax(db float64) error {
	c.state.LogMax += db
	c.repaint()
	return nil
}

// SetWindow changes the active window function. This alters the
// result key, so every cached column computed under the old window is
// dropped and any pending work is abandoned.
func (c *Controller) SetWindow(kind display.WindowKind) error {
	c.state.WindowKind = kind
	c.invalidateWindow(kind)
	return nil
}

// CycleWindow steps the active window function by dir (±1), wrapping.
func (c *Controller) CycleWindow(dir int) error {
	c.state.WindowKind = c.state.WindowKind.CycleWindow(dir)
	c.invalidateWindow(c.state.WindowKind)
	return nil
}

func (c *Controller) invalidateWindow(kind display.WindowKind) {
	if c.cache != nil {
		c.cache.InvalidateByPredicate(func(k resultcache.Key) bool { return k.Window != kind })
	}
	if c.scheduler != nil {
		c.scheduler.DropAllWork()
	}
	c.repaint()
}

// SetFFTFreq changes the target frequency resolution, which changes
// the derived speclen and therefore the result key. sampleRate is the
// open file's sample rate, needed to clamp against the spec's minimum
// (sample_rate/65536) and to compute the new speclen for invalidation.
func (c *Controller) SetFFTFreq(hz float64, sampleRate int) error {
	minHz := dspwin.MinFFTFreq(sampleRate)
	if hz < minHz {
		hz = minHz
	}
	c.state.FFTFreq = hz
	newSpeclen := dspwin.ComputeSpeclen(sampleRate, hz)
	if c.cache != nil {
		c.cache.InvalidateByPredicate(func(k resultcache.Key) bool { return k.Speclen != newSpeclen })
	}
	if c.scheduler != nil {
		c.scheduler.DropAllWork()
	}
	c.repaint()
	return nil
}

// SetColorMap changes the active color map. Render-only.
func (c *Controller) SetColorMap(m display.ColorMap) error {
	c.state.ColorMap = m
	c.repaint()
	return nil
}

// ToggleFreqAxes flips the frequency-axis label visibility.
func (c *Controller) ToggleFreqAxes() error { c.state.ShowFreqAxes = !c.state.ShowFreqAxes; c.repaint(); return nil }

// ToggleTimeAxes flips the time-axis label visibility.
func (c *Controller) ToggleTimeAxes() error { c.state.ShowTimeAxes = !c.state.ShowTimeAxes; c.repaint(); return nil }

// TogglePianoLines flips the piano-key row overlay.
func (c *Controller) TogglePianoLines() error { c.state.PianoLines = !c.state.PianoLines; c.repaint(); return nil }

// ToggleStaffLines flips the staff row overlay.
func (c *Controller) ToggleStaffLines() error { c.state.StaffLines = !c.state.StaffLines; c.repaint(); return nil }

// ToggleGuitarLines flips the guitar-string row overlay.
func (c *Controller) ToggleGuitarLines() error { c.state.GuitarLines = !c.state.GuitarLines; c.repaint(); return nil }

// SetLeftBar sets the left bar-line time; overlay-only.
func (c *Controller) SetLeftBar(t float64) error {
	c.state.SetBarLines(&t, c.state.RightBarTime)
	c.repaint()
	return nil
}

// SetRightBar sets the right bar-line time; overlay-only.
func (c *Controller) SetRightBar(t float64) error {
	c.state.SetBarLines(c.state.LeftBarTime, &t)
	c.repaint()
	return nil
}

// ClearBars clears both bar-line markers.
func (c *Controller) ClearBars() error {
	c.state.ClearBars()
	c.repaint()
	return nil
}

// SetBeatsPerBar sets the bar subdivision count, clamped to [1,12].
func (c *Controller) SetBeatsPerBar(n int) error {
	if n < 1 {
		n = 1
	}
	if n > 12 {
		n = 12
	}
	c.state.BeatsPerBar = n
	c.repaint()
	return nil
}

// Screenshot writes the current canvas to path via the configured
// Screenshotter.
func (c *Controller) Screenshot(path string) error {
	if c.shot == nil {
		return fmt.Errorf("control: no screenshot collaborator configured")
	}
	return c.shot.Save(path, c.state.Snapshot())
}

// Quit signals shutdown exactly once; later calls are no-ops.
func (c *Controller) Quit() error {
	if !c.quitClosed {
		c.quitClosed = true
		close(c.quitCh)
	}
	return nil
}

// PlayNextFile advances to the next file in the playlist, invalidating
// the entire result cache and dropping pending work since every result
// key depends on the now-replaced audio file.
func (c *Controller) PlayNextFile() error {
	return c.switchFile(c.playlist.Next)
}

// PlayPreviousFile moves to the previous file in the playlist.
func (c *Controller) PlayPreviousFile() error {
	return c.switchFile(c.playlist.Previous)
}

func (c *Controller) switchFile(pick func() (string, bool)) error {
	if c.playlist == nil || c.switcher == nil {
		return fmt.Errorf("control: no playlist collaborator configured")
	}
	path, ok := pick()
	if !ok {
		return fmt.Errorf("control: no adjacent file in playlist")
	}
	if err := c.switcher.SwitchTo(path); err != nil {
		return err
	}
	c.state.DispTime = 0
	if c.cache != nil {
		c.cache.DropAll()
	}
	if c.scheduler != nil {
		c.scheduler.DropAllWork()
	}
	c.repaint()
	return nil
}

// Dispatch routes a Command to its typed method by name, matching the
// teacher's text-protocol command names lower-cased (e.g.
// "time_pan_by"). Unknown types and argument-shape errors are reported
// in the Response rather than returned as a Go error, mirroring the
// teacher's inline-validation protocol.
func (c *Controller) Dispatch(cmd Command) Response {
	var err error
	switch cmd.Type {
	case "time_pan_by":
		err = c.TimePanBy(floatArg(cmd.Args, "dt"))
	case "freq_pan_by":
		err = c.FreqPanBy(floatArg(cmd.Args, "ratio"))
	case "time_zoom_by":
		err = c.TimeZoomBy(floatArg(cmd.Args, "f"))
	case "freq_zoom_by":
		err = c.FreqZoomBy(floatArg(cmd.Args, "f"))
	case "change_dyn_range":
		err = c.ChangeDynRange(floatArg(cmd.Args, "db"))
	case "change_log_max":
		err = c.ChangeLogMax(floatArg(cmd.Args, "db"))
	case "cycle_window":
		err = c.CycleWindow(int(floatArg(cmd.Args, "direction")))
	case "set_window":
		err = c.SetWindow(display.WindowKind(int(floatArg(cmd.Args, "kind"))))
	case "set_fft_freq":
		err = c.SetFFTFreq(floatArg(cmd.Args, "hz"), c.sampleRate)
	case "set_color_map":
		err = c.SetColorMap(display.ColorMap(int(floatArg(cmd.Args, "map"))))
	case "toggle_freq_axes":
		err = c.ToggleFreqAxes()
	case "toggle_time_axes":
		err = c.ToggleTimeAxes()
	case "toggle_piano_lines":
		err = c.TogglePianoLines()
	case "toggle_staff_lines":
		err = c.ToggleStaffLines()
	case "toggle_guitar_lines":
		err = c.ToggleGuitarLines()
	case "set_left_bar":
		err = c.SetLeftBar(floatArg(cmd.Args, "t"))
	case "set_right_bar":
		err = c.SetRightBar(floatArg(cmd.Args, "t"))
	case "clear_bars":
		err = c.ClearBars()
	case "set_beats_per_bar":
		err = c.SetBeatsPerBar(int(floatArg(cmd.Args, "n")))
	case "screenshot":
		err = c.Screenshot(stringArg(cmd.Args, "path"))
	case "quit":
		err = c.Quit()
	case "play_next_file":
		err = c.PlayNextFile()
	case "play_previous_file":
		err = c.PlayPreviousFile()
	default:
		return Response{Success: false, Error: fmt.Sprintf("control: unknown command %q", cmd.Type)}
	}
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: true}
}

func floatArg(args map[string]interface{}, key string) float64 {
	if v, ok := args[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
