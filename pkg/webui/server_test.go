package webui

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spettro-go/spettro/pkg/control"
	"github.com/spettro-go/spettro/pkg/display"
	"github.com/spettro-go/spettro/pkg/painter"
)

func newTestController() *control.Controller {
	state := &display.State{
		DispTime: 0, MinFreq: 100, MaxFreq: 10000, FFTFreq: 20, PPSec: 25,
		WindowKind: display.Hann, ColorMap: display.Heat, DynRange: 60,
		BeatsPerBar: 1, SoftVol: 1, Width: 100, Height: 50,
	}
	return control.New(state, nil, noopScheduler{}, noopRepainter{}, nil, nil, nil, nil, 44100)
}

type noopScheduler struct{}

func (noopScheduler) DropAllWork()             {}
func (noopScheduler) Reprioritize(int) {}

type noopRepainter struct{}

func (noopRepainter) RepaintDisplay(bool, display.Snapshot) {}

func TestHandleGetStateReturnsSnapshot(t *testing.T) {
	controller := newTestController()
	canvas := NewCanvas(100, 50)
	s := NewServer("127.0.0.1:0", canvas, controller, controller)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var snap display.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 100.0, snap.MinFreq)
}

func TestHandlePostCommandAppliesAndReportsSuccess(t *testing.T) {
	controller := newTestController()
	canvas := NewCanvas(100, 50)
	s := NewServer("127.0.0.1:0", canvas, controller, controller)

	body, _ := json.Marshal(control.Command{Type: "change_dyn_range", Args: map[string]interface{}{"db": 6.0}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/command", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp control.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 66.0, controller.Snapshot().DynRange)
}

func TestHandlePostCommandReportsUnknownType(t *testing.T) {
	controller := newTestController()
	canvas := NewCanvas(100, 50)
	s := NewServer("127.0.0.1:0", canvas, controller, controller)

	body, _ := json.Marshal(control.Command{Type: "bogus"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/command", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp control.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestCanvasSetPixelAndMarkDirtyInvokesCallback(t *testing.T) {
	canvas := NewCanvas(4, 4)
	var gotRect [4]int
	canvas.OnDirty(func(x0, y0, x1, y1 int) { gotRect = [4]int{x0, y0, x1, y1} })

	canvas.SetPixel(1, 2, painter.Color{R: 9, G: 8, B: 7})
	canvas.MarkDirty(0, 0, 3, 3)

	assert.Equal(t, [4]int{0, 0, 3, 3}, gotRect)
	assert.Equal(t, painter.Color{R: 9, G: 8, B: 7}, canvas.At(1, 2))
}

func TestCanvasRectRGBPadsOutOfBoundsWithBlack(t *testing.T) {
	canvas := NewCanvas(1, 1)
	canvas.SetPixel(0, 0, painter.Color{R: 1, G: 2, B: 3})

	rgb := canvas.rectRGB(0, 0, 1, 0)
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0}, rgb)
}
