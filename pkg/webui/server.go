// Package webui is the windowing collaborator: it owns the concrete
// pixel canvas the painter writes into, serves display state and the
// semantic command endpoint over HTTP, and pushes dirty pixel rects to
// connected browsers over a websocket. The actual keyboard/mouse
// dispatcher that turns browser input into pkg/control commands is an
// external collaborator (spec.md §1/§6); this package exposes the thin
// interface it talks to and nothing more.
package webui

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/spettro-go/spettro/pkg/control"
	"github.com/spettro-go/spettro/pkg/display"
)

// StateReader reads the current display snapshot for the state
// endpoint and for newly-connecting websocket clients. pkg/control's
// Controller satisfies this directly.
type StateReader interface {
	Snapshot() display.Snapshot
}

// dirtyRect is the wire shape pushed to connected browsers: a pixel
// rect plus its row-major RGB bytes.
type dirtyRect struct {
	X0  int    `json:"x0"`
	Y0  int    `json:"y0"`
	X1  int    `json:"x1"`
	Y1  int    `json:"y1"`
	RGB []byte `json:"rgb"`
}

// Server is the HTTP+websocket front end, grounded on the teacher
// daemon's gin router plus graceful http.Server shutdown.
type Server struct {
	canvas     *Canvas
	controller *control.Controller
	state      StateReader

	router     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan dirtyRect
	wg      sync.WaitGroup
}

// NewServer wires a gin router over canvas/controller/state and
// registers the dirty-rect broadcast callback on canvas.
func NewServer(addr string, canvas *Canvas, controller *control.Controller, state StateReader) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	s := &Server{
		canvas:     canvas,
		controller: controller,
		state:      state,
		router:     router,
		upgrader:   websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024 * 64},
		clients:    make(map[*websocket.Conn]chan dirtyRect),
	}

	canvas.OnDirty(s.broadcastDirty)

	router.GET("/api/v1/state", s.handleGetState)
	router.POST("/api/v1/command", s.handlePostCommand)
	router.GET("/ws/canvas", s.handleCanvasWebSocket)

	s.httpServer = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start begins serving in a background goroutine, mirroring the
// teacher daemon's ListenAndServe/wg pattern.
func (s *Server) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("webui: server error: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down and closes every websocket
// client, waiting for the serve goroutine to exit.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.Lock()
	for conn, ch := range s.clients {
		close(ch)
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]chan dirtyRect)
	s.mu.Unlock()

	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	return err
}

func (s *Server) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.Snapshot())
}

func (s *Server) handlePostCommand(c *gin.Context) {
	var cmd control.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, control.Response{Error: err.Error()})
		return
	}
	resp := s.controller.Dispatch(cmd)
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadRequest
	}
	c.JSON(status, resp)
}

func (s *Server) handleCanvasWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("webui: websocket upgrade failed: %v", err)
		return
	}

	ch := make(chan dirtyRect, 64)
	s.mu.Lock()
	s.clients[conn] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for rect := range ch {
		if err := conn.WriteJSON(rect); err != nil {
			return
		}
	}
}

// broadcastDirty is the Canvas.OnDirty callback: it snapshots the
// dirty rect's pixels once and fans it out to every connected client
// over a non-blocking send, dropping the frame for a client whose
// outbound queue is full rather than stalling the painter.
func (s *Server) broadcastDirty(x0, y0, x1, y1 int) {
	rect := dirtyRect{X0: x0, Y0: y0, X1: x1, Y1: y1, RGB: s.canvas.rectRGB(x0, y0, x1, y1)}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, ch := range s.clients {
		select {
		case ch <- rect:
		default:
			log.Printf("webui: dropping dirty rect for slow client %s", conn.RemoteAddr())
		}
	}
}

// Addr returns the bound address, e.g. for logging at startup.
func (s *Server) Addr() string { return s.httpServer.Addr }
