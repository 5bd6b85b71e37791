package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/persistwin/persistwin/internal/monitor"
	"github.com/persistwin/persistwin/internal/runtimepath"
	"github.com/persistwin/persistwin/internal/store"
	"github.com/persistwin/persistwin/internal/topology"
)

// requestTimeout bounds how long a single IPC command may occupy the
// monitor's loop goroutine.
const requestTimeout = 10 * time.Second

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	mon          *monitor.Monitor
	layouts      *store.Store
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(mon *monitor.Monitor, layouts *store.Store, reloadChan chan struct{}) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		mon:        mon,
		layouts:    layouts,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetTopology:
		return s.handleGetTopology()
	case CommandSnapshotNow:
		return s.handleSnapshotNow()
	case CommandRestoreNow:
		return s.handleRestoreNow()
	case CommandListLayouts:
		return s.handleListLayouts()
	case CommandPruneLayout:
		return s.handlePruneLayout(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleReload asks the daemon to reload its configuration
func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	state, fp := s.mon.Status()

	status := StatusData{
		State:         state.String(),
		Fingerprint:   string(fp),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

// handleGetTopology returns the live monitor set and its fingerprint
func (s *Server) handleGetTopology() *Response {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	snap, err := s.mon.CurrentTopology(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to query topology: %v", err))
	}

	infos := make([]MonitorInfo, len(snap.Monitors))
	for i, m := range snap.Monitors {
		infos[i] = MonitorInfo{
			Name:    m.Name,
			X:       m.Rect.Left,
			Y:       m.Rect.Top,
			Width:   m.Rect.Width(),
			Height:  m.Rect.Height(),
			Scale:   m.Scale,
			Primary: m.Primary,
		}
	}

	data := TopologyData{
		Fingerprint: string(snap.Fingerprint),
		Monitors:    infos,
	}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleSnapshotNow() *Response {
	log.Println("IPC: Received SNAPSHOT_NOW command")

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := s.mon.SnapshotNow(ctx); err != nil {
		return NewErrorResponse(fmt.Sprintf("Snapshot failed: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleRestoreNow() *Response {
	log.Println("IPC: Received RESTORE_NOW command")

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := s.mon.RestoreNow(ctx); err != nil {
		return NewErrorResponse(fmt.Sprintf("Restore failed: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleListLayouts() *Response {
	infos, err := s.layouts.ListLayouts()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to list layouts: %v", err))
	}

	summaries := make([]LayoutSummary, len(infos))
	for i, info := range infos {
		summaries[i] = LayoutSummary{
			Fingerprint: info.Fingerprint,
			Description: info.Description,
			WindowCount: info.WindowCount,
			UpdatedAt:   info.UpdatedAt,
		}
	}

	resp, _ := NewOKResponse(LayoutsData{Layouts: summaries})
	return resp
}

func (s *Server) handlePruneLayout(payload json.RawMessage) *Response {
	var req PruneLayoutPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid prune payload: %v", err))
	}
	if req.Fingerprint == "" {
		return NewErrorResponse("fingerprint is required")
	}

	pruned, err := s.layouts.PruneLayout(topology.Fingerprint(req.Fingerprint))
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to prune layout: %v", err))
	}

	resp, _ := NewOKResponse(PruneLayoutData{Pruned: pruned})
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
