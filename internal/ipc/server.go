package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/1broseidon/evepreview/internal/runtimepath"
)

// DispatchFunc handles one request. The daemon implements it by handing the
// request to its event loop and waiting for the reply.
type DispatchFunc func(req *Request) *Response

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	dispatch     DispatchFunc
	broker       *Broker
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a server on the standard socket path.
func NewServer(dispatch DispatchFunc, broker *Broker) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, dispatch, broker), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, dispatch DispatchFunc, broker *Broker) *Server {
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		dispatch:   dispatch,
		broker:     broker,
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
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
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isShuttingDown() {
				return
			}
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) isShuttingDown() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

// handleConnection reads one request line and answers it. A subscribe
// request keeps the connection open for the event stream.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err)))
		return
	}

	switch req.Command {
	case CommandPing:
		resp, _ := NewOKResponse(nil)
		s.writeResponse(conn, resp)
	case CommandSubscribe:
		s.stream(conn, reader)
	default:
		if s.isShuttingDown() {
			s.writeResponse(conn, NewErrorResponse("daemon is shutting down"))
			return
		}
		s.writeResponse(conn, s.dispatch(req))
	}
}

func (s *Server) stream(conn net.Conn, reader *bufio.Reader) {
	if s.broker == nil {
		s.writeResponse(conn, NewErrorResponse("events are not available"))
		return
	}
	events, unsubscribe := s.broker.Subscribe()
	defer unsubscribe()

	resp, _ := NewOKResponse(nil)
	if !s.writeResponse(conn, resp) {
		return
	}

	// The client never sends anything after subscribing; a read returning
	// means it hung up.
	gone := make(chan struct{})
	go func() {
		io.Copy(io.Discard, reader)
		close(gone)
	}()

	enc := json.NewEncoder(conn)
	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := enc.Encode(ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp *Response) bool {
	data, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return false
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		log.Printf("Failed to send response: %v", err)
		return false
	}
	return true
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	if s.broker != nil {
		s.broker.Close()
	}
	os.Remove(s.socketPath)
}
