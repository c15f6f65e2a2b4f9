package rpcserver

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Server wraps an MCP server exposing the routing tools over stdio, with
// graceful shutdown on stdin EOF or context cancellation.
type Server struct {
	srv    *mcpserver.MCPServer
	logger *slog.Logger

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	once      sync.Once
	ctxCancel context.CancelFunc
	ctxOnce   sync.Once
}

// NewServer builds a Server around svc.
func NewServer(svc *Service) *Server {
	if svc.Logger == nil {
		svc.Logger = slog.Default()
	}
	svc.Logger.Info("initializing ridecore MCP server", "name", ServerName, "version", ServerVersion)

	return &Server{
		srv:    NewMCPServer(svc),
		logger: svc.Logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Run serves the tools over stdin/stdout until stdin closes or Shutdown is
// called. It blocks until the server has fully stopped.
func (s *Server) Run() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer close(s.doneCh)
		err := mcpserver.ServeStdio(s.srv)
		if err != nil && err != io.EOF {
			s.logger.Error("mcp server error", "error", err)
		} else {
			s.logger.Info("stdin closed, shutting down server")
		}
		s.Shutdown()
	}()

	<-s.stopCh
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	<-s.doneCh
	return nil
}

// RunWithContext runs the server and additionally shuts it down when ctx is
// canceled, with a fallback that watches the parent process for stdio
// sessions where EOF detection on stdin is unreliable.
func (s *Server) RunWithContext(ctx context.Context) error {
	s.ctxOnce.Do(func() {
		derived, cancel := context.WithCancel(ctx)
		s.ctxCancel = cancel
		go func() {
			select {
			case <-derived.Done():
				s.Shutdown()
			case <-s.stopCh:
			}
		}()
		go s.monitorParentProcess()
	})
	return s.Run()
}

// Shutdown requests a graceful stop without blocking.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.once.Do(func() { close(s.stopCh) })
	if s.ctxCancel != nil {
		s.ctxCancel()
	}
}

// WaitForShutdown blocks until the server has fully stopped.
func (s *Server) WaitForShutdown() { <-s.doneCh }

// GetMCPServer returns the underlying MCP server, for attaching an
// HTTP+SSE transport alongside stdio.
func (s *Server) GetMCPServer() *mcpserver.MCPServer { return s.srv }

func (s *Server) monitorParentProcess() {
	ppid := os.Getppid()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !isProcessRunning(ppid) {
				s.logger.Info("parent process exited, shutting down", "ppid", ppid)
				s.Shutdown()
				return
			}
		}
	}
}

func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
