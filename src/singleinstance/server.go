package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"
)

const handshakeTimeout = 3 * time.Second

// Server owns the resident's loopback endpoint.
type Server struct {
	lis      net.Listener
	incoming chan *Conn
	port     int
	once     sync.Once
}

// Listen binds 127.0.0.1:port. When the port is held by a resident that
// answers PING, the error wraps ErrAlreadyRunning. Port 0 picks a free port.
func Listen(ctx context.Context, port int) (*Server, error) {
	addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		if Ping(ctx, port) {
			return nil, fmt.Errorf("%w on port %d", ErrAlreadyRunning, port)
		}
		return nil, fmt.Errorf("singleinstance: failed to bind %s: %w", addr, err)
	}
	s := &Server{
		lis:      lis,
		incoming: make(chan *Conn, 4),
		port:     lis.Addr().(*net.TCPAddr).Port,
	}
	log.Printf("singleinstance: listening on %s", lis.Addr())
	go s.acceptLoop(ctx)
	return s, nil
}

// Port returns the bound port.
func (s *Server) Port() int { return s.port }

// Requests delivers accepted run-once requests. It is closed when the server stops.
func (s *Server) Requests() <-chan *Conn { return s.incoming }

func (s *Server) Close() error {
	var err error
	s.once.Do(func() { err = s.lis.Close() })
	return err
}

func (s *Server) acceptLoop(ctx context.Context) {
	// Handshakes run concurrently so a silent client cannot hold up PING.
	var handshakes sync.WaitGroup
	defer close(s.incoming)
	defer handshakes.Wait()
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		c, err := s.lis.Accept()
		if err != nil {
			return
		}
		handshakes.Add(1)
		go func() {
			defer handshakes.Done()
			conn, ok := s.handshake(c)
			if ok {
				s.enqueue(conn)
			}
		}()
	}
}

func (s *Server) enqueue(conn *Conn) {
	select {
	case s.incoming <- conn:
	default:
		log.Printf("singleinstance: request queue full, refusing %s", conn.c.RemoteAddr())
		_ = conn.Reply(Reply{Status: StatusBusy})
		_ = conn.Close()
	}
}

// handshake answers PING inline and returns run-once requests as a Conn.
func (s *Server) handshake(c net.Conn) (*Conn, bool) {
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(handshakeTimeout))
	br := bufio.NewReader(c)
	line, err := br.ReadString('\n')
	if err != nil {
		_ = c.Close()
		return nil, false
	}
	bw := bufio.NewWriter(c)

	switch line {
	case pingRequest:
		_, _ = bw.WriteString(pongResponse)
		_ = bw.Flush()
		_ = c.Close()
		return nil, false
	case reqClipboard, reqStdout:
		_ = c.SetDeadline(time.Time{})
		req := Request{OutputToStdout: line == reqStdout}
		log.Printf("singleinstance: request from %s stdout=%v", remote, req.OutputToStdout)
		return &Conn{c: c, w: bw, req: req}, true
	default:
		log.Printf("singleinstance: unknown request %q from %s", line, remote)
		_ = c.Close()
		return nil, false
	}
}

// Conn is one delegated run-once request awaiting its reply.
type Conn struct {
	c   net.Conn
	w   *bufio.Writer
	req Request
}

func (c *Conn) Request() Request { return c.req }

// Reply writes the answer. The client reads until the connection closes, so
// call Close afterwards.
func (c *Conn) Reply(r Reply) error {
	if _, err := c.w.WriteString(string(r.Status) + "\n" + r.Payload); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Conn) Close() error { return c.c.Close() }
