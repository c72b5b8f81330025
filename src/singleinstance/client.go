package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

const pingTimeout = 300 * time.Millisecond

// Ping reports whether a resident answers on port.
func Ping(ctx context.Context, port int) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	conn, err := dial(ctx, port)
	if err != nil {
		return false
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	if _, err := io.WriteString(conn, pingRequest); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}

// Delegate hands a run-once request to the resident on port and waits for
// its reply. delegated is false, with a nil error, when no resident answers.
func Delegate(ctx context.Context, port int, req Request) (delegated bool, reply Reply, err error) {
	if !Ping(ctx, port) {
		return false, Reply{}, nil
	}
	conn, err := dial(ctx, port)
	if err != nil {
		return false, Reply{}, nil
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	line := reqClipboard
	if req.OutputToStdout {
		line = reqStdout
	}
	if _, err := io.WriteString(conn, line); err != nil {
		return true, Reply{}, fmt.Errorf("send request: %w", err)
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return true, Reply{}, contextErr(ctx, fmt.Errorf("read reply: %w", err))
	}
	reply.Status = Status(strings.TrimSuffix(status, "\n"))
	if !reply.Status.valid() {
		return true, Reply{}, fmt.Errorf("unexpected reply %q", status)
	}
	payload, err := io.ReadAll(br)
	if err != nil {
		return true, Reply{}, contextErr(ctx, fmt.Errorf("read reply: %w", err))
	}
	reply.Payload = string(payload)
	return true, reply, nil
}

func dial(ctx context.Context, port int) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", net.JoinHostPort(residentHost, strconv.Itoa(port)))
}

func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}
