package fallback

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/noxbotics/go-nox/internal/log"
	"github.com/noxbotics/go-nox/pkg/command"
)

const (
	lineLimit   = 64 * 1024
	idleTimeout = 5 * time.Minute
)

// lineResponse is the simplified transport's reply, one JSON object
// per line.
type lineResponse struct {
	OK    bool   `json:"ok"`
	Mode  string `json:"mode,omitempty"`
	Error string `json:"error,omitempty"`
}

// Serve runs the simplified TCP transport until ctx is cancelled.
// Clients send one primitive command per line in the shared wire shape
// and get one JSON reply per line. Combos and perception queries are
// not part of this transport.
func (c *Controller) Serve(ctx context.Context) error {
	if c.cfg.ListenAddr == "" {
		return nil
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", c.cfg.ListenAddr)
	if err != nil {
		return err
	}
	log.Info("fallback transport listening", "addr", c.cfg.ListenAddr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go c.serveConn(ctx, conn)
	}
}

func (c *Controller) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	log.Debug("fallback client connected", "remote", remote)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), lineLimit)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		conn.SetDeadline(time.Now().Add(idleTimeout))

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cmd, err := command.Parse(line)
		if err != nil {
			enc.Encode(lineResponse{OK: false, Mode: c.Mode(), Error: err.Error()})
			continue
		}
		if _, err := c.exec.Execute(ctx, cmd); err != nil {
			enc.Encode(lineResponse{OK: false, Mode: c.Mode(), Error: err.Error()})
			continue
		}
		enc.Encode(lineResponse{OK: true, Mode: c.Mode()})
	}
	log.Debug("fallback client disconnected", "remote", remote)
}
