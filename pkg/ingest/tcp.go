package ingest

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"

	"go.uber.org/zap"
)

// MaxLineSize bounds a single ingested line.
const MaxLineSize = 1 << 20

// TCPIngestor listens for TCP connections and appends one event per line.
type TCPIngestor struct {
	addr     string
	target   Target
	log      *zap.Logger
	listener net.Listener
}

func NewTCPIngestor(addr string, target Target, log *zap.Logger) *TCPIngestor {
	if log == nil {
		log = zap.NewNop()
	}
	return &TCPIngestor{
		addr:   addr,
		target: target,
		log:    log.With(zap.String("ingest", "tcp")),
	}
}

// Listen binds the address.
func (t *TCPIngestor) Listen() error {
	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return err
	}
	t.listener = listener
	t.log.Info("tcp ingestor listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (t *TCPIngestor) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Serve accepts connections until ctx is done. Blocking call.
func (t *TCPIngestor) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		t.listener.Close()
	}()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			t.log.Warn("error accepting connection", zap.Error(err))
			continue
		}
		go t.handleConnection(ctx, conn)
	}
}

// Start is Listen followed by Serve.
func (t *TCPIngestor) Start(ctx context.Context) error {
	if err := t.Listen(); err != nil {
		return err
	}
	return t.Serve(ctx)
}

func (t *TCPIngestor) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	for scanner.Scan() {
		if ev := Decode(scanner.Bytes()); ev != nil {
			t.target.Append(ev)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
		t.log.Debug("read error", zap.Error(err))
	}
}
