package ingest

import (
	"bytes"
	"context"
	"net"

	"go.uber.org/zap"
)

// UDPIngestor reads datagrams; each may hold several newline-separated events.
type UDPIngestor struct {
	addr   string
	target Target
	log    *zap.Logger
	conn   *net.UDPConn
}

func NewUDPIngestor(addr string, target Target, log *zap.Logger) *UDPIngestor {
	if log == nil {
		log = zap.NewNop()
	}
	return &UDPIngestor{
		addr:   addr,
		target: target,
		log:    log.With(zap.String("ingest", "udp")),
	}
}

// Listen binds the address.
func (u *UDPIngestor) Listen() error {
	addr, err := net.ResolveUDPAddr("udp", u.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	u.conn = conn
	u.log.Info("udp ingestor listening", zap.String("addr", conn.LocalAddr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (u *UDPIngestor) Addr() net.Addr {
	if u.conn == nil {
		return nil
	}
	return u.conn.LocalAddr()
}

// Serve reads packets until ctx is done. Blocking call.
func (u *UDPIngestor) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		u.conn.Close()
	}()

	// Max UDP payload; the buffer is reused, Decode copies what it keeps.
	buf := make([]byte, 65535)
	for {
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			u.log.Warn("udp read error", zap.Error(err))
			continue
		}
		for _, line := range bytes.Split(buf[:n], []byte{'\n'}) {
			if ev := Decode(line); ev != nil {
				u.target.Append(ev)
			}
		}
	}
}

// Start is Listen followed by Serve.
func (u *UDPIngestor) Start(ctx context.Context) error {
	if err := u.Listen(); err != nil {
		return err
	}
	return u.Serve(ctx)
}
