package statsd

import (
	"bytes"
	"context"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// udpMaxPacketSize bounds a single UDP read, matching the practical ceiling
// telegraf's own statsd input uses for its recv buffer.
const udpMaxPacketSize = 64 * 1024

// ServerConfig configures the UDP listener and its worker pool.
type ServerConfig struct {
	Address                string
	NumberWorkerThreads    int
	AllowedPendingMessages int
	ReadBufferSize         int
}

// Server owns the UDP socket and a small worker pool that calls
// Aggregator.Handle once per complete datagram payload.
type Server struct {
	cfg  ServerConfig
	agg  *Aggregator
	log  logrus.FieldLogger
	in   chan []byte
	pool sync.Pool

	recvCounter func()
	dropCounter func()
}

// NewServer builds a Server. recvCounter/dropCounter, if non-nil, are
// invoked once per accepted/dropped datagram for self-stat reporting; pass
// nil to disable.
func NewServer(cfg ServerConfig, agg *Aggregator, log logrus.FieldLogger, recvCounter, dropCounter func()) *Server {
	if recvCounter == nil {
		recvCounter = func() {}
	}
	if dropCounter == nil {
		dropCounter = func() {}
	}
	return &Server{
		cfg:         cfg,
		agg:         agg,
		log:         log,
		in:          make(chan []byte, cfg.AllowedPendingMessages),
		pool:        sync.Pool{New: func() interface{} { return make([]byte, udpMaxPacketSize) }},
		recvCounter: recvCounter,
		dropCounter: dropCounter,
	}
}

// Run resolves and listens on cfg.Address, then blocks reading datagrams
// and dispatching them to NumberWorkerThreads parser goroutines, until ctx
// is canceled.
func (s *Server) Run(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", s.cfg.Address)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if s.cfg.ReadBufferSize > 0 {
		if err := conn.SetReadBuffer(s.cfg.ReadBufferSize); err != nil {
			s.log.WithError(err).Warn("statsd: setting UDP read buffer size")
		}
	}
	s.log.WithField("address", conn.LocalAddr().String()).Info("statsd: UDP listener started")

	var wg sync.WaitGroup
	workers := s.cfg.NumberWorkerThreads
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		workerID := uuid.NewString()
		go func() {
			defer wg.Done()
			s.work(ctx, workerID)
		}()
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	s.readLoop(ctx, conn)
	close(s.in)
	wg.Wait()
	return nil
}

func (s *Server) readLoop(ctx context.Context, conn *net.UDPConn) {
	for {
		buf := s.pool.Get().([]byte)
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			s.pool.Put(buf) //nolint:staticcheck // buf still usable, just unread
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Error("statsd: reading UDP datagram")
			continue
		}
		s.recvCounter()

		payload := make([]byte, n)
		copy(payload, buf[:n])
		s.pool.Put(buf)

		select {
		case s.in <- payload:
		default:
			s.dropCounter()
			s.log.Warn("statsd: pending message queue full, dropping datagram")
		}
	}
}

func (s *Server) work(ctx context.Context, workerID string) {
	log := s.log.WithField("worker", workerID)
	defer log.Debug("statsd: worker exiting")
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-s.in:
			if !ok {
				return
			}
			if len(bytes.TrimSpace(data)) == 0 {
				continue
			}
			s.agg.Handle(data)
		}
	}
}
