package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/flowgraph-go/driver"
	"github.com/dshills/flowgraph-go/graph"
	"github.com/dshills/flowgraph-go/graph/emit"
	"github.com/dshills/flowgraph-go/packet"
)

const (
	defaultDBBatchSize      = 100
	defaultDBFlushInterval  = 5 * time.Second
	defaultWSReconnectDelay = 5 * time.Second
	defaultWSBufferCap      = 1000
)

// SinkConfig binds a sink node's kind to the collaborator it writes
// through.
type SinkConfig struct {
	Kind   graph.SinkKind
	Method string
	Fn     graph.SinkFunc

	LogEmitter emit.Emitter
	HTTPDriver driver.SinkDriver
	WSDriver   driver.WebsocketDriver
	DBDriver   driver.BatchSinkDriver

	BatchSize     int
	FlushInterval time.Duration
}

// newSinkProcess builds the ProcessFunc for a sink node. Sinks are
// terminal (they do not transform the payload) but still return the
// packet so it passes through to subscribers for chaining.
func newSinkProcess(id string, cfg SinkConfig) (ProcessFunc, func()) {
	switch cfg.Kind {
	case graph.SinkLog:
		return newLogSinkProcess(id, cfg.LogEmitter), nil
	case graph.SinkHTTP:
		return newHTTPSinkProcess(id, cfg.HTTPDriver), nil
	case graph.SinkDatabase:
		return newDatabaseSinkProcess(id, cfg)
	case graph.SinkWebsocket:
		return newWebsocketSinkProcess(id, cfg.WSDriver)
	case graph.SinkCustom:
		return newCustomSinkProcess(id, cfg.Fn), nil
	default:
		return func(_ context.Context, p packet.Packet) ([]packet.Packet, error) {
			return nil, &graph.ValidationError{Message: "unsupported sink kind: " + string(cfg.Kind)}
		}, nil
	}
}

func newLogSinkProcess(id string, emitter emit.Emitter) ProcessFunc {
	return func(_ context.Context, p packet.Packet) ([]packet.Packet, error) {
		emitter.Emit(emit.Event{
			NodeID: id,
			Msg:    "sink_write",
			Meta:   map[string]any{"payload": p.Payload, "metadata": p.Metadata},
		})
		return []packet.Packet{p}, nil
	}
}

func newHTTPSinkProcess(id string, d driver.SinkDriver) ProcessFunc {
	return func(ctx context.Context, p packet.Packet) ([]packet.Packet, error) {
		if err := d.Write(ctx, driver.Message{Payload: p.Payload, Metadata: p.Metadata}); err != nil {
			return nil, &graph.DriverError{NodeID: id, Op: "write", Cause: err}
		}
		return []packet.Packet{p}, nil
	}
}

func newCustomSinkProcess(id string, fn graph.SinkFunc) ProcessFunc {
	return func(_ context.Context, p packet.Packet) ([]packet.Packet, error) {
		if err := fn(p.Payload, p.Metadata); err != nil {
			return nil, &graph.UserCodeError{NodeID: id, Stage: "sink", Cause: err}
		}
		return []packet.Packet{p}, nil
	}
}

// databaseSink batches writes behind a size threshold (default 100) and a
// flush timer (default 5s), delegating the batch insert to a
// driver.BatchSinkDriver.
type databaseSink struct {
	id      string
	driver  driver.BatchSinkDriver
	batch   int
	flushIn time.Duration

	mu      sync.Mutex
	pending []driver.Message
	timer   *time.Timer
}

func newDatabaseSinkProcess(id string, cfg SinkConfig) (ProcessFunc, func()) {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultDBBatchSize
	}
	flushIn := cfg.FlushInterval
	if flushIn <= 0 {
		flushIn = defaultDBFlushInterval
	}
	s := &databaseSink{id: id, driver: cfg.DBDriver, batch: batch, flushIn: flushIn}
	s.timer = time.AfterFunc(flushIn, s.flushOnTimer)

	return func(ctx context.Context, p packet.Packet) ([]packet.Packet, error) {
		if err := s.add(ctx, driver.Message{Payload: p.Payload, Metadata: p.Metadata}); err != nil {
			return nil, &graph.DriverError{NodeID: id, Op: "write", Cause: err}
		}
		return []packet.Packet{p}, nil
	}, s.stop
}

func (s *databaseSink) add(ctx context.Context, msg driver.Message) error {
	s.mu.Lock()
	s.pending = append(s.pending, msg)
	full := len(s.pending) >= s.batch
	var flushing []driver.Message
	if full {
		flushing = s.pending
		s.pending = nil
	}
	s.mu.Unlock()

	if flushing != nil {
		s.timer.Reset(s.flushIn)
		return s.driver.WriteBatch(ctx, flushing)
	}
	return nil
}

func (s *databaseSink) flushOnTimer() {
	s.mu.Lock()
	flushing := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(flushing) > 0 {
		_ = s.driver.WriteBatch(context.Background(), flushing)
	}
	s.timer.Reset(s.flushIn)
}

func (s *databaseSink) stop() {
	s.timer.Stop()
	s.mu.Lock()
	flushing := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(flushing) > 0 {
		_ = s.driver.WriteBatch(context.Background(), flushing)
	}
}

// websocketSink buffers outgoing frames (bounded, oldest dropped first)
// while disconnected and sends them ahead of the next frame written once
// the driver reports Connected; reconnectLoop polls Connected every 5s in
// the meantime but does not send buffered frames itself.
type websocketSink struct {
	id  string
	ws  driver.WebsocketDriver
	mu  sync.Mutex
	buf []driver.Message
}

func newWebsocketSinkProcess(id string, ws driver.WebsocketDriver) (ProcessFunc, func()) {
	s := &websocketSink{id: id, ws: ws}

	reconnectCtx, cancel := context.WithCancel(context.Background())
	go reconnectLoop(reconnectCtx, ws)

	return func(ctx context.Context, p packet.Packet) ([]packet.Packet, error) {
		msg := driver.Message{Payload: p.Payload, Metadata: p.Metadata}
		if err := s.send(ctx, msg); err != nil {
			return nil, &graph.DriverError{NodeID: id, Op: "write", Cause: err}
		}
		return []packet.Packet{p}, nil
	}, cancel
}

func (s *websocketSink) send(ctx context.Context, msg driver.Message) error {
	if !s.ws.Connected() {
		s.mu.Lock()
		if len(s.buf) >= defaultWSBufferCap {
			s.buf = s.buf[1:]
		}
		s.buf = append(s.buf, msg)
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	pending := s.buf
	s.buf = nil
	s.mu.Unlock()
	for _, m := range pending {
		if err := s.ws.Send(ctx, m); err != nil {
			return fmt.Errorf("flush buffered websocket frame: %w", err)
		}
	}
	return s.ws.Send(ctx, msg)
}

// reconnectLoop polls Connected so a driver that reconnects lazily on its
// own gets a periodic nudge even when the sink has no packets to write. It
// is started by newWebsocketSinkProcess and stopped via the cleanup func
// that call returns, which the factory wires into the node's flush hook;
// that hook runs on Pause as well as on Stop, and the loop is not restarted
// by Resume.
func reconnectLoop(ctx context.Context, ws driver.WebsocketDriver) {
	ticker := time.NewTicker(defaultWSReconnectDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = ws.Connected()
		}
	}
}
