package network

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/banshee-data/scansim/internal/monitoring"
	"github.com/banshee-data/scansim/internal/sim"
)

// ForwarderStats tracks streaming counters. GetAndReset is called from
// the periodic stats logger.
type ForwarderStats struct {
	mu           sync.Mutex
	frameCount   int64
	packetCount  int64
	byteCount    int64
	droppedCount int64
	lastReset    time.Time
}

func (fs *ForwarderStats) addFrame(packets, bytes int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.frameCount++
	fs.packetCount += int64(packets)
	fs.byteCount += int64(bytes)
}

func (fs *ForwarderStats) addDropped() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.droppedCount++
}

// GetAndReset returns the counters accumulated since the last call and
// zeroes them.
func (fs *ForwarderStats) GetAndReset() (frames, packets, bytes, dropped int64, duration time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := time.Now()
	if fs.lastReset.IsZero() {
		fs.lastReset = now
	}
	duration = now.Sub(fs.lastReset)
	frames, packets, bytes, dropped = fs.frameCount, fs.packetCount, fs.byteCount, fs.droppedCount
	fs.frameCount, fs.packetCount, fs.byteCount, fs.droppedCount = 0, 0, 0, 0
	fs.lastReset = now
	return
}

// FrameForwarder streams completed frames to a UDP consumer. Frames
// are queued non-blocking: when the buffer is full the frame is
// dropped and counted, so a slow network can never stall the tick
// path.
type FrameForwarder struct {
	conn       *net.UDPConn
	channel    chan *sim.OutputFrame
	address    string
	maxPayload int
	stats      ForwarderStats
}

// NewFrameForwarder dials the UDP target. queueDepth is the number of
// frames buffered before drops begin (default 16); maxPayload bounds
// body bytes per packet (0 selects the default MTU sizing).
func NewFrameForwarder(addr string, port int, queueDepth, maxPayload int) (*FrameForwarder, error) {
	if queueDepth <= 0 {
		queueDepth = 16
	}

	forwardAddress := fmt.Sprintf("%s:%d", addr, port)
	udpAddr, err := net.ResolveUDPAddr("udp", forwardAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forward address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward connection: %w", err)
	}

	return &FrameForwarder{
		conn:       conn,
		channel:    make(chan *sim.OutputFrame, queueDepth),
		address:    forwardAddress,
		maxPayload: maxPayload,
	}, nil
}

// Address returns the resolved target address.
func (f *FrameForwarder) Address() string {
	return f.address
}

// Stats exposes the forwarder's counters.
func (f *FrameForwarder) Stats() *ForwarderStats {
	return &f.stats
}

// Start runs the send loop until the context is cancelled.
func (f *FrameForwarder) Start(ctx context.Context) {
	go func() {
		monitoring.Logf("Frame forwarding started to %s", f.address)
		for {
			select {
			case <-ctx.Done():
				sim.Diagf("frame forwarder stopping (sent %d packets)", f.packetsSent())
				return
			case frame, ok := <-f.channel:
				if !ok {
					return
				}
				f.send(frame)
			}
		}
	}()
}

func (f *FrameForwarder) packetsSent() int64 {
	f.stats.mu.Lock()
	defer f.stats.mu.Unlock()
	return f.stats.packetCount
}

func (f *FrameForwarder) send(frame *sim.OutputFrame) {
	packets, err := PacketizeFrame(frame, f.maxPayload)
	if err != nil {
		sim.Diagf("error packetizing frame %d: %v", frame.Seq, err)
		return
	}

	bytes := 0
	sent := 0
	for _, pkt := range packets {
		if _, err := f.conn.Write(pkt); err != nil {
			sim.Diagf("error forwarding frame %d packet: %v", frame.Seq, err)
			continue
		}
		sent++
		bytes += len(pkt)
	}
	f.stats.addFrame(sent, bytes)
}

// Forward queues one frame. Frames are immutable after assembly, so no
// copy is taken; a full queue drops the frame and bumps the counter.
func (f *FrameForwarder) Forward(frame *sim.OutputFrame) {
	if frame == nil || len(frame.Points) == 0 {
		return
	}
	select {
	case f.channel <- frame:
	default:
		f.stats.addDropped()
	}
}

// Close closes the UDP connection and the send queue.
func (f *FrameForwarder) Close() error {
	close(f.channel)
	return f.conn.Close()
}
