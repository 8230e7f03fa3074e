// Package network streams simulator frames over UDP. An encoded frame
// body rarely fits one datagram, so it is fragmented into MTU-sized
// packets under a small fixed header and reassembled on the far side
// keyed by frame sequence number.
package network

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/scansim/internal/sim"
)

// Packet wire format, little-endian:
//
//	offset 0   magic uint32        PACKET_MAGIC
//	offset 4   frame_seq uint64    frame sequence the fragment belongs to
//	offset 12  packet_index uint16 fragment number within the frame
//	offset 14  packet_total uint16 fragments in the frame
//	offset 16  channels uint16     sensor channel count (decode parameter)
//	offset 18  payload_len uint16  bytes of frame body in this packet
//	offset 20  payload             frame body fragment
const (
	// PACKET_MAGIC marks a simulator stream packet ("SLD1" little-endian).
	PACKET_MAGIC uint32 = 0x31444C53

	// PACKET_HEADER_SIZE is the fixed header length before the payload.
	PACKET_HEADER_SIZE = 20

	// DEFAULT_PACKET_PAYLOAD keeps header + payload under a typical
	// 1500-byte MTU with UDP/IP overhead.
	DEFAULT_PACKET_PAYLOAD = 1400
)

// PacketizeFrame encodes a frame body and splits it into UDP payloads.
// maxPayload bounds the body bytes per packet; 0 selects the default.
func PacketizeFrame(frame *sim.OutputFrame, maxPayload int) ([][]byte, error) {
	if maxPayload <= 0 {
		maxPayload = DEFAULT_PACKET_PAYLOAD
	}
	body := sim.EncodeFrameBody(frame)

	total := (len(body) + maxPayload - 1) / maxPayload
	if total == 0 {
		total = 1 // an empty body still ships one packet so the frame is visible
	}
	if total > 0xFFFF {
		return nil, fmt.Errorf("frame %d: %d fragments exceed the packet index space", frame.Seq, total)
	}

	packets := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		start := i * maxPayload
		end := start + maxPayload
		if end > len(body) {
			end = len(body)
		}
		chunk := body[start:end]

		pkt := make([]byte, PACKET_HEADER_SIZE+len(chunk))
		binary.LittleEndian.PutUint32(pkt[0:], PACKET_MAGIC)
		binary.LittleEndian.PutUint64(pkt[4:], frame.Seq)
		binary.LittleEndian.PutUint16(pkt[12:], uint16(i))
		binary.LittleEndian.PutUint16(pkt[14:], uint16(total))
		binary.LittleEndian.PutUint16(pkt[16:], uint16(len(frame.PointsPerChannel)))
		binary.LittleEndian.PutUint16(pkt[18:], uint16(len(chunk)))
		copy(pkt[PACKET_HEADER_SIZE:], chunk)
		packets = append(packets, pkt)
	}
	return packets, nil
}

// PacketHeader is the parsed fixed header of one stream packet.
type PacketHeader struct {
	FrameSeq    uint64
	PacketIndex uint16
	PacketTotal uint16
	Channels    uint16
	PayloadLen  uint16
}

// ParsePacket validates a datagram and splits it into header and
// payload. The payload aliases the input buffer.
func ParsePacket(pkt []byte) (PacketHeader, []byte, error) {
	if len(pkt) < PACKET_HEADER_SIZE {
		return PacketHeader{}, nil, fmt.Errorf("packet too short: %d bytes", len(pkt))
	}
	if magic := binary.LittleEndian.Uint32(pkt[0:]); magic != PACKET_MAGIC {
		return PacketHeader{}, nil, fmt.Errorf("bad packet magic 0x%08X", magic)
	}
	h := PacketHeader{
		FrameSeq:    binary.LittleEndian.Uint64(pkt[4:]),
		PacketIndex: binary.LittleEndian.Uint16(pkt[12:]),
		PacketTotal: binary.LittleEndian.Uint16(pkt[14:]),
		Channels:    binary.LittleEndian.Uint16(pkt[16:]),
		PayloadLen:  binary.LittleEndian.Uint16(pkt[18:]),
	}
	if h.PacketTotal == 0 || h.PacketIndex >= h.PacketTotal {
		return PacketHeader{}, nil, fmt.Errorf("bad fragment index %d/%d", h.PacketIndex, h.PacketTotal)
	}
	if int(h.PayloadLen) != len(pkt)-PACKET_HEADER_SIZE {
		return PacketHeader{}, nil, fmt.Errorf("payload length %d does not match packet size %d", h.PayloadLen, len(pkt))
	}
	return h, pkt[PACKET_HEADER_SIZE:], nil
}

// FrameAssembler reassembles one frame at a time from its fragments.
// Fragments from a newer frame discard any partially assembled older
// one; out-of-order delivery within a frame is tolerated.
type FrameAssembler struct {
	seq      uint64
	channels int
	total    int
	got      int
	chunks   [][]byte
}

// NewFrameAssembler returns an empty assembler.
func NewFrameAssembler() *FrameAssembler {
	return &FrameAssembler{}
}

// Add ingests one datagram. When the packet completes a frame it
// returns the decoded points, the per-channel counts, and done true.
func (a *FrameAssembler) Add(pkt []byte) (points []sim.SemanticDetection, counts []uint32, done bool, err error) {
	h, payload, err := ParsePacket(pkt)
	if err != nil {
		return nil, nil, false, err
	}

	if a.chunks == nil || h.FrameSeq != a.seq || int(h.PacketTotal) != a.total {
		a.seq = h.FrameSeq
		a.channels = int(h.Channels)
		a.total = int(h.PacketTotal)
		a.got = 0
		a.chunks = make([][]byte, a.total)
	}

	if a.chunks[h.PacketIndex] == nil {
		a.chunks[h.PacketIndex] = append([]byte(nil), payload...)
		a.got++
	}
	if a.got < a.total {
		return nil, nil, false, nil
	}

	body := make([]byte, 0)
	for _, c := range a.chunks {
		body = append(body, c...)
	}
	a.chunks = nil

	points, counts, err = sim.DecodeFrameBody(body, a.channels)
	if err != nil {
		return nil, nil, false, fmt.Errorf("frame %d: %w", h.FrameSeq, err)
	}
	return points, counts, true, nil
}
