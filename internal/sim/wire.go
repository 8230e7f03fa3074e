package sim

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/banshee-data/scansim/internal/sim/scene"
)

// Wire format for a frame body, little-endian throughout:
//
//	N fixed-size point records, channel-major in frame order, then the
//	per-channel count table (uint32 per channel).
//
// One point record (32 bytes):
//
//	offset 0   x float32           vertical angle, degrees
//	offset 4   y float32           horizontal angle, degrees
//	offset 8   z float32           distance, metres (0 = miss)
//	offset 12  cos_inc_angle float32
//	offset 16  object_idx uint32
//	offset 20  object_tag uint32
//	offset 24  base_color 4 x uint8 (r, g, b, a)
//	offset 28  orm        4 x uint8 (r, g, b, a)
//
// The body alone does not carry the channel count; the transport layer
// (and the capture store) record it, and the decoder takes it as an
// argument.
const (
	// POINT_RECORD_SIZE is the encoded size of one detection.
	POINT_RECORD_SIZE = 32

	// COUNT_ENTRY_SIZE is the encoded size of one per-channel count.
	COUNT_ENTRY_SIZE = 4
)

// FrameBodySize returns the encoded size of a frame's body.
func FrameBodySize(points, channels int) int {
	return points*POINT_RECORD_SIZE + channels*COUNT_ENTRY_SIZE
}

// EncodeFrameBody serialises a frame's points and count table.
func EncodeFrameBody(f *OutputFrame) []byte {
	buf := make([]byte, FrameBodySize(len(f.Points), len(f.PointsPerChannel)))
	off := 0
	for i := range f.Points {
		encodePointRecord(buf[off:off+POINT_RECORD_SIZE], &f.Points[i])
		off += POINT_RECORD_SIZE
	}
	for _, n := range f.PointsPerChannel {
		binary.LittleEndian.PutUint32(buf[off:], n)
		off += COUNT_ENTRY_SIZE
	}
	return buf
}

func encodePointRecord(buf []byte, d *SemanticDetection) {
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(d.Point.X))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(d.Point.Y))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(d.Point.Z))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(d.CosIncAngle))
	binary.LittleEndian.PutUint32(buf[16:], d.ObjectIdx)
	binary.LittleEndian.PutUint32(buf[20:], d.ObjectTag)
	buf[24] = d.BaseColor.R
	buf[25] = d.BaseColor.G
	buf[26] = d.BaseColor.B
	buf[27] = d.BaseColor.A
	buf[28] = d.ORM.R
	buf[29] = d.ORM.G
	buf[30] = d.ORM.B
	buf[31] = d.ORM.A
}

// DecodeFrameBody parses an encoded frame body back into points and the
// per-channel count table. channels must match the sensor geometry the
// body was encoded under; the count table is cross-checked against the
// number of decoded records.
func DecodeFrameBody(buf []byte, channels int) ([]SemanticDetection, []uint32, error) {
	if channels < 1 {
		return nil, nil, fmt.Errorf("decode frame: channels must be >= 1, got %d", channels)
	}
	tableSize := channels * COUNT_ENTRY_SIZE
	if len(buf) < tableSize {
		return nil, nil, fmt.Errorf("decode frame: body %d bytes, need at least %d for the count table", len(buf), tableSize)
	}
	pointBytes := len(buf) - tableSize
	if pointBytes%POINT_RECORD_SIZE != 0 {
		return nil, nil, fmt.Errorf("decode frame: %d point bytes not a multiple of %d", pointBytes, POINT_RECORD_SIZE)
	}

	n := pointBytes / POINT_RECORD_SIZE
	points := make([]SemanticDetection, n)
	off := 0
	for i := range points {
		decodePointRecord(buf[off:off+POINT_RECORD_SIZE], &points[i])
		off += POINT_RECORD_SIZE
	}

	counts := make([]uint32, channels)
	total := 0
	for i := range counts {
		counts[i] = binary.LittleEndian.Uint32(buf[off:])
		total += int(counts[i])
		off += COUNT_ENTRY_SIZE
	}
	if total != n {
		return nil, nil, fmt.Errorf("decode frame: count table sums to %d but body has %d records", total, n)
	}
	return points, counts, nil
}

func decodePointRecord(buf []byte, d *SemanticDetection) {
	d.Point.X = math.Float32frombits(binary.LittleEndian.Uint32(buf[0:]))
	d.Point.Y = math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))
	d.Point.Z = math.Float32frombits(binary.LittleEndian.Uint32(buf[8:]))
	d.CosIncAngle = math.Float32frombits(binary.LittleEndian.Uint32(buf[12:]))
	d.ObjectIdx = binary.LittleEndian.Uint32(buf[16:])
	d.ObjectTag = binary.LittleEndian.Uint32(buf[20:])
	d.BaseColor = scene.RGBA{R: buf[24], G: buf[25], B: buf[26], A: buf[27]}
	d.ORM = scene.RGBA{R: buf[28], G: buf[29], B: buf[30], A: buf[31]}
}
