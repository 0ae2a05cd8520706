package lasio

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// VlrHeaderSize is the fixed size of a (non-extended) VLR header.
const VlrHeaderSize = 54

// EvlrHeaderSize is the fixed size of an EVLR header.
const EvlrHeaderSize = 60

// VLR user IDs and record IDs used by COPC (spec.md §6).
const (
	UserIDCopc            = "copc"
	UserIDLASFProjection  = "LASF_Projection"
	UserIDLASFSpec        = "LASF_Spec"
	UserIDLaszipEncoded   = "laszip encoded"
	RecordIDCopcInfo      = 1
	RecordIDCopcExtents   = 10000
	RecordIDCopcHierarchy = 1000
	RecordIDWkt           = 2112
	RecordIDExtraBytes    = 4
	RecordIDLazConfig     = 22204
)

// VlrHeader is the common 54-byte (VLR) / 60-byte (EVLR) record header,
// minus the record-length field, whose width differs between the two.
type VlrHeader struct {
	UserID      string
	RecordID    uint16
	Description string
}

func packFixedString(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

// MarshalVlrHeader serializes a 54-byte VLR header with the given payload
// length.
func MarshalVlrHeader(h VlrHeader, recordLength uint16) []byte {
	buf := make([]byte, 0, VlrHeaderSize)
	w := bytes.NewBuffer(buf)
	binary.Write(w, binary.LittleEndian, uint16(0)) // reserved
	w.Write(packFixedString(h.UserID, 16))
	binary.Write(w, binary.LittleEndian, h.RecordID)
	binary.Write(w, binary.LittleEndian, recordLength)
	w.Write(packFixedString(h.Description, 32))
	return w.Bytes()
}

// UnmarshalVlrHeader parses a 54-byte VLR header, returning the header and
// the payload length.
func UnmarshalVlrHeader(data []byte) (VlrHeader, uint16, error) {
	if len(data) < VlrHeaderSize {
		return VlrHeader{}, 0, errors.Wrapf(ErrTruncated, "vlr header: got %d bytes", len(data))
	}
	r := bytes.NewReader(data[:VlrHeaderSize])
	var reserved uint16
	binary.Read(r, binary.LittleEndian, &reserved)
	userID := make([]byte, 16)
	r.Read(userID)
	var recordID, recordLength uint16
	binary.Read(r, binary.LittleEndian, &recordID)
	binary.Read(r, binary.LittleEndian, &recordLength)
	desc := make([]byte, 32)
	r.Read(desc)
	return VlrHeader{
		UserID:      cstring(userID),
		RecordID:    recordID,
		Description: cstring(desc),
	}, recordLength, nil
}

// MarshalEvlrHeader serializes a 60-byte EVLR header with the given
// (64-bit) payload length.
func MarshalEvlrHeader(h VlrHeader, recordLength uint64) []byte {
	buf := make([]byte, 0, EvlrHeaderSize)
	w := bytes.NewBuffer(buf)
	binary.Write(w, binary.LittleEndian, uint16(0)) // reserved
	w.Write(packFixedString(h.UserID, 16))
	binary.Write(w, binary.LittleEndian, h.RecordID)
	binary.Write(w, binary.LittleEndian, recordLength)
	w.Write(packFixedString(h.Description, 32))
	return w.Bytes()
}

// UnmarshalEvlrHeader parses a 60-byte EVLR header.
func UnmarshalEvlrHeader(data []byte) (VlrHeader, uint64, error) {
	if len(data) < EvlrHeaderSize {
		return VlrHeader{}, 0, errors.Wrapf(ErrTruncated, "evlr header: got %d bytes", len(data))
	}
	r := bytes.NewReader(data[:EvlrHeaderSize])
	var reserved uint16
	binary.Read(r, binary.LittleEndian, &reserved)
	userID := make([]byte, 16)
	r.Read(userID)
	var recordID uint16
	var recordLength uint64
	binary.Read(r, binary.LittleEndian, &recordID)
	binary.Read(r, binary.LittleEndian, &recordLength)
	desc := make([]byte, 32)
	r.Read(desc)
	return VlrHeader{
		UserID:      cstring(userID),
		RecordID:    recordID,
		Description: cstring(desc),
	}, recordLength, nil
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// CopcInfoVlrSize is the fixed payload size of the COPC-info VLR
// (9 float64 + 11 uint64).
const CopcInfoVlrSize = 9*8 + 11*8

// CopcInfoVlr is the COPC-info VLR payload (spec.md §6).
type CopcInfoVlr struct {
	CenterX, CenterY, CenterZ float64
	HalfSize                  float64
	Spacing                   float64
	RootHierOffset            uint64
	RootHierSize              uint64
	GpsTimeMin, GpsTimeMax    float64
}

// MarshalBinary serializes the 160-byte COPC-info payload, padding out the
// 11 reserved uint64 slots with zero.
func (v CopcInfoVlr) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, CopcInfoVlrSize)
	w := bytes.NewBuffer(buf)
	binary.Write(w, binary.LittleEndian, v.CenterX)
	binary.Write(w, binary.LittleEndian, v.CenterY)
	binary.Write(w, binary.LittleEndian, v.CenterZ)
	binary.Write(w, binary.LittleEndian, v.HalfSize)
	binary.Write(w, binary.LittleEndian, v.Spacing)
	binary.Write(w, binary.LittleEndian, float64(v.RootHierOffset))
	binary.Write(w, binary.LittleEndian, float64(v.RootHierSize))
	binary.Write(w, binary.LittleEndian, v.GpsTimeMin)
	binary.Write(w, binary.LittleEndian, v.GpsTimeMax)
	for i := 0; i < 11; i++ {
		binary.Write(w, binary.LittleEndian, uint64(0))
	}
	return w.Bytes(), nil
}

// UnmarshalBinary parses a 160-byte COPC-info payload.
func (v *CopcInfoVlr) UnmarshalBinary(data []byte) error {
	if len(data) < CopcInfoVlrSize {
		return errors.Wrapf(ErrTruncated, "copc info vlr: got %d bytes", len(data))
	}
	r := bytes.NewReader(data[:CopcInfoVlrSize])
	binary.Read(r, binary.LittleEndian, &v.CenterX)
	binary.Read(r, binary.LittleEndian, &v.CenterY)
	binary.Read(r, binary.LittleEndian, &v.CenterZ)
	binary.Read(r, binary.LittleEndian, &v.HalfSize)
	binary.Read(r, binary.LittleEndian, &v.Spacing)
	var rootOffset, rootSize float64
	binary.Read(r, binary.LittleEndian, &rootOffset)
	binary.Read(r, binary.LittleEndian, &rootSize)
	v.RootHierOffset = uint64(rootOffset)
	v.RootHierSize = uint64(rootSize)
	binary.Read(r, binary.LittleEndian, &v.GpsTimeMin)
	binary.Read(r, binary.LittleEndian, &v.GpsTimeMax)
	return nil
}

// WktVlr wraps a WKT string for EVLR serialization (no fixed length: the
// record length is the string's byte length, null-terminated per the LAS
// WKT VLR convention).
type WktVlr struct {
	Wkt string
}

// MarshalBinary returns the WKT bytes, null-terminated.
func (v WktVlr) MarshalBinary() ([]byte, error) {
	b := make([]byte, len(v.Wkt)+1)
	copy(b, v.Wkt)
	return b, nil
}

// UnmarshalBinary sets v.Wkt from a (possibly null-terminated) byte slice.
func (v *WktVlr) UnmarshalBinary(data []byte) error {
	v.Wkt = cstring(data)
	return nil
}
