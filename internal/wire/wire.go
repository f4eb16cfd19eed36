// Package wire implements the Op, DiffRequest, and DiffResponse byte
// encodings from spec §6. All multi-element sections are sorted so that
// byte-equal replica states yield byte-equal wire payloads (the
// "Canonical form" property in spec §8).
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sort"
)

// ErrMalformedState is returned when a wire payload is truncated or
// otherwise fails to decode.
var ErrMalformedState = errors.New("wire: malformed state")

// Op is one accepted write: peer_id_len/peer_id, hlc (little-endian
// u64), key_len/key, value_len/value.
type Op struct {
	PeerID []byte
	HLC    uint64
	Key    []byte
	Value  []byte
}

// Delete is a (peer_id, hlc) pair shipped in a DiffResponse's delete
// section.
type Delete struct {
	PeerID []byte
	HLC    uint64
}

// PeerClockSet is one entry of a DiffRequest: a peer's canonical
// ClockSet serialization.
type PeerClockSet struct {
	PeerID []byte
	CS     []byte
}

// DiffRequest is a snapshot of Map<PeerId, CS>, sorted ascending by
// PeerId.
type DiffRequest struct {
	Peers []PeerClockSet
}

// DiffResponse is the insert/delete batch a responder ships back.
type DiffResponse struct {
	Inserts []Op
	Deletes []Delete
}

func putBytes(buf *bytes.Buffer, b []byte) {
	var lenbuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenbuf[:], uint64(len(b)))
	buf.Write(lenbuf[:n])
	buf.Write(b)
}

func getBytes(r *bytes.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, ErrMalformedState
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ErrMalformedState
	}
	return buf, nil
}

// EncodeOp appends op's wire encoding to buf.
func EncodeOp(buf *bytes.Buffer, op Op) {
	putBytes(buf, op.PeerID)
	var hlcbuf [8]byte
	binary.LittleEndian.PutUint64(hlcbuf[:], op.HLC)
	buf.Write(hlcbuf[:])
	putBytes(buf, op.Key)
	putBytes(buf, op.Value)
}

// DecodeOp reads one Op from r.
func DecodeOp(r *bytes.Reader) (Op, error) {
	peerID, err := getBytes(r)
	if err != nil {
		return Op{}, err
	}
	var hlcbuf [8]byte
	if _, err := io.ReadFull(r, hlcbuf[:]); err != nil {
		return Op{}, ErrMalformedState
	}
	key, err := getBytes(r)
	if err != nil {
		return Op{}, err
	}
	value, err := getBytes(r)
	if err != nil {
		return Op{}, err
	}
	return Op{PeerID: peerID, HLC: binary.LittleEndian.Uint64(hlcbuf[:]), Key: key, Value: value}, nil
}

// EncodeOps encodes a count-prefixed batch of Ops (the integrate_ops
// wire input).
func EncodeOps(ops []Op) []byte {
	var buf bytes.Buffer
	var cbuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(cbuf[:], uint64(len(ops)))
	buf.Write(cbuf[:n])
	for _, op := range ops {
		EncodeOp(&buf, op)
	}
	return buf.Bytes()
}

// DecodeOps decodes a count-prefixed batch of Ops.
func DecodeOps(data []byte) ([]Op, error) {
	r := bytes.NewReader(data)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, ErrMalformedState
	}
	ops := make([]Op, 0, count)
	for i := uint64(0); i < count; i++ {
		op, err := DecodeOp(r)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// EncodeDiffRequest encodes a DiffRequest: peer_count, then
// (peer_id_len, peer_id, cs_len, cs_bytes) sorted ascending by peer_id.
func EncodeDiffRequest(dr DiffRequest) []byte {
	peers := append([]PeerClockSet(nil), dr.Peers...)
	sort.Slice(peers, func(i, j int) bool { return bytes.Compare(peers[i].PeerID, peers[j].PeerID) < 0 })

	var buf bytes.Buffer
	var cbuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(cbuf[:], uint64(len(peers)))
	buf.Write(cbuf[:n])
	for _, p := range peers {
		putBytes(&buf, p.PeerID)
		putBytes(&buf, p.CS)
	}
	return buf.Bytes()
}

// DecodeDiffRequest is the inverse of EncodeDiffRequest.
func DecodeDiffRequest(data []byte) (DiffRequest, error) {
	r := bytes.NewReader(data)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return DiffRequest{}, ErrMalformedState
	}
	peers := make([]PeerClockSet, 0, count)
	for i := uint64(0); i < count; i++ {
		peerID, err := getBytes(r)
		if err != nil {
			return DiffRequest{}, err
		}
		cs, err := getBytes(r)
		if err != nil {
			return DiffRequest{}, err
		}
		peers = append(peers, PeerClockSet{PeerID: peerID, CS: cs})
	}
	return DiffRequest{Peers: peers}, nil
}

// EncodeDiffResponse encodes insert_count + Op records (sorted by
// (peer_id, hlc)), then delete_count + (peer_id, hlc) triples (sorted by
// (peer_id, hlc)).
func EncodeDiffResponse(resp DiffResponse) []byte {
	inserts := append([]Op(nil), resp.Inserts...)
	sort.Slice(inserts, func(i, j int) bool {
		if c := bytes.Compare(inserts[i].PeerID, inserts[j].PeerID); c != 0 {
			return c < 0
		}
		return inserts[i].HLC < inserts[j].HLC
	})
	deletes := append([]Delete(nil), resp.Deletes...)
	sort.Slice(deletes, func(i, j int) bool {
		if c := bytes.Compare(deletes[i].PeerID, deletes[j].PeerID); c != 0 {
			return c < 0
		}
		return deletes[i].HLC < deletes[j].HLC
	})

	var buf bytes.Buffer
	var cbuf [binary.MaxVarintLen64]byte

	n := binary.PutUvarint(cbuf[:], uint64(len(inserts)))
	buf.Write(cbuf[:n])
	for _, op := range inserts {
		EncodeOp(&buf, op)
	}

	n = binary.PutUvarint(cbuf[:], uint64(len(deletes)))
	buf.Write(cbuf[:n])
	for _, d := range deletes {
		putBytes(&buf, d.PeerID)
		var hlcbuf [8]byte
		binary.LittleEndian.PutUint64(hlcbuf[:], d.HLC)
		buf.Write(hlcbuf[:])
	}
	return buf.Bytes()
}

// DecodeDiffResponse is the inverse of EncodeDiffResponse.
func DecodeDiffResponse(data []byte) (DiffResponse, error) {
	r := bytes.NewReader(data)

	insertCount, err := binary.ReadUvarint(r)
	if err != nil {
		return DiffResponse{}, ErrMalformedState
	}
	inserts := make([]Op, 0, insertCount)
	for i := uint64(0); i < insertCount; i++ {
		op, err := DecodeOp(r)
		if err != nil {
			return DiffResponse{}, err
		}
		inserts = append(inserts, op)
	}

	deleteCount, err := binary.ReadUvarint(r)
	if err != nil {
		return DiffResponse{}, ErrMalformedState
	}
	deletes := make([]Delete, 0, deleteCount)
	for i := uint64(0); i < deleteCount; i++ {
		peerID, err := getBytes(r)
		if err != nil {
			return DiffResponse{}, err
		}
		var hlcbuf [8]byte
		if _, err := io.ReadFull(r, hlcbuf[:]); err != nil {
			return DiffResponse{}, ErrMalformedState
		}
		deletes = append(deletes, Delete{PeerID: peerID, HLC: binary.LittleEndian.Uint64(hlcbuf[:])})
	}

	return DiffResponse{Inserts: inserts, Deletes: deletes}, nil
}
