package javaping

import (
	"encoding/binary"
	"io"

	"github.com/zRains/msp/internal/msperr"
	"github.com/zRains/msp/internal/varint"
)

// writePacket frames id and data as a length-prefixed Java Edition packet:
// VarInt(len(VarInt(id) + data)) + VarInt(id) + data.
func writePacket(w io.Writer, id int32, data []byte) error {
	body := append(varint.Encode(id), data...)
	if _, err := varint.WriteTo(w, int32(len(body))); err != nil {
		return msperr.FromIOError(err)
	}
	if _, err := w.Write(body); err != nil {
		return msperr.FromIOError(err)
	}
	return nil
}

// readPacket reads one length-prefixed packet and splits it into its id and
// remaining payload.
func readPacket(r io.Reader) (int32, []byte, error) {
	_, length, err := varint.ReadFrom(r)
	if err != nil {
		return 0, nil, msperr.FromIOError(err)
	}
	if length < 0 {
		return 0, nil, msperr.New(msperr.DataErr, "negative packet length")
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, nil, msperr.FromIOError(err)
	}
	n, id, err := varintFromSlice(buf)
	if err != nil {
		return 0, nil, msperr.Wrap(msperr.DataErr, "malformed packet id", err)
	}
	return id, buf[n:], nil
}

func varintFromSlice(buf []byte) (int, int32, error) {
	if len(buf) > 5 {
		buf = buf[:5]
	}
	for i := range buf {
		if buf[i]&0x80 == 0 {
			v, err := varint.Decode(buf[:i+1])
			return i + 1, v, err
		}
	}
	v, err := varint.Decode(buf)
	return len(buf), v, err
}

// appendString appends a VarInt-prefixed UTF-8 string, the wire form used
// for the handshake server address.
func appendString(buf []byte, s string) []byte {
	b := []byte(s)
	buf = append(buf, varint.Encode(int32(len(b)))...)
	return append(buf, b...)
}

// putUint16 appends a big-endian port field.
func putUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}
