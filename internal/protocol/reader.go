package protocol

import (
	"io"
)

// ReadFrame blocks until one complete frame has been read from r.
// A bad header is reported before its payload is read.
func (d Decoder) ReadFrame(r io.Reader) (Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	h, err := DecodeHeader(hdr[:])
	if err != nil {
		return Frame{}, err
	}
	if err := d.CheckHeader(h); err != nil {
		return Frame{}, err
	}
	body := make([]byte, h.PayloadLength)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	p, err := d.DecodePayload(body, h)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Header: h, Payload: p}, nil
}

// WriteFrame encodes p and writes it to w in a single Write call.
func WriteFrame(w io.Writer, p Payload) error {
	_, err := w.Write(Encode(p))
	return err
}
