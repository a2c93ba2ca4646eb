package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxMessageLen caps the declared payload length of a single request.
// A client announcing more than this is considered broken and dropped.
const MaxMessageLen = 8 << 20

// Request is one parsed client command: an action code and its raw JSON
// payload. Payload is never nil; actions sent without a body carry "{}".
type Request struct {
	Action  Action
	Payload []byte
}

// Parser assembles requests from a TCP byte stream.
//
// The wire format is little-endian u32s: action, then payload length, then
// that many bytes of UTF-8 JSON. Partial reads are buffered across Feed
// calls so frame boundaries never have to align with TCP segment boundaries.
//
// LOGOUT and OBSERVER are documented as having no payload. Historically
// clients send them both with and without a length prefix, so the parser
// completes them as soon as the action code arrives and substitutes an
// empty JSON object.
type Parser struct {
	buf        []byte
	action     Action
	haveAction bool
	msgLen     uint32
	haveLen    bool
}

// Feed appends raw bytes from the stream to the parser's buffer.
func (p *Parser) Feed(data []byte) {
	p.buf = append(p.buf, data...)
}

// Next extracts the next complete request from the buffer.
// It returns ok=false when more bytes are needed.
func (p *Parser) Next() (Request, bool, error) {
	if !p.haveAction {
		if len(p.buf) < 4 {
			return Request{}, false, nil
		}
		p.action = Action(binary.LittleEndian.Uint32(p.buf[:4]))
		p.buf = p.buf[4:]
		p.haveAction = true

		if p.action == ActionLogout || p.action == ActionObserver {
			// No-payload commands complete immediately. Whatever follows
			// in the buffer belongs to the quirk described above and is
			// dropped, matching the reference behavior.
			p.buf = nil
			p.reset()
			return Request{Action: p.action, Payload: []byte("{}")}, true, nil
		}
	}

	if !p.haveLen {
		if len(p.buf) < 4 {
			return Request{}, false, nil
		}
		p.msgLen = binary.LittleEndian.Uint32(p.buf[:4])
		p.buf = p.buf[4:]
		p.haveLen = true
		if p.msgLen > MaxMessageLen {
			return Request{}, false, fmt.Errorf("declared message length %d exceeds limit %d", p.msgLen, MaxMessageLen)
		}
	}

	if uint32(len(p.buf)) < p.msgLen {
		return Request{}, false, nil
	}

	payload := make([]byte, p.msgLen)
	copy(payload, p.buf[:p.msgLen])
	p.buf = p.buf[p.msgLen:]
	action := p.action
	p.reset()
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return Request{Action: action, Payload: payload}, true, nil
}

func (p *Parser) reset() {
	p.haveAction = false
	p.haveLen = false
	p.msgLen = 0
}

// WriteResponse writes one response frame: result code, payload length,
// payload bytes. An empty payload is legal and produces a zero length.
func WriteResponse(w io.Writer, result Result, payload []byte) error {
	frame := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], uint32(result))
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[8:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing response frame: %w", err)
	}
	return nil
}

// WriteRequest writes one request frame. It exists for clients and tests;
// the server itself only parses requests.
func WriteRequest(w io.Writer, action Action, payload []byte) error {
	frame := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], uint32(action))
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[8:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing request frame: %w", err)
	}
	return nil
}

// ReadResponse reads one response frame from r. Client/test helper.
func ReadResponse(r io.Reader) (Result, []byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("reading response header: %w", err)
	}
	result := Result(binary.LittleEndian.Uint32(header[0:4]))
	msgLen := binary.LittleEndian.Uint32(header[4:8])
	if msgLen > MaxMessageLen {
		return 0, nil, fmt.Errorf("response length %d exceeds limit", msgLen)
	}
	payload := make([]byte, msgLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("reading response payload: %w", err)
	}
	return result, payload, nil
}
