package frame

import (
	"encoding/binary"
	"io"
)

// OpCode is the native-protocol opcode byte, shared by requests and
// responses (spec §4.G).
type OpCode byte

const (
	OpError        OpCode = 0x00
	OpStartup      OpCode = 0x01
	OpReady        OpCode = 0x02
	OpAuthenticate OpCode = 0x03
	OpOptions      OpCode = 0x05
	OpSupported    OpCode = 0x06
	OpQuery        OpCode = 0x07
	OpResult       OpCode = 0x08
	OpPrepare      OpCode = 0x09
	OpExecute      OpCode = 0x0A
	OpRegister     OpCode = 0x0B
	OpEvent        OpCode = 0x0C
	OpBatch        OpCode = 0x0D
	OpAuthChallenge OpCode = 0x0E
	OpAuthResponse OpCode = 0x0F
	OpAuthSuccess  OpCode = 0x10
)

func (o OpCode) String() string {
	switch o {
	case OpError:
		return "ERROR"
	case OpStartup:
		return "STARTUP"
	case OpReady:
		return "READY"
	case OpAuthenticate:
		return "AUTHENTICATE"
	case OpOptions:
		return "OPTIONS"
	case OpSupported:
		return "SUPPORTED"
	case OpQuery:
		return "QUERY"
	case OpResult:
		return "RESULT"
	case OpPrepare:
		return "PREPARE"
	case OpExecute:
		return "EXECUTE"
	case OpRegister:
		return "REGISTER"
	case OpEvent:
		return "EVENT"
	case OpBatch:
		return "BATCH"
	case OpAuthChallenge:
		return "AUTH_CHALLENGE"
	case OpAuthResponse:
		return "AUTH_RESPONSE"
	case OpAuthSuccess:
		return "AUTH_SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// HeaderFlags is the frame header's flags byte (spec §4.G).
type HeaderFlags byte

const (
	FlagCompression   HeaderFlags = 1 << 0
	FlagTracing       HeaderFlags = 1 << 1
	FlagCustomPayload HeaderFlags = 1 << 2
	FlagWarning       HeaderFlags = 1 << 3
)

const (
	// RequestVersion is the only request protocol version this server
	// accepts (spec §4.G).
	RequestVersion byte = 0x04
	// responseVersionBit is set on every outgoing frame's version byte.
	responseVersionBit byte = 0x80
	// ResponseVersion is the version byte a v4 response carries.
	ResponseVersion = RequestVersion | responseVersionBit
)

// HeaderLength is the fixed size of a native-protocol frame header.
const HeaderLength = 9

// Header is the 9-byte frame header: version(u8) flags(u8) stream(i16)
// opcode(u8) length(u32).
type Header struct {
	Version byte
	Flags   HeaderFlags
	Stream  int16
	Opcode  OpCode
	Length  uint32
}

// ReadHeader reads and decodes one 9-byte header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderLength]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	return Header{
		Version: buf[0],
		Flags:   HeaderFlags(buf[1]),
		Stream:  int16(binary.BigEndian.Uint16(buf[2:4])),
		Opcode:  OpCode(buf[4]),
		Length:  binary.BigEndian.Uint32(buf[5:9]),
	}, nil
}

// Frame is one fully-read request: header plus raw body.
type Frame struct {
	Header Header
	Body   []byte
}

// ReadFrame reads one complete frame (header and body) from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	body := make([]byte, h.Length)
	if h.Length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
	}
	return &Frame{Header: h, Body: body}, nil
}

// WriteResponse writes one response frame: the v4 response version, the
// given stream id echoed back, opcode, flags and body.
func WriteResponse(w io.Writer, stream int16, opcode OpCode, flags HeaderFlags, body []byte) error {
	var hdr [HeaderLength]byte
	hdr[0] = ResponseVersion
	hdr[1] = byte(flags)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(stream))
	hdr[4] = byte(opcode)
	binary.BigEndian.PutUint32(hdr[5:9], uint32(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	_, err := w.Write(body)
	return err
}

// WriteRaw re-serializes a Frame exactly as read: same version byte, flags,
// stream and body. Unlike WriteResponse it never coerces the version to the
// server's response-version bit, which is what a byte-transparent passthrough
// (the sniffer proxy, spec §6) needs -- it is forwarding someone else's frame,
// not producing one of its own.
func WriteRaw(w io.Writer, f *Frame) error {
	var hdr [HeaderLength]byte
	hdr[0] = f.Header.Version
	hdr[1] = byte(f.Header.Flags)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(f.Header.Stream))
	hdr[4] = byte(f.Header.Opcode)
	binary.BigEndian.PutUint32(hdr[5:9], uint32(len(f.Body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(f.Body) == 0 {
		return nil
	}
	_, err := w.Write(f.Body)
	return err
}
