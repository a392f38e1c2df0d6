package server

import (
	"bytes"
	"encoding/binary"
	"io"

	"gitlab.com/tozd/go/errors"
)

// ProtocolVersion is sent with every request. A server answers requests of
// any other version with MismatchedVersionResponse.
const ProtocolVersion = 3

// MaxMessageSize bounds a single request or response body.
const MaxMessageSize = 64 << 20

var ErrMessageTooLarge = errors.Base("message too large")

type ArgumentID int32

const (
	ArgCurrentDirectory ArgumentID = 0x51147221 + iota
	ArgCommandLine
	ArgTempDirectory
	ArgShutdown
)

type Argument struct {
	ID ArgumentID
	// Index orders repeated arguments such as the command line.
	Index int32
	Value string
}

type Request struct {
	ProtocolVersion int32
	Arguments       []Argument
}

// NewCompileRequest asks the server to run a compilation with args as if
// started from dir.
func NewCompileRequest(dir string, args []string) *Request {
	req := &Request{ProtocolVersion: ProtocolVersion}
	req.Arguments = append(req.Arguments, Argument{ID: ArgCurrentDirectory, Value: dir})
	for i, a := range args {
		req.Arguments = append(req.Arguments, Argument{ID: ArgCommandLine, Index: int32(i), Value: a})
	}
	return req
}

func NewShutdownRequest() *Request {
	return &Request{
		ProtocolVersion: ProtocolVersion,
		Arguments:       []Argument{{ID: ArgShutdown}},
	}
}

func (me *Request) IsShutdown() bool {
	for _, a := range me.Arguments {
		if a.ID == ArgShutdown {
			return true
		}
	}
	return false
}

func (me *Request) CurrentDirectory() string {
	for _, a := range me.Arguments {
		if a.ID == ArgCurrentDirectory {
			return a.Value
		}
	}
	return ""
}

// CommandLine returns the command line arguments ordered by index.
func (me *Request) CommandLine() []string {
	var n int
	for _, a := range me.Arguments {
		if a.ID == ArgCommandLine {
			n = max(n, int(a.Index)+1)
		}
	}
	out := make([]string, n)
	for _, a := range me.Arguments {
		if a.ID == ArgCommandLine {
			out[a.Index] = a.Value
		}
	}
	return out
}

type ResponseType int32

const (
	ResponseMismatchedVersion ResponseType = iota
	ResponseCompleted
	ResponseShutdown
	ResponseRejected
)

// Response is one of the *Response types of this package.
type Response interface {
	Type() ResponseType
}

type CompletedResponse struct {
	ReturnCode int32
	UTF8Output bool
	Output     string
}

type ShutdownResponse struct {
	ServerProcessID int32
}

type RejectedResponse struct {
	Reason string
}

type MismatchedVersionResponse struct{}

func (*CompletedResponse) Type() ResponseType         { return ResponseCompleted }
func (*ShutdownResponse) Type() ResponseType          { return ResponseShutdown }
func (*RejectedResponse) Type() ResponseType          { return ResponseRejected }
func (*MismatchedVersionResponse) Type() ResponseType { return ResponseMismatchedVersion }

// Wire format, little endian:
//
//	message  = length:uint32 body
//	request  = version:int32 count:int32 { id:int32 index:int32 string }
//	response = type:int32 payload
//	string   = length:uint32 utf8-bytes

type encoder struct {
	buf bytes.Buffer
}

func (me *encoder) int32(v int32) {
	_ = binary.Write(&me.buf, binary.LittleEndian, v)
}

func (me *encoder) bool(v bool) {
	if v {
		me.buf.WriteByte(1)
		return
	}
	me.buf.WriteByte(0)
}

func (me *encoder) string(s string) {
	_ = binary.Write(&me.buf, binary.LittleEndian, uint32(len(s)))
	me.buf.WriteString(s)
}

func (me *encoder) flush(w io.Writer) (int64, error) {
	if me.buf.Len() > MaxMessageSize {
		return 0, errors.Errorf("writing %d bytes: %w", me.buf.Len(), ErrMessageTooLarge)
	}
	var head [4]byte
	binary.LittleEndian.PutUint32(head[:], uint32(me.buf.Len()))
	n, err := w.Write(head[:])
	if err != nil {
		return int64(n), errors.Errorf("writing message length: %w", err)
	}
	m, err := me.buf.WriteTo(w)
	if err != nil {
		return int64(n) + m, errors.Errorf("writing message body: %w", err)
	}
	return int64(n) + m, nil
}

// decoder reads fields from a message body. The first failure sticks and
// later reads return zero values.
type decoder struct {
	r   *bytes.Reader
	err error
}

func readMessage(r io.Reader) (*decoder, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, errors.Errorf("reading message length: %w", err)
	}
	size := binary.LittleEndian.Uint32(head[:])
	if size > MaxMessageSize {
		return nil, errors.Errorf("reading %d bytes: %w", size, ErrMessageTooLarge)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.Errorf("reading message body: %w", err)
	}
	return &decoder{r: bytes.NewReader(body)}, nil
}

func (me *decoder) int32() int32 {
	var v int32
	if me.err == nil {
		me.err = binary.Read(me.r, binary.LittleEndian, &v)
	}
	return v
}

func (me *decoder) bool() bool {
	if me.err != nil {
		return false
	}
	b, err := me.r.ReadByte()
	me.err = err
	return b != 0
}

func (me *decoder) string() string {
	var n uint32
	if me.err == nil {
		me.err = binary.Read(me.r, binary.LittleEndian, &n)
	}
	if me.err != nil {
		return ""
	}
	if int64(n) > int64(me.r.Len()) {
		me.err = io.ErrUnexpectedEOF
		return ""
	}
	b := make([]byte, n)
	_, me.err = io.ReadFull(me.r, b)
	return string(b)
}

func (me *Request) WriteTo(w io.Writer) (int64, error) {
	var e encoder
	e.int32(me.ProtocolVersion)
	e.int32(int32(len(me.Arguments)))
	for _, a := range me.Arguments {
		e.int32(int32(a.ID))
		e.int32(a.Index)
		e.string(a.Value)
	}
	return e.flush(w)
}

func ReadRequest(r io.Reader) (*Request, error) {
	d, err := readMessage(r)
	if err != nil {
		return nil, err
	}
	req := &Request{ProtocolVersion: d.int32()}
	count := d.int32()
	if count < 0 || int64(count)*12 > int64(d.r.Len()) {
		return nil, errors.Errorf("reading request: bad argument count %d", count)
	}
	for range count {
		a := Argument{ID: ArgumentID(d.int32()), Index: d.int32(), Value: d.string()}
		if a.Index < 0 {
			return nil, errors.Errorf("reading request: negative argument index %d", a.Index)
		}
		req.Arguments = append(req.Arguments, a)
	}
	if d.err != nil {
		return nil, errors.Errorf("reading request: %w", d.err)
	}
	return req, nil
}

func WriteResponse(w io.Writer, resp Response) error {
	var e encoder
	e.int32(int32(resp.Type()))
	switch r := resp.(type) {
	case *CompletedResponse:
		e.int32(r.ReturnCode)
		e.bool(r.UTF8Output)
		e.string(r.Output)
	case *ShutdownResponse:
		e.int32(r.ServerProcessID)
	case *RejectedResponse:
		e.string(r.Reason)
	}
	_, err := e.flush(w)
	return err
}

func ReadResponse(r io.Reader) (Response, error) {
	d, err := readMessage(r)
	if err != nil {
		return nil, err
	}
	var resp Response
	switch typ := ResponseType(d.int32()); typ {
	case ResponseCompleted:
		resp = &CompletedResponse{ReturnCode: d.int32(), UTF8Output: d.bool(), Output: d.string()}
	case ResponseShutdown:
		resp = &ShutdownResponse{ServerProcessID: d.int32()}
	case ResponseRejected:
		resp = &RejectedResponse{Reason: d.string()}
	case ResponseMismatchedVersion:
		resp = &MismatchedVersionResponse{}
	default:
		if d.err == nil {
			return nil, errors.Errorf("reading response: unknown type %d", typ)
		}
	}
	if d.err != nil {
		return nil, errors.Errorf("reading response: %w", d.err)
	}
	return resp, nil
}
