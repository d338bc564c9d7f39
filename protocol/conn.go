package protocol

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

const (
	StateHandshaking   = 0
	StateStatus        = 1
	StateLogin         = 2
	StateTransfer      = 3
	StateConfiguration = 4
	StatePlay          = 5
)

// Next-state values carried in the handshake packet.
const (
	NextStateStatus   = 1
	NextStateLogin    = 2
	NextStateTransfer = 3
)

// Largest accepted packet frame.
const maxPacketLength = 2 * 1024 * 1024

// Splice copy buffer size per direction.
const spliceBufferSize = 32 * 1024

var (
	ErrUnknownPacketId = errors.New("unknown packet id")
	ErrTooBig          = errors.New("size too big")
	ErrMalformed       = errors.New("malformed packet")
)

type closerFunc func() error

func (c closerFunc) Close() error {
	return c()
}

func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{
		rwc: rwc,
		r:   bufio.NewReader(rwc),
		w:   bufio.NewWriter(rwc),
	}
}

type Conn struct {
	rwc io.ReadWriteCloser
	r   *bufio.Reader
	w   *bufio.Writer

	state   VarInt
	version VarInt
}

func (c *Conn) Close() error {
	return c.rwc.Close()
}

// Version is the protocol version negotiated in the handshake, or zero if
// no handshake has been read.
func (c *Conn) Version() int {
	return int(c.version)
}

// State is the connection state as set by the handshake packet.
func (c *Conn) State() int {
	return int(c.state)
}

// ReadPacket reads one packet frame and decodes it into the first of
// listenFor whose id matches.
func (c *Conn) ReadPacket(listenFor ...Packet) (Packet, error) {
	_, packetId, reader, err := c.readPacket()
	if err != nil {
		return nil, err
	}

	for _, packet := range listenFor {
		if packet.ID() == packetId {
			err := packet.ReadBytesFrom(reader)
			if err != nil {
				return packet, err
			}

			if handshake, ok := packet.(*HandshakeIntention); ok {
				c.state = handshake.NextState
				c.version = handshake.ProtocolVersion
			}

			return packet, nil
		}
	}

	return nil, fmt.Errorf("%w %v", ErrUnknownPacketId, packetId)
}

func (c *Conn) readPacket() (size, packetId VarInt, packetReader io.ByteReader, err error) {
	err = size.ReadBytesFrom(c.r)
	if err != nil {
		return
	}

	if size < 0 || size > maxPacketLength {
		err = fmt.Errorf("%w: packet of %v bytes", ErrTooBig, size)
		return
	}

	packetReader = bufio.NewReader(io.LimitReader(c.r, int64(size)))
	err = packetId.ReadBytesFrom(packetReader)
	return
}

// ReadFrame reads one packet frame and returns its id, its payload, and
// the exact bytes as they appeared on the wire so the frame can be
// replayed verbatim.
func (c *Conn) ReadFrame() (packetId VarInt, payload, raw []byte, err error) {
	// Keep the length prefix exactly as received: a padded VarInt would
	// not survive re-encoding.
	var head []byte
	for len(head) == 0 || head[len(head)-1]&0x80 != 0 && len(head) < 5 {
		var b byte
		if b, err = c.r.ReadByte(); err != nil {
			return
		}
		head = append(head, b)
	}

	var size VarInt
	err = size.ReadBytesFrom(bytes.NewReader(head))
	if err != nil {
		return
	}

	if size < 0 || size > maxPacketLength {
		err = fmt.Errorf("%w: packet of %v bytes", ErrTooBig, size)
		return
	}

	body := make([]byte, size)
	_, err = io.ReadFull(c.r, body)
	if err != nil {
		return
	}

	bodyReader := bytes.NewReader(body)
	err = packetId.ReadBytesFrom(bodyReader)
	if err != nil {
		return
	}

	payload = body[len(body)-bodyReader.Len():]

	raw = append(head, body...)

	// Track handshake fields for frames too.
	if c.state == StateHandshaking && packetId == 0x00 {
		var handshake HandshakeIntention
		if handshake.ReadBytesFrom(bytes.NewReader(payload)) == nil {
			c.state = handshake.NextState
			c.version = handshake.ProtocolVersion
		}
	}

	return
}

func (c *Conn) WritePacket(packet Packet) error {
	writer, closer := c.writePacket(packet.ID())
	err := packet.WriteBytesTo(writer)
	if err != nil {
		return err
	}

	return closer.Close()
}

func (c *Conn) writePacket(packetId VarInt) (io.ByteWriter, io.Closer) {
	buff := new(bytes.Buffer)

	closer := func() error {
		var packetIdBuff bytes.Buffer
		err := packetId.WriteBytesTo(&packetIdBuff)
		if err != nil {
			return err
		}

		size := VarInt(packetIdBuff.Len() + buff.Len())
		err = size.WriteBytesTo(c.w)
		if err != nil {
			return err
		}

		_, err = packetIdBuff.WriteTo(c.w)
		if err != nil {
			return err
		}

		_, err = buff.WriteTo(c.w)
		if err != nil {
			return err
		}

		return c.w.Flush()
	}

	return buff, closerFunc(closer)
}

// WriteRaw writes bytes to the connection as-is.
func (c *Conn) WriteRaw(b []byte) error {
	_, err := c.w.Write(b)
	if err != nil {
		return err
	}

	return c.w.Flush()
}

// PipeTo replays the given raw frames to conn, flushes any bytes already
// buffered on either side, then copies bytes symmetrically in both
// directions until one side closes. Bytes past the replayed frames are
// never interpreted.
func (c *Conn) PipeTo(ctx context.Context, conn net.Conn, replay ...[]byte) error {
	defer conn.Close()
	defer c.rwc.Close()

	for _, frame := range replay {
		_, err := conn.Write(frame)
		if err != nil {
			return err
		}
	}

	if n := c.r.Buffered(); n > 0 {
		_, err := io.CopyN(conn, c.r, int64(n))
		if err != nil {
			return err
		}
	}

	err := c.w.Flush()
	if err != nil {
		return err
	}

	ctx, done := context.WithCancelCause(ctx)
	go func() {
		_, err := io.CopyBuffer(c.rwc, conn, make([]byte, spliceBufferSize))
		done(err)
	}()

	go func() {
		_, err := io.CopyBuffer(conn, c.rwc, make([]byte, spliceBufferSize))
		done(err)
	}()

	<-ctx.Done()
	return context.Cause(ctx)
}
