package protocol

import (
	"encoding/json"
	"io"
	"reflect"
	"strings"
)

type Packet interface {
	ID() VarInt
	Encodable
}

type Encodable interface {
	ReadBytesFrom(io.ByteReader) error
	WriteBytesTo(io.ByteWriter) error
}

func decodeFields(r io.ByteReader, schema any) error {
	v := reflect.ValueOf(schema).Elem()

	for i := range v.NumField() {
		f := v.Field(i).Addr()
		p := f.Interface().(Encodable)
		err := p.ReadBytesFrom(r)
		if err != nil {
			return err
		}
	}

	return nil
}

func encodeFields(w io.ByteWriter, schema any) error {
	v := reflect.ValueOf(schema).Elem()

	for i := range v.NumField() {
		f := v.Field(i).Addr()
		p := f.Interface().(Encodable)
		err := p.WriteBytesTo(w)
		if err != nil {
			return err
		}
	}

	return nil
}

// Chat is a JSON chat component. Only the small subset the proxy emits is
// modelled.
type Chat struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
	Extra []Chat `json:"extra,omitempty"`
}

// NewChat builds a chat component from a plain string. A string containing
// newlines becomes a multi-line component with each further line in Extra.
func NewChat(s string) Chat {
	lines := strings.Split(s, "\n")
	c := Chat{Text: lines[0]}
	for _, line := range lines[1:] {
		c.Extra = append(c.Extra, Chat{Text: "\n" + line})
	}
	return c
}

var _ Packet = &HandshakeIntention{}

type HandshakeIntention struct {
	ProtocolVersion VarInt
	ServerAddress   String255
	ServerPort      UShort
	NextState       VarInt
}

func (h *HandshakeIntention) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *HandshakeIntention) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *HandshakeIntention) ID() VarInt {
	return 0x00
}

type StatusRequest struct{}

func (h *StatusRequest) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *StatusRequest) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *StatusRequest) ID() VarInt {
	return 0x00
}

// ServerStatus is the JSON body of a status response.
type ServerStatus struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
		Sample []struct {
			Name string `json:"name"`
			ID   string `json:"id"`
		} `json:"sample"`
	} `json:"players"`
	Description       json.RawMessage `json:"description,omitempty"`
	Favicon           string          `json:"favicon,omitempty"`
	EnforceSecureChat bool            `json:"enforcesSecureChat,omitempty"`
}

// SetDescription sets the description to a chat component.
func (s *ServerStatus) SetDescription(c Chat) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	s.Description = data
}

// DescriptionText flattens the description to plain text whether it is a
// JSON string or a chat component.
func (s *ServerStatus) DescriptionText() string {
	if len(s.Description) == 0 {
		return ""
	}

	var str string
	if json.Unmarshal(s.Description, &str) == nil {
		return str
	}

	var c Chat
	if json.Unmarshal(s.Description, &c) == nil {
		text := c.Text
		for _, e := range c.Extra {
			text += e.Text
		}
		return text
	}

	return string(s.Description)
}

type StatusResponse struct {
	JSONResponse ServerStatus
}

func (h *StatusResponse) ReadBytesFrom(r io.ByteReader) error {
	var str String
	err := str.ReadBytesFrom(r)
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(str), &h.JSONResponse)
}

func (h *StatusResponse) WriteBytesTo(w io.ByteWriter) error {
	data, err := json.Marshal(h.JSONResponse)
	if err != nil {
		return err
	}

	str := String(data)
	return str.WriteBytesTo(w)
}

func (h *StatusResponse) ID() VarInt {
	return 0x00
}

type PingRequest struct {
	Payload Long
}

func (h *PingRequest) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *PingRequest) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *PingRequest) ID() VarInt {
	return 0x01
}

type PongResponse struct {
	Payload Long
}

func (h *PongResponse) ReadBytesFrom(r io.ByteReader) error {
	return decodeFields(r, h)
}

func (h *PongResponse) WriteBytesTo(w io.ByteWriter) error {
	return encodeFields(w, h)
}

func (h *PongResponse) ID() VarInt {
	return 0x01
}
