package patternd

import (
	"errors"
	"fmt"

	"dev.acmcsuf.com/christmas/lib/leddraw"
	"dev.acmcsuf.com/christmas/lib/xcolor"
	"google.golang.org/protobuf/encoding/protowire"
)

// Messages are encoded in the protobuf wire format. Unknown fields are
// skipped when decoding so either side can grow new fields. The equivalent
// schema is:
//
//	message ServerMessage {
//	  uint64 seq = 1;
//	  repeated uint32 leds = 2 [packed = true];
//	  string pattern = 3;
//	  optional string error = 15;
//	}
//
//	message ClientMessage {
//	  string select = 1;
//	}

const (
	serverSeqField     protowire.Number = 1
	serverLEDsField    protowire.Number = 2
	serverPatternField protowire.Number = 3
	serverErrorField   protowire.Number = 15

	clientSelectField protowire.Number = 1
)

// ServerMessage is sent from the server to viewers: either a frame or, as
// the last message before the connection closes, an error.
type ServerMessage struct {
	// Seq is the frame sequence number, counting rendered frames.
	Seq uint64
	// LEDs is the frame.
	LEDs leddraw.LEDStrip
	// Pattern is the name of the pattern that rendered the frame.
	Pattern string
	// Error is set if the server is closing the connection because of an
	// error.
	Error *string
}

// MarshalAppend appends the encoded message to b.
func (m *ServerMessage) MarshalAppend(b []byte) []byte {
	if m.Seq != 0 {
		b = protowire.AppendTag(b, serverSeqField, protowire.VarintType)
		b = protowire.AppendVarint(b, m.Seq)
	}

	if len(m.LEDs) > 0 {
		var size int
		for _, led := range m.LEDs {
			size += protowire.SizeVarint(uint64(led.ToUint()))
		}

		b = protowire.AppendTag(b, serverLEDsField, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(size))
		for _, led := range m.LEDs {
			b = protowire.AppendVarint(b, uint64(led.ToUint()))
		}
	}

	if m.Pattern != "" {
		b = protowire.AppendTag(b, serverPatternField, protowire.BytesType)
		b = protowire.AppendString(b, m.Pattern)
	}

	if m.Error != nil {
		b = protowire.AppendTag(b, serverErrorField, protowire.BytesType)
		b = protowire.AppendString(b, *m.Error)
	}

	return b
}

// Unmarshal decodes b into m, replacing its contents.
func (m *ServerMessage) Unmarshal(b []byte) error {
	*m = ServerMessage{}

	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == serverSeqField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Seq = v
			return n, nil

		case num == serverLEDsField && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			for len(packed) > 0 {
				v, vn := protowire.ConsumeVarint(packed)
				if vn < 0 {
					return vn, nil
				}
				m.LEDs = append(m.LEDs, xcolor.RGBFromUint(uint32(v)))
				packed = packed[vn:]
			}
			return n, nil

		case num == serverLEDsField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.LEDs = append(m.LEDs, xcolor.RGBFromUint(uint32(v)))
			return n, nil

		case num == serverPatternField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.Pattern = v
			return n, nil

		case num == serverErrorField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.Error = &v
			return n, nil
		}

		return -1, errSkipField
	})
}

// ClientMessage is sent from viewers to the server.
type ClientMessage struct {
	// Select asks the server to play a pattern. It is either a pattern name
	// or a YAML step in the show file layout.
	Select string
}

// MarshalAppend appends the encoded message to b.
func (m *ClientMessage) MarshalAppend(b []byte) []byte {
	if m.Select != "" {
		b = protowire.AppendTag(b, clientSelectField, protowire.BytesType)
		b = protowire.AppendString(b, m.Select)
	}
	return b
}

// Unmarshal decodes b into m, replacing its contents.
func (m *ClientMessage) Unmarshal(b []byte) error {
	*m = ClientMessage{}

	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == clientSelectField && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			m.Select = v
			return n, nil
		}
		return -1, errSkipField
	})
}

var errSkipField = errors.New("skip field")

// consumeFields walks the fields of an encoded message. For each field, f
// consumes the value and returns its length, or returns errSkipField to
// have the value skipped.
func consumeFields(b []byte, f func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("invalid field tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		n, err := f(num, typ, b)
		if errors.Is(err, errSkipField) {
			n = protowire.ConsumeFieldValue(num, typ, b)
		} else if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}
