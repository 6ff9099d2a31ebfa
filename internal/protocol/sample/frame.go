package sample

import "github.com/muurk/commsframe/internal/protocol"

// SyncPrefix starts every frame.
var SyncPrefix = []byte{0xAB, 0xCD}

// Factory creates Msg1, Msg2 and Msg3 by id.
var Factory = protocol.NewFactory().MustRegister(
	func() protocol.Message { return NewMsg1() },
	func() protocol.Message { return NewMsg2() },
	func() protocol.Message { return NewMsg3() },
)

// Layers returns the frame layout, outer to inner:
//
//	[AB CD][size u16 BE][id u8][payload][crc16-ccitt BE]
//
// The size counts id and payload. The checksum covers size, id and payload.
func Layers() []protocol.Layer {
	return []protocol.Layer{
		&protocol.SyncLayer{Prefix: SyncPrefix},
		&protocol.ChecksumLayer{Alg: protocol.CRC16CCITT, Order: protocol.BigEndian},
		&protocol.SizeLayer{Width: 2, Order: protocol.BigEndian},
		&protocol.IDLayer{Width: 1},
		&protocol.PayloadLayer{},
	}
}

// NewFrame builds the frame with typed dispatch. Extra options are applied
// after the defaults.
func NewFrame(opts ...protocol.Option) *protocol.Frame {
	opts = append([]protocol.Option{protocol.WithDispatch(Dispatch)}, opts...)
	f, err := protocol.NewFrame("sample", Factory, Layers(), opts...)
	if err != nil {
		panic(err)
	}
	return f
}
