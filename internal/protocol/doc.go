// Package protocol implements a layered binary message codec.
//
// A protocol is described by three things: messages, which are ordered lists
// of typed fields; a frame, which is an ordered list of layers wrapping the
// serialized message; and a dispatch function that delivers each decoded
// message to the right method of a handler.
//
// # Fields
//
// Fields have a fixed encoding determined by their definition:
//   - Int[T]: fixed width integer with byte order, serialization offset,
//     optional scaling and a valid range
//   - Enum[T]: an Int restricted to a set of named values
//   - String: byte string with a 1 or 2 byte length prefix
//   - Data: raw bytes, fixed length or length-prefixed
//   - Float[T]: IEEE 754 value of 4 or 8 bytes with an optional range
//   - Set: named flag bits in an integer; unnamed bits must stay zero
//   - Bitfield: small unsigned members packed into one integer
//   - List: elements of one kind delimited by a count prefix, a byte
//     length prefix or a fixed count
//   - Composite: any Field exposing ordered Members; EncodeMembers and
//     DecodeMembers implement the member walk
//
// Setting or decoding a value outside the valid range fails with a
// *RangeError and leaves the field unchanged.
//
// # Frames
//
// Layers are listed outer to inner. A typical frame is:
//
//	[sync][size][id][payload][checksum]
//
// built as:
//
//	frame, err := protocol.NewFrame("example", factory, []protocol.Layer{
//	    &protocol.SyncLayer{Prefix: []byte{0xab, 0xcd}},
//	    &protocol.ChecksumLayer{Alg: protocol.CRC16CCITT},
//	    &protocol.SizeLayer{Width: 2},
//	    &protocol.IDLayer{Width: 1},
//	    &protocol.PayloadLayer{},
//	})
//
// The checksum layer here covers size, id and payload. The payload layer
// must be last, and a frame has exactly one id layer and at most one size
// layer. Any other type implementing Layer may appear in the list.
//
// # Decoding a stream
//
// ProcessInputData decodes every complete frame in a buffer and returns the
// number of bytes consumed:
//
//	n, err := frame.ProcessInputData(buf, handler)
//	buf = buf[n:]
//	if err != nil && !errors.Is(err, protocol.ErrTruncated) {
//	    log.Printf("corrupt input: %v", err)
//	}
//
// Ids the factory does not know become *UnknownMessage values and go to the
// handler's HandleMessage. That is not an error.
//
// Corrupt frames (sync, size or checksum failures, out of range values) are
// reported as *FrameError values joined into the returned error. Whether
// decoding continues past them depends on the frame's ResyncPolicy.
package protocol
