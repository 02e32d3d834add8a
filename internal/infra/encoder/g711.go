package encoder

import (
	"bytes"
	"encoding/binary"

	"github.com/zaf/g711"

	"voice-recorder/internal/application"
)

// Sun/NeXT AU encodings.
const (
	auEncodingULaw = 1
	auEncodingALaw = 27
)

// g711Codec writes 8-bit G.711 samples in an AU container. AU allows the
// data size to stay "unknown", so the stream needs no patching.
type g711Codec struct {
	auEncoding uint32
	compand    func(int16) uint8
}

func newULawCodec() codec {
	return g711Codec{auEncoding: auEncodingULaw, compand: g711.EncodeUlawFrame}
}

func newALawCodec() codec {
	return g711Codec{auEncoding: auEncodingALaw, compand: g711.EncodeAlawFrame}
}

func (c g711Codec) header(f application.AudioFormat) []byte {
	var buf bytes.Buffer
	buf.WriteString(".snd")
	binary.Write(&buf, binary.BigEndian, uint32(24))
	binary.Write(&buf, binary.BigEndian, uint32(unknownSize))
	binary.Write(&buf, binary.BigEndian, c.auEncoding)
	binary.Write(&buf, binary.BigEndian, uint32(f.SampleRate))
	binary.Write(&buf, binary.BigEndian, uint32(f.Channels))
	return buf.Bytes()
}

func (c g711Codec) encode(dst *bytes.Buffer, frames []int16) {
	for _, s := range frames {
		dst.WriteByte(c.compand(s))
	}
}
