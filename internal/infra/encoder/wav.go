package encoder

import (
	"bytes"
	"encoding/binary"

	"voice-recorder/internal/application"
)

// unknownSize marks RIFF and data lengths that are not known while
// streaming. PatchWAVSizes replaces them once the artifact is complete.
const unknownSize = 0xFFFFFFFF

type wavCodec struct{}

func newWAVCodec() codec {
	return wavCodec{}
}

func (wavCodec) header(f application.AudioFormat) []byte {
	var buf bytes.Buffer

	blockAlign := f.Channels * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(unknownSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(f.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(unknownSize))

	return buf.Bytes()
}

func (wavCodec) encode(dst *bytes.Buffer, frames []int16) {
	var sample [2]byte
	for _, s := range frames {
		binary.LittleEndian.PutUint16(sample[:], uint16(s))
		dst.Write(sample[:])
	}
}

// PatchWAVSizes returns a copy of a streamed WAV file with the RIFF and data
// chunk sizes filled in. Input that is not a RIFF/WAVE file is returned
// unchanged.
func PatchWAVSizes(data []byte) []byte {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return data
	}

	out := make([]byte, len(data))
	copy(out, data)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))

	offset := 12
	for offset+8 <= len(out) {
		id := string(out[offset : offset+4])
		size := binary.LittleEndian.Uint32(out[offset+4 : offset+8])
		if id == "data" {
			binary.LittleEndian.PutUint32(out[offset+4:offset+8], uint32(len(out)-offset-8))
			break
		}
		if size == unknownSize {
			break
		}
		offset += 8 + int(size) + int(size%2)
	}
	return out
}
