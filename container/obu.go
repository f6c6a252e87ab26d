package container

// OBU types, AV1 bitstream section 6.2.2.
const (
	OBUTypeSequenceHeader = 1
	OBUTypeTemporalDelim  = 2
	OBUTypeFrameHeader    = 3
	OBUTypeFrame          = 6
)

const (
	frameTypeKey = 0
)

// IsKeyframe reports whether the temporal unit contains a sequence header
// followed by a key frame header. Sequence headers are repeated at random
// access points, so this is a good enough approximation for seeking.
func IsKeyframe(data []byte) bool {
	seenSequenceHeader := false
	for offset := 0; offset < len(data); {
		header := data[offset]
		obuType := (header >> 3) & 0x0F
		hasExtension := (header>>2)&0x01 == 1
		hasSizeField := (header>>1)&0x01 == 1
		offset++
		if hasExtension {
			offset++
		}

		size := len(data) - offset
		if hasSizeField {
			size, offset = readLEB128(data, offset)
		}
		if offset > len(data) || size < 0 {
			return false
		}

		switch obuType {
		case OBUTypeSequenceHeader:
			seenSequenceHeader = true
		case OBUTypeFrameHeader, OBUTypeFrame:
			if !seenSequenceHeader || size == 0 || offset >= len(data) {
				return false
			}
			// show_existing_frame(1) then frame_type(2), assuming
			// reduced_still_picture_header == 0
			b := data[offset]
			if b&0x80 != 0 {
				return false
			}
			return (b>>5)&0x03 == frameTypeKey
		}
		offset += size
	}
	return false
}

func readLEB128(data []byte, offset int) (int, int) {
	value := 0
	for i := 0; i < 8 && offset < len(data); i++ {
		b := data[offset]
		offset++
		value |= int(b&0x7F) << (i * 7)
		if b&0x80 == 0 {
			break
		}
	}
	return value, offset
}
