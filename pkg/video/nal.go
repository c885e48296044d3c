package video

import "bytes"

// maxBufferSize bounds buffered H264 between keyframes.
const maxBufferSize = 8 << 20

const nalTypeSPS = 7

var startCode = []byte{0, 0, 0, 1}

// nalBuffer accumulates Annex-B NAL units from the latest SPS onward, so a
// decode always starts with parameter sets and a keyframe.
type nalBuffer struct {
	buf     bytes.Buffer
	haveSPS bool
}

// Write appends Annex-B data produced by the depacketizer.
func (b *nalBuffer) Write(annexB []byte) {
	for _, nal := range splitAnnexB(annexB) {
		if len(nal) == 0 {
			continue
		}
		if nal[0]&0x1f == nalTypeSPS {
			b.buf.Reset()
			b.haveSPS = true
		}
		if !b.haveSPS {
			continue
		}
		if b.buf.Len()+len(nal)+len(startCode) > maxBufferSize {
			b.buf.Reset()
			b.haveSPS = false
			continue
		}
		b.buf.Write(startCode)
		b.buf.Write(nal)
	}
}

// Bytes returns the buffered stream.
func (b *nalBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

// Len returns the buffered size.
func (b *nalBuffer) Len() int {
	return b.buf.Len()
}

// splitAnnexB splits a byte stream on 3- and 4-byte start codes.
func splitAnnexB(data []byte) [][]byte {
	var nals [][]byte
	start := -1
	for i := 0; i+2 < len(data); {
		if data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 {
			if start >= 0 {
				end := i
				if end > start && data[end-1] == 0 {
					end--
				}
				nals = append(nals, data[start:end])
			}
			i += 3
			start = i
			continue
		}
		i++
	}
	if start >= 0 && start < len(data) {
		nals = append(nals, data[start:])
	}
	return nals
}
