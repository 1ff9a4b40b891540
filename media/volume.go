package media

import "io"

// volumeReader wraps the PCM source and applies volume with frame alignment
type volumeReader struct {
	reader  io.Reader
	volume  func() float64
	residue []byte // incomplete PCM frame from the previous read (max 3 bytes)
}

func newVolumeReader(r io.Reader, volume func() float64) *volumeReader {
	return &volumeReader{
		reader:  r,
		volume:  volume,
		residue: make([]byte, 0, frameSize),
	}
}

func (vr *volumeReader) Read(p []byte) (n int, err error) {
	offset := 0
	if len(vr.residue) > 0 {
		offset = copy(p, vr.residue)
		vr.residue = vr.residue[:0]
	}

	n, err = vr.reader.Read(p[offset:])
	n += offset

	if n > 0 {
		alignedLen := (n / frameSize) * frameSize
		if alignedLen < n {
			vr.residue = append(vr.residue, p[alignedLen:n]...)
			n = alignedLen
		}

		if n > 0 {
			applyVolume(p[:n], vr.volume())
		}
	}
	return n, err
}

func applyVolume(p []byte, volume float64) {
	if volume >= 1 {
		return
	}
	for i := 0; i+1 < len(p); i += bytesPerSample {
		sample := int16(uint16(p[i]) | uint16(p[i+1])<<8)
		sample = int16(float64(sample) * volume)
		p[i] = byte(sample)
		p[i+1] = byte(sample >> 8)
	}
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
