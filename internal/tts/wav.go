package tts

import (
	"encoding/binary"
	"fmt"
	"os"
)

// wavFormat describes the PCM layout of a rendered artifact. All
// chunks produced by one backend invocation share a format, which is
// what makes plain sample concatenation valid.
type wavFormat struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
}

// defaultWavFormat is used when an artifact consists only of silence.
var defaultWavFormat = wavFormat{SampleRate: 22050, Channels: 1, BitsPerSample: 16}

// readWAV parses a RIFF/WAVE file and returns its format and raw PCM
// samples. Only uncompressed PCM is supported; that is what every
// backend in the chain produces.
func readWAV(path string) (wavFormat, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return wavFormat{}, nil, err
	}
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return wavFormat{}, nil, fmt.Errorf("%s: not a RIFF wave file", path)
	}

	var f wavFormat
	var data []byte
	haveFmt := false

	pos := 12
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(raw) {
			size = len(raw) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return wavFormat{}, nil, fmt.Errorf("%s: short fmt chunk", path)
			}
			if audioFormat := binary.LittleEndian.Uint16(raw[body : body+2]); audioFormat != 1 {
				return wavFormat{}, nil, fmt.Errorf("%s: unsupported audio format %d", path, audioFormat)
			}
			f.Channels = binary.LittleEndian.Uint16(raw[body+2 : body+4])
			f.SampleRate = binary.LittleEndian.Uint32(raw[body+4 : body+8])
			f.BitsPerSample = binary.LittleEndian.Uint16(raw[body+14 : body+16])
			haveFmt = true
		case "data":
			data = raw[body : body+size]
		}

		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !haveFmt || data == nil {
		return wavFormat{}, nil, fmt.Errorf("%s: missing fmt or data chunk", path)
	}
	return f, data, nil
}

// writeWAV writes PCM samples with a canonical 44-byte header.
func writeWAV(path string, f wavFormat, data []byte) error {
	blockAlign := f.Channels * f.BitsPerSample / 8
	byteRate := f.SampleRate * uint32(blockAlign)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(data)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], f.Channels)
	binary.LittleEndian.PutUint32(header[24:28], f.SampleRate)
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], f.BitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(data)))

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(header); err != nil {
		out.Close()
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// silence returns ms milliseconds of zeroed samples in the given
// format, rounded down to a whole sample frame.
func silence(f wavFormat, ms int) []byte {
	blockAlign := int(f.Channels) * int(f.BitsPerSample) / 8
	if blockAlign == 0 {
		return nil
	}
	frames := int(f.SampleRate) * ms / 1000
	return make([]byte, frames*blockAlign)
}
