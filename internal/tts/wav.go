package tts

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// WAVInfo describes a PCM WAV payload.
type WAVInfo struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	DataBytes     int
	Duration      time.Duration
}

// MeasureWAV walks the RIFF chunks of data and computes the exact playing time
// from the data chunk size and the byte rate.
func MeasureWAV(data []byte) (WAVInfo, error) {
	var info WAVInfo
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return info, errors.New("not a RIFF/WAVE payload")
	}

	var byteRate int
	haveFmt, haveData := false, false
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return info, errors.New("truncated fmt chunk")
			}
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			byteRate = int(binary.LittleEndian.Uint32(data[body+8:]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFmt = true
		case "data":
			// Streamed WAVs may carry a placeholder size; trust the bytes present.
			if size == 0 || body+size > len(data) {
				size = len(data) - body
			}
			info.DataBytes = size
			haveData = true
		}

		if haveFmt && haveData {
			break
		}
		pos = body + size + size%2
	}

	if !haveFmt {
		return info, errors.New("missing fmt chunk")
	}
	if !haveData {
		return info, errors.New("missing data chunk")
	}
	if byteRate <= 0 {
		return info, fmt.Errorf("invalid byte rate %d", byteRate)
	}

	info.Duration = time.Duration(int64(info.DataBytes) * int64(time.Second) / int64(byteRate))
	return info, nil
}
