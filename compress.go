package jetdb

import (
	"bytes"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4"
)

// CompressAlgorithm selects how cached pages are held in memory.
type CompressAlgorithm uint16

const (
	CompSnappy CompressAlgorithm = iota // default
	CompNone
	CompLz4
)

func (c CompressAlgorithm) String() string {
	switch c {
	case CompSnappy:
		return "snappy"
	case CompLz4:
		return "lz4"
	}
	return "none"
}

// ParseCompressAlgorithm maps a config string to an algorithm. Unknown names
// fall back to CompNone.
func ParseCompressAlgorithm(s string) CompressAlgorithm {
	switch s {
	case "snappy", "":
		return CompSnappy
	case "lz4":
		return CompLz4
	}
	return CompNone
}

type Compressor func([]byte) []byte
type DeCompressor func([]byte) ([]byte, error)

var (
	SnappyCompress Compressor = func(in []byte) []byte {
		return snappy.Encode(nil, in)
	}
	SnappyDeCompress DeCompressor = func(in []byte) ([]byte, error) {
		return snappy.Decode(nil, in)
	}
)

var (
	// Lz4Compress returns nil when the frame could not be written; callers
	// keep the page uncompressed in that case.
	Lz4Compress Compressor = func(in []byte) []byte {
		buf := &bytes.Buffer{}
		writer := lz4.NewWriter(buf)
		writer.NoChecksum = true
		if _, err := writer.Write(in); err != nil {
			return nil
		}
		if err := writer.Close(); err != nil {
			return nil
		}
		return buf.Bytes()
	}

	Lz4DeCompress DeCompressor = func(in []byte) ([]byte, error) {
		buf := &bytes.Buffer{}
		reader := lz4.NewReader(bytes.NewReader(in))
		_, err := buf.ReadFrom(reader)
		return buf.Bytes(), err
	}
)

func codecFor(alg CompressAlgorithm) (Compressor, DeCompressor) {
	switch alg {
	case CompSnappy:
		return SnappyCompress, SnappyDeCompress
	case CompLz4:
		return Lz4Compress, Lz4DeCompress
	}
	return nil, nil
}
