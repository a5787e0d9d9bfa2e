package backup

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType identifies a snapshot document compression algorithm.
type CompressionType string

const (
	CompressionTypeNone CompressionType = "NONE"
	CompressionTypeGzip CompressionType = "GZIP"
	CompressionTypeLZ4  CompressionType = "LZ4"
	CompressionTypeZstd CompressionType = "ZSTD"
)

func isValidCompressionType(ct CompressionType) bool {
	switch ct {
	case CompressionTypeNone, CompressionTypeGzip, CompressionTypeLZ4, CompressionTypeZstd:
		return true
	default:
		return false
	}
}

// FileExtension returns the filename suffix appended to snapshot keys compressed
// with this algorithm. Empty for NONE.
func (ct CompressionType) FileExtension() string {
	switch ct {
	case CompressionTypeGzip:
		return ".gz"
	case CompressionTypeLZ4:
		return ".lz4"
	case CompressionTypeZstd:
		return ".zst"
	default:
		return ""
	}
}

// CompressionTypeForFilename infers the compression algorithm from a snapshot
// blob key written by this system.
func CompressionTypeForFilename(filename string) CompressionType {
	switch {
	case len(filename) > 3 && filename[len(filename)-3:] == ".gz":
		return CompressionTypeGzip
	case len(filename) > 4 && filename[len(filename)-4:] == ".lz4":
		return CompressionTypeLZ4
	case len(filename) > 4 && filename[len(filename)-4:] == ".zst":
		return CompressionTypeZstd
	default:
		return CompressionTypeNone
	}
}

// Compressor interface defines compression operations
type Compressor interface {
	Compress(data []byte, level int) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	GetAlgorithm() CompressionType
	GetDefaultLevel() int
}

// CompressionManager manages compression operations
type CompressionManager struct {
	compressors map[CompressionType]Compressor
}

// NewCompressionManager creates a new compression manager
func NewCompressionManager() *CompressionManager {
	cm := &CompressionManager{
		compressors: make(map[CompressionType]Compressor),
	}

	cm.compressors[CompressionTypeGzip] = &GzipCompressor{}
	cm.compressors[CompressionTypeLZ4] = &LZ4Compressor{}
	cm.compressors[CompressionTypeZstd] = &ZstdCompressor{}

	return cm
}

// Compress compresses data using the specified algorithm and level
func (cm *CompressionManager) Compress(data []byte, algorithm CompressionType, level int) ([]byte, error) {
	if algorithm == CompressionTypeNone {
		return data, nil
	}

	compressor, exists := cm.compressors[algorithm]
	if !exists {
		return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}

	if level <= 0 {
		level = compressor.GetDefaultLevel()
	}

	return compressor.Compress(data, level)
}

// Decompress decompresses data using the specified algorithm
func (cm *CompressionManager) Decompress(data []byte, algorithm CompressionType) ([]byte, error) {
	if algorithm == CompressionTypeNone {
		return data, nil
	}

	compressor, exists := cm.compressors[algorithm]
	if !exists {
		return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}

	return compressor.Decompress(data)
}

// GzipCompressor implements Compressor using the standard gzip codec.
type GzipCompressor struct{}

func (c *GzipCompressor) Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer

	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, NewCompressionError("failed to create gzip writer", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, NewCompressionError("failed to write gzip data", err)
	}
	if err := writer.Close(); err != nil {
		return nil, NewCompressionError("failed to finalize gzip stream", err)
	}

	return buf.Bytes(), nil
}

func (c *GzipCompressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewCompressionError("failed to create gzip reader", err)
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewCompressionError("failed to read gzip data", err)
	}

	return decompressed, nil
}

func (c *GzipCompressor) GetAlgorithm() CompressionType { return CompressionTypeGzip }
func (c *GzipCompressor) GetDefaultLevel() int          { return gzip.DefaultCompression }

// LZ4Compressor implements Compressor using the lz4 codec.
type LZ4Compressor struct{}

// lz4Levels maps configured integer levels to the codec's discrete constants.
// Index 0 is the fast mode used when no level is configured.
var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func lz4Level(level int) lz4.CompressionLevel {
	if level <= 0 {
		return lz4.Fast
	}
	if level >= len(lz4Levels) {
		return lz4.Level9
	}
	return lz4Levels[level]
}

func (c *LZ4Compressor) Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer

	writer := lz4.NewWriter(&buf)
	if err := writer.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
		return nil, NewCompressionError("failed to set lz4 compression level", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, NewCompressionError("failed to write lz4 data", err)
	}
	if err := writer.Close(); err != nil {
		return nil, NewCompressionError("failed to finalize lz4 stream", err)
	}

	return buf.Bytes(), nil
}

func (c *LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewCompressionError("failed to read lz4 data", err)
	}

	return decompressed, nil
}

func (c *LZ4Compressor) GetAlgorithm() CompressionType { return CompressionTypeLZ4 }
func (c *LZ4Compressor) GetDefaultLevel() int          { return 0 }

// ZstdCompressor implements Compressor using the zstd codec.
type ZstdCompressor struct{}

func (c *ZstdCompressor) Compress(data []byte, level int) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, NewCompressionError("failed to create zstd encoder", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

func (c *ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, NewCompressionError("failed to create zstd decoder", err)
	}
	defer decoder.Close()

	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, NewCompressionError("failed to read zstd data", err)
	}

	return decompressed, nil
}

func (c *ZstdCompressor) GetAlgorithm() CompressionType { return CompressionTypeZstd }
func (c *ZstdCompressor) GetDefaultLevel() int          { return 3 }
