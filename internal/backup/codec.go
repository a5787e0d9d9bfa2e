package backup

// documentCodec applies the configured compression and encryption to a
// serialized snapshot document before upload, and reverses both on download.
// The compression algorithm is recorded in the blob key's suffix so restore and
// verification do not depend on the current configuration matching the one the
// snapshot was written with.
type documentCodec struct {
	compression CompressionConfig
	compressor  *CompressionManager
	encryptor   *EncryptionManager
}

func newDocumentCodec(compression CompressionConfig, encryption *EncryptionConfig) *documentCodec {
	return &documentCodec{
		compression: compression,
		compressor:  NewCompressionManager(),
		encryptor:   NewEncryptionManager(encryption),
	}
}

// Encode compresses and encrypts a snapshot document, returning the payload and
// the filename suffix identifying the compression codec.
func (dc *documentCodec) Encode(data []byte) ([]byte, string, error) {
	compressed, err := dc.compressor.Compress(data, dc.compression.Algorithm, dc.compression.Level)
	if err != nil {
		return nil, "", err
	}

	encrypted, err := dc.encryptor.Encrypt(compressed)
	if err != nil {
		return nil, "", err
	}

	return encrypted, dc.compression.Algorithm.FileExtension(), nil
}

// Decode reverses Encode for a blob downloaded under the given key.
func (dc *documentCodec) Decode(filename string, data []byte) ([]byte, error) {
	decrypted, err := dc.encryptor.Decrypt(data)
	if err != nil {
		return nil, err
	}

	return dc.compressor.Decompress(decrypted, CompressionTypeForFilename(filename))
}
