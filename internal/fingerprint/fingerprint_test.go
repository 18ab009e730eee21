package fingerprint

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderFingerprintDeterministic(t *testing.T) {
	header := make([]byte, 256)
	for i := range header {
		header[i] = byte(i)
	}

	a := HeaderFingerprint(header)
	b := HeaderFingerprint(header)
	assert.Equal(t, a, b)
}

func TestHeaderFingerprintDetectsChange(t *testing.T) {
	original := make([]byte, 256)
	for i := range original {
		original[i] = byte(i)
	}
	changed := make([]byte, 256)
	copy(changed, original)
	changed[100]++

	assert.NotEqual(t, HeaderFingerprint(original), HeaderFingerprint(changed))
}

func TestHeaderFingerprintEmpty(t *testing.T) {
	assert.Equal(t, uint32(0xffffffff), HeaderFingerprint(nil))
}

func TestChecksumMatchesStandardCRC32(t *testing.T) {
	data := []byte("a chart catalog entry")
	assert.Equal(t, crc32.ChecksumIEEE(data), Checksum(data))
}

// TestHeaderFingerprintNonAlignedLengthDoesNotPanic covers a short or
// truncated read from a scanned file, which need not land on a 4-byte
// boundary; HeaderFingerprint must fall back rather than read past the
// end of the buffer.
func TestHeaderFingerprintNonAlignedLengthDoesNotPanic(t *testing.T) {
	for _, n := range []int{1, 3, 5, 255} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		var got uint32
		assert.NotPanics(t, func() {
			got = HeaderFingerprint(data)
		})
		assert.Equal(t, crc32.ChecksumIEEE(data), got, "length %d falls back to the IEEE checksum", n)
	}
}
