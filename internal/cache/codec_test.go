package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/content-cache/content-cache/internal/content"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rec := sampleRecord(content.NewID(1, 7, 100), "hello")
	frame, err := Encode(rec)
	require.NoError(t, err)
	assert.Equal(t, frameMagic, string(frame[:4]))

	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestEncodeIsDeterministic(t *testing.T) {
	rec := sampleRecord(content.NewID(1, 7, 100), "hello")
	for i := 0; i < 20; i++ {
		rec.SetComponent("c"+string(rune('a'+i)), "k", "v")
	}
	first, err := Encode(rec)
	require.NoError(t, err)
	second, err := Encode(rec)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecodeRejectsDamage(t *testing.T) {
	frame, err := Encode(sampleRecord(content.NewID(1, 7, 100), "hello"))
	require.NoError(t, err)

	flipped := append([]byte(nil), frame...)
	flipped[len(flipped)-2] ^= 0xff

	badMagic := append([]byte(nil), frame...)
	copy(badMagic, "XXXX")

	cases := map[string][]byte{
		"empty":     {},
		"header":    frame[:frameHeaderLen-1],
		"truncated": frame[:len(frame)-1],
		"flipped":   flipped,
		"magic":     badMagic,
		"extended":  append(append([]byte(nil), frame...), '}'),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	a := sampleRecord(content.NewID(1, 1, 100), "same")
	b := sampleRecord(content.NewID(1, 1, 100), "same")
	c := sampleRecord(content.NewID(1, 1, 100), "different")

	sumA, sizeA, err := Fingerprint(a)
	require.NoError(t, err)
	sumB, _, err := Fingerprint(b)
	require.NoError(t, err)
	sumC, _, err := Fingerprint(c)
	require.NoError(t, err)

	assert.Equal(t, sumA, sumB)
	assert.NotEqual(t, sumA, sumC)
	assert.Greater(t, sizeA, frameHeaderLen)
}
