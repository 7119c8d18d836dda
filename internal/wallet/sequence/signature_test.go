package sequence_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledSignature(b byte) []byte {
	return bytes.Repeat([]byte{b}, sequence.SignatureLength)
}

func addr(s string) *common.Address {
	a := common.HexToAddress(s)
	return &a
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []sequence.Signature{
		{Version: 0, Threshold: 1, Signers: []sequence.SignerEntry{
			{Unrecovered: true, Weight: 1, Signature: filledSignature(0x11)},
		}},
		{Version: 1, Threshold: 2, Signers: []sequence.SignerEntry{
			{IsDynamic: true, Weight: 63, Signature: filledSignature(0x22), Address: addr("0x00000000000000000000000000000000000000aa")},
			{Unrecovered: true, Weight: 1, Signature: filledSignature(0x33), Address: addr("0x00000000000000000000000000000000000000bb")},
		}},
		{Version: 0, Threshold: 2, Signers: []sequence.SignerEntry{
			{Unrecovered: true, Weight: 1, Signature: filledSignature(0x44)},
			{Unrecovered: true, Weight: 2, Signature: filledSignature(0x55), Address: addr("0x1000000000000000000000000000000000000001")},
		}},
		{Version: 3, Threshold: 0, Signers: []sequence.SignerEntry{}},
	}

	for _, sig := range cases {
		encoded, err := sequence.EncodeSignature(sig)
		require.NoError(t, err)

		decoded, err := sequence.DecodeSignature(encoded)
		require.NoError(t, err)
		assert.Equal(t, sig, decoded)
	}
}

func TestEncodeSignatureLayout(t *testing.T) {
	sig := sequence.Signature{Version: 0, Threshold: 2, Signers: []sequence.SignerEntry{
		{IsDynamic: true, Unrecovered: true, Weight: 5, Signature: filledSignature(0x01), Address: addr("0x00000000000000000000000000000000000000ff")},
	}}

	encoded, err := sequence.EncodeSignature(sig)
	require.NoError(t, err)
	require.Len(t, encoded, 4+1+sequence.SignatureLength+sequence.AddressLength)

	assert.Equal(t, []byte{0x00, 0x02, 0x00, 0x01}, encoded[:4])
	assert.Equal(t, byte(5<<2|0x02|0x01), encoded[4])
	assert.Equal(t, byte(0xff), encoded[len(encoded)-1])
}

func TestEncodeSignatureMasksWeight(t *testing.T) {
	sig := sequence.Signature{Signers: []sequence.SignerEntry{{Weight: 0xff, Signature: filledSignature(0x01)}}}

	encoded, err := sequence.EncodeSignature(sig)
	require.NoError(t, err)
	assert.Equal(t, byte(0xfc), encoded[4])

	decoded, err := sequence.DecodeSignature(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint8(63), decoded.Signers[0].Weight)
}

func TestEncodeSignatureRejectsAmbiguousOrder(t *testing.T) {
	sig := sequence.Signature{Signers: []sequence.SignerEntry{
		{Signature: filledSignature(0x01), Address: addr("0x01")},
		{Signature: filledSignature(0x02)},
	}}

	_, err := sequence.EncodeSignature(sig)
	assert.Error(t, err)
}

func TestDecodeSignatureTruncated(t *testing.T) {
	sig := sequence.Signature{Threshold: 1, Signers: []sequence.SignerEntry{{Signature: filledSignature(0x01)}}}
	encoded, err := sequence.EncodeSignature(sig)
	require.NoError(t, err)

	_, err = sequence.DecodeSignature(encoded[:len(encoded)-1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")

	_, err = sequence.DecodeSignature([]byte{0x00, 0x01})
	assert.Error(t, err)

	_, err = sequence.DecodeSignature(append(encoded, 0x01, 0x02))
	assert.Error(t, err)
}

func TestDecodeSignatureHex(t *testing.T) {
	sig := sequence.Signature{Threshold: 1, Signers: []sequence.SignerEntry{{Unrecovered: true, Weight: 1, Signature: filledSignature(0x09)}}}
	encoded, err := sequence.EncodeSignatureHex(sig)
	require.NoError(t, err)

	withPrefix, err := sequence.DecodeSignatureHex(encoded)
	require.NoError(t, err)
	withoutPrefix, err := sequence.DecodeSignatureHex(strings.TrimPrefix(encoded, "0x"))
	require.NoError(t, err)
	assert.Equal(t, withPrefix, withoutPrefix)
}

func relayerPayload(t *testing.T, withHeader bool) string {
	t.Helper()

	encoded, err := sequence.EncodeSignature(sequence.Signature{Threshold: 1, Signers: []sequence.SignerEntry{
		{Unrecovered: true, Weight: 1, Signature: filledSignature(0xee)},
	}})
	require.NoError(t, err)

	if withHeader {
		return hexutil.Encode(encoded)
	}

	return hexutil.Encode(encoded[2:])
}

func TestPackSignatures(t *testing.T) {
	eoaSig := bytes.Repeat([]byte{0xab}, sequence.ECDSASignatureLength)
	eoaAddress := "0x7fa9385be102ac3eac297483dd6233d62b3e1496"

	for _, withHeader := range []bool{true, false} {
		packed, err := sequence.PackSignatures(eoaSig, eoaAddress, relayerPayload(t, withHeader))
		require.NoError(t, err)

		decoded, err := sequence.DecodeSignatureHex(packed)
		require.NoError(t, err)

		assert.Equal(t, uint8(0), decoded.Version)
		assert.Equal(t, uint8(2), decoded.Threshold)
		require.Len(t, decoded.Signers, 2)

		relayer := decoded.Signers[0]
		assert.Nil(t, relayer.Address)
		assert.Equal(t, filledSignature(0xee), relayer.Signature)

		eoa := decoded.Signers[1]
		require.NotNil(t, eoa.Address)
		assert.Equal(t, common.HexToAddress(eoaAddress), *eoa.Address)
		assert.True(t, eoa.Unrecovered)
		assert.False(t, eoa.IsDynamic)
		assert.Equal(t, uint8(1), eoa.Weight)
		assert.Equal(t, append(append([]byte{}, eoaSig...), sequence.EthSignFlag), eoa.Signature)
	}
}

func TestPackSignaturesDeterministicAndSorted(t *testing.T) {
	relayerAddress := common.HexToAddress("0xffffffffffffffffffffffffffffffffffffff00")
	lowRelayer, err := sequence.EncodeSignatureHex(sequence.Signature{Threshold: 1, Signers: []sequence.SignerEntry{
		{Unrecovered: true, Weight: 1, Signature: filledSignature(0x01), Address: &relayerAddress},
	}})
	require.NoError(t, err)

	eoaSig := bytes.Repeat([]byte{0x02}, sequence.ECDSASignatureLength)
	eoaAddress := "0x0000000000000000000000000000000000000abc"

	first, err := sequence.PackSignatures(eoaSig, eoaAddress, lowRelayer)
	require.NoError(t, err)
	second, err := sequence.PackSignatures(eoaSig, eoaAddress, lowRelayer)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	decoded, err := sequence.DecodeSignatureHex(first)
	require.NoError(t, err)
	require.Len(t, decoded.Signers, 2)
	assert.Equal(t, common.HexToAddress(eoaAddress), *decoded.Signers[0].Address)
	assert.Equal(t, relayerAddress, *decoded.Signers[1].Address)
}

func TestPackSignaturesValidatesInput(t *testing.T) {
	eoaSig := bytes.Repeat([]byte{0x02}, sequence.ECDSASignatureLength)

	_, err := sequence.PackSignatures(eoaSig, "not-an-address", relayerPayload(t, true))
	assert.Error(t, err)

	_, err = sequence.PackSignatures(eoaSig[:10], "0x0000000000000000000000000000000000000abc", relayerPayload(t, true))
	assert.Error(t, err)

	_, err = sequence.PackSignatures(eoaSig, "0x0000000000000000000000000000000000000abc", "0x0102")
	assert.Error(t, err)
}
