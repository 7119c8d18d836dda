// Package sequence implements the multi-signer signature format and the meta-transaction
// encoding understood by the smart contract wallet.
package sequence

import (
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

const (
	// SignatureLength is the width of a signer slot: r || s || v plus the trailing signature type flag.
	SignatureLength = 66
	// ECDSASignatureLength is the width of a plain r || s || v signature.
	ECDSASignatureLength = 65
	AddressLength        = common.AddressLength

	// EthSignFlag marks a signature produced over an EIP-191 prefixed digest.
	EthSignFlag byte = 0x02

	headerLength     = 4
	signerSlotLength = 1 + SignatureLength
	weightMask       = 0x3f
	flagDynamic      = 0x01
	flagUnrecovered  = 0x02
	weightShift      = 2
	maxSigners       = 0xff
)

// SignerEntry is one signer part of a Signature. Address is nil for entries issued without one.
type SignerEntry struct {
	IsDynamic   bool
	Unrecovered bool
	Weight      uint8
	Signature   []byte
	Address     *common.Address
}

// Signature is the wallet signature envelope.
type Signature struct {
	Version   uint8
	Threshold uint8
	Signers   []SignerEntry
}

func (e SignerEntry) flags() byte {
	var flags byte
	if e.IsDynamic {
		flags |= flagDynamic
	}
	if e.Unrecovered {
		flags |= flagUnrecovered
	}

	return flags | (e.Weight&weightMask)<<weightShift
}

// EncodeSignature serialises sig as version || threshold || 0x00 || count || signers.
// Signers without an address must precede signers with one so that decoding is unambiguous.
func EncodeSignature(sig Signature) ([]byte, error) {
	if len(sig.Signers) > maxSigners {
		return nil, errors.Errorf("too many signers: %d", len(sig.Signers))
	}

	out := make([]byte, 0, headerLength+len(sig.Signers)*(signerSlotLength+AddressLength))
	out = append(out, sig.Version, sig.Threshold, 0x00, byte(len(sig.Signers)))

	seenAddress := false
	for i, signer := range sig.Signers {
		if len(signer.Signature) != SignatureLength {
			return nil, errors.Errorf("signer %d: signature must be %d bytes, got %d", i, SignatureLength, len(signer.Signature))
		}

		if signer.Address == nil && seenAddress {
			return nil, errors.Errorf("signer %d: signers without address must come before addressed signers", i)
		}

		out = append(out, signer.flags())
		out = append(out, signer.Signature...)
		if signer.Address != nil {
			seenAddress = true
			out = append(out, signer.Address.Bytes()...)
		}
	}

	return out, nil
}

// EncodeSignatureHex is EncodeSignature rendered as 0x-prefixed hex.
func EncodeSignatureHex(sig Signature) (string, error) {
	encoded, err := EncodeSignature(sig)
	if err != nil {
		return "", err
	}

	return hexutil.Encode(encoded), nil
}

// DecodeSignature is the inverse of EncodeSignature. The number of addressed signers is derived from the
// payload length; those are the trailing signers.
func DecodeSignature(data []byte) (Signature, error) {
	if len(data) < headerLength {
		return Signature{}, errors.Errorf("signature too short: %d bytes", len(data))
	}

	if data[2] != 0x00 {
		return Signature{}, errors.Errorf("invalid reserved byte 0x%02x", data[2])
	}

	count := int(data[3])
	body := len(data) - headerLength - count*signerSlotLength
	if body < 0 {
		return Signature{}, errors.Errorf("signature truncated: %d signers need at least %d bytes, got %d",
			count, headerLength+count*signerSlotLength, len(data))
	}

	if body%AddressLength != 0 || body/AddressLength > count {
		return Signature{}, errors.Errorf("signature has %d trailing bytes that do not form signer addresses", body)
	}

	addressed := body / AddressLength
	sig := Signature{
		Version:   data[0],
		Threshold: data[1],
		Signers:   make([]SignerEntry, 0, count),
	}

	offset := headerLength
	for i := 0; i < count; i++ {
		flags := data[offset]
		offset++

		entry := SignerEntry{
			IsDynamic:   flags&flagDynamic != 0,
			Unrecovered: flags&flagUnrecovered != 0,
			Weight:      (flags >> weightShift) & weightMask,
			Signature:   common.CopyBytes(data[offset : offset+SignatureLength]),
		}
		offset += SignatureLength

		if i >= count-addressed {
			addr := common.BytesToAddress(data[offset : offset+AddressLength])
			entry.Address = &addr
			offset += AddressLength
		}

		sig.Signers = append(sig.Signers, entry)
	}

	return sig, nil
}

// DecodeSignatureHex decodes a hex encoded signature, with or without 0x prefix.
func DecodeSignatureHex(s string) (Signature, error) {
	data, err := decodeHex(s)
	if err != nil {
		return Signature{}, err
	}

	return DecodeSignature(data)
}

// decodeRelayerSignature accepts both complete signatures and bare signer lists lacking version and threshold.
func decodeRelayerSignature(s string) (Signature, error) {
	data, err := decodeHex(s)
	if err != nil {
		return Signature{}, errors.Wrap(err, "invalid relayer signature")
	}

	if sig, err := DecodeSignature(data); err == nil {
		return sig, nil
	}

	withHeader := append([]byte{0x00, 0x00}, data...)
	sig, err := DecodeSignature(withHeader)
	if err != nil {
		return Signature{}, errors.Wrap(err, "invalid relayer signature")
	}

	return sig, nil
}

// PackSignatures combines the EOA signature with the relayer counter-signature into a threshold 2 signature
// ordered by ascending signer address.
func PackSignatures(eoaSignature []byte, eoaAddress string, relayerSignature string) (string, error) {
	if !common.IsHexAddress(eoaAddress) {
		return "", errors.Errorf("invalid EOA address %q", eoaAddress)
	}

	if len(eoaSignature) != ECDSASignatureLength {
		return "", errors.Errorf("EOA signature must be %d bytes, got %d", ECDSASignatureLength, len(eoaSignature))
	}

	relayer, err := decodeRelayerSignature(relayerSignature)
	if err != nil {
		return "", err
	}

	addr := common.HexToAddress(eoaAddress)
	signers := make([]SignerEntry, 0, len(relayer.Signers)+1)
	signers = append(signers, relayer.Signers...)
	signers = append(signers, SignerEntry{
		IsDynamic:   false,
		Unrecovered: true,
		Weight:      1,
		Signature:   WithEthSignFlag(eoaSignature),
		Address:     &addr,
	})

	sort.SliceStable(signers, func(i, j int) bool {
		return addressValue(signers[i].Address).Cmp(addressValue(signers[j].Address)) < 0
	})

	return EncodeSignatureHex(Signature{Version: 0, Threshold: 2, Signers: signers})
}

// WithEthSignFlag returns a copy of sig with the eth_sign type flag appended.
func WithEthSignFlag(sig []byte) []byte {
	out := make([]byte, 0, len(sig)+1)
	out = append(out, sig...)

	return append(out, EthSignFlag)
}

func addressValue(addr *common.Address) *big.Int {
	if addr == nil {
		return new(big.Int)
	}

	return new(big.Int).SetBytes(addr.Bytes())
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	data, err := hexutil.Decode("0x" + s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex")
	}

	return data, nil
}
