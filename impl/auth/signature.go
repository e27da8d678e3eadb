package auth

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"
)

// VerifySignature reports whether signature is an EIP-191 personal_sign
// signature of message by the key owning address. Malformed input is
// reported as false.
func VerifySignature(address, message, signature string) bool {
	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		return false
	}
	return strings.EqualFold(recovered, strings.TrimSpace(address))
}

// RecoverAddress returns the lower case 0x address that signed message.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := decodeHex(signature)
	if err != nil {
		return "", fmt.Errorf("signature format: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}

	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", fmt.Errorf("invalid recovery id: %d", v)
	}

	// btcec wants [27+v | R | S]
	compact := make([]byte, 65)
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])

	pubKey, _, err := ecdsa.RecoverCompact(compact, personalHash(message))
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return addressOf(pubKey), nil
}

func personalHash(message string) []byte {
	return keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)))
}

func addressOf(pubKey *btcec.PublicKey) string {
	uncompressed := pubKey.SerializeUncompressed()
	return "0x" + hex.EncodeToString(keccak256(uncompressed[1:])[12:])
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return hex.DecodeString(s)
}
