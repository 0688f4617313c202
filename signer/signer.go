package signer

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Verifier checks an authorization proof over a canonical message against the
// address that claims to have produced it.
type Verifier interface {
	Verify(message []byte, signature string, claimedSigner string) bool
}

// EthVerifier recovers personal-sign style secp256k1 signatures.
type EthVerifier struct{}

func NewEthVerifier() *EthVerifier {
	return &EthVerifier{}
}

func (v *EthVerifier) Verify(message []byte, signature string, claimedSigner string) bool {
	address, err := RecoverSigner(message, signature)
	if err != nil || address == nil {
		return false
	}
	return strings.EqualFold(claimedSigner, address.Hex())
}

// PrefixedHash hashes data the way wallet personal-sign does.
func PrefixedHash(data []byte) common.Hash {
	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	return crypto.Keccak256Hash([]byte(msg))
}

func publicKeyBytesToAddress(publicKey []byte) *common.Address {
	if len(publicKey) < 1 {
		return nil
	}

	hash := crypto.Keccak256Hash(publicKey[1:]).Bytes()
	address := hash[12:]

	addr := common.HexToAddress(hex.EncodeToString(address))
	return &addr
}

// RecoverSigner extracts the signing address from a hex signature over msg.
func RecoverSigner(msg []byte, sig string) (*common.Address, error) {
	sigBytes, err := hexutil.Decode(sig)
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex")
	}

	if len(sigBytes) != 65 {
		return nil, fmt.Errorf("wrong signature length")
	}

	if sigBytes[64] != 27 && sigBytes[64] != 28 && sigBytes[64] != 0 && sigBytes[64] != 1 {
		log.Printf("Wrong signature '%s' checksum: %v", sig, sigBytes[64])
		return nil, fmt.Errorf("wrong signature checksum")
	}

	if sigBytes[64] == 27 || sigBytes[64] == 28 {
		sigBytes[64] = sigBytes[64] - 27
	}

	msgHash := PrefixedHash(msg)
	sigPublicKey, err := crypto.Ecrecover(msgHash.Bytes(), sigBytes)
	if err != nil {
		return nil, fmt.Errorf("cannot decode public key")
	}

	return publicKeyBytesToAddress(sigPublicKey), nil
}
