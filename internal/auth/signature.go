package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// NonceKey 返回钱包 nonce 的存储键。
func NonceKey(walletAddress string) string {
	return "wallet:nonce:" + strings.ToLower(walletAddress)
}

// NonceMessage 返回钱包需要签名的原文。
func NonceMessage(walletAddress, nonce string) string {
	return fmt.Sprintf("Sign this message to authenticate with DeFi Agent.\n\nWallet: %s\nNonce: %s", walletAddress, nonce)
}

// RecoverAddress 按 EIP-191 personal_sign 规则从签名中恢复签名者地址。
// v 可以是 27/28，也可以是 0/1。
func RecoverAddress(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, errors.New("signature must be 65 bytes")
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, errors.New("invalid signature recovery id")
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifySignature 判断签名是否由 walletAddress 对 message 产生。
func VerifySignature(walletAddress, message, signature string) bool {
	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		return false
	}
	return strings.EqualFold(recovered.Hex(), walletAddress)
}
