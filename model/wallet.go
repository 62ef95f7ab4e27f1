package model

import (
	"encoding/hex"
	"fmt"
)

// WalletLen is the byte length of a wallet address.
const WalletLen = 20

// Wallet is a 20-byte account address. It serializes as the 0x-prefixed
// lowercase hex form.
type Wallet [WalletLen]byte

// ParseWallet parses the 0x-prefixed 40-hex-char address form.
func ParseWallet(s string) (Wallet, error) {
	var w Wallet
	if len(s) != 2+2*WalletLen || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return w, fmt.Errorf("invalid wallet address %q", s)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return w, fmt.Errorf("invalid wallet address %q: %w", s, err)
	}
	copy(w[:], b)
	return w, nil
}

// IsWalletString reports whether s is a parseable wallet address form.
func IsWalletString(s string) bool {
	_, err := ParseWallet(s)
	return err == nil
}

// Hex returns the 0x-prefixed lowercase hex form.
func (w Wallet) Hex() string {
	return "0x" + hex.EncodeToString(w[:])
}

func (w Wallet) String() string { return w.Hex() }

// IsZero reports whether the wallet is all zero bytes.
func (w Wallet) IsZero() bool {
	return w == Wallet{}
}

// DefaultUsername is the name synthesized for auto-bound wallets:
// "Player_" plus the hex of the first four address bytes.
func (w Wallet) DefaultUsername() string {
	return "Player_" + hex.EncodeToString(w[:4])
}

// MarshalText implements encoding.TextMarshaler.
func (w Wallet) MarshalText() ([]byte, error) {
	return []byte(w.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Wallet) UnmarshalText(b []byte) error {
	parsed, err := ParseWallet(string(b))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
