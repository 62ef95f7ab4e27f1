package model

import "testing"

func TestParseWallet(t *testing.T) {
	w, err := ParseWallet("0x00112233445566778899aabbccddeeff00112233")
	if err != nil {
		t.Fatalf("ParseWallet failed: %v", err)
	}
	if w.Hex() != "0x00112233445566778899aabbccddeeff00112233" {
		t.Errorf("round trip mismatch: %s", w.Hex())
	}
	if w[0] != 0x00 || w[1] != 0x11 || w[19] != 0x33 {
		t.Errorf("unexpected bytes: %v", w)
	}
}

func TestParseWalletRejectsBadInput(t *testing.T) {
	bad := []string{
		"",
		"0x",
		"0x1234",                                     // too short
		"00112233445566778899aabbccddeeff00112233",   // missing prefix
		"0xzz112233445566778899aabbccddeeff00112233", // not hex
		"0x00112233445566778899aabbccddeeff0011223344", // too long
	}
	for _, s := range bad {
		if _, err := ParseWallet(s); err == nil {
			t.Errorf("ParseWallet(%q) should fail", s)
		}
		if IsWalletString(s) {
			t.Errorf("IsWalletString(%q) should be false", s)
		}
	}
}

func TestDefaultUsername(t *testing.T) {
	w, err := ParseWallet("0xdeadbeef445566778899aabbccddeeff00112233")
	if err != nil {
		t.Fatalf("ParseWallet failed: %v", err)
	}
	if got := w.DefaultUsername(); got != "Player_deadbeef" {
		t.Errorf("DefaultUsername = %q, want Player_deadbeef", got)
	}
}

func TestWalletTextMarshaling(t *testing.T) {
	w, err := ParseWallet("0x00112233445566778899aabbccddeeff00112233")
	if err != nil {
		t.Fatalf("ParseWallet failed: %v", err)
	}
	b, err := w.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	var back Wallet
	if err := back.UnmarshalText(b); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if back != w {
		t.Errorf("marshal round trip changed the wallet: %s vs %s", back, w)
	}
}
