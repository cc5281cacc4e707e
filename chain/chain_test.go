package chain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    uint64
		wantErr bool
	}{
		{"int", 10, 10, false},
		{"int64", int64(137), 137, false},
		{"float64 from json", float64(56), 56, false},
		{"json number", json.Number("42161"), 42161, false},
		{"hex string", "0xa", 10, false},
		{"upper hex prefix", "0X89", 137, false},
		{"decimal string", "1", 1, false},
		{"zero", 0, 0, true},
		{"negative", -1, 0, true},
		{"fractional", 1.5, 0, true},
		{"too large", MaxSafeChainID + 1, 0, true},
		{"garbage", "0xzz", 0, true},
		{"empty", "", 0, true},
		{"unsupported type", []byte("1"), 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseID(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestIDString(t *testing.T) {
	if ID(10).String() != "0xa" {
		t.Errorf("expected 0xa, got %s", ID(10).String())
	}
}

// EIP-55 reference vectors.
var checksummed = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
}

func TestChecksumAddress(t *testing.T) {
	for _, want := range checksummed {
		t.Run(want, func(t *testing.T) {
			got, err := ChecksumAddress(strings.ToLower(want))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != want {
				t.Errorf("expected %s, got %s", want, got)
			}

			again, err := ChecksumAddress(want)
			if err != nil || again != want {
				t.Errorf("checksummed input should round-trip, got %s, %v", again, err)
			}
		})
	}
}

func TestChecksumAddressRejects(t *testing.T) {
	bad := []string{
		"0xAA",
		"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeZ",
		// valid hex, wrong mixed case
		"0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	}
	for _, in := range bad {
		if _, err := ChecksumAddress(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestChecksumAddresses(t *testing.T) {
	out, err := ChecksumAddresses([]string{strings.ToLower(checksummed[0]), checksummed[1]})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != checksummed[0] || out[1] != checksummed[1] {
		t.Errorf("unexpected output %v", out)
	}

	if _, err := ChecksumAddresses([]string{checksummed[0], "0xAA"}); err == nil {
		t.Error("expected error when any address is invalid")
	}
}
