package chain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
)

// DefaultChainID is Ethereum mainnet, used when a provider cannot report a chain.
const DefaultChainID uint64 = 1

// MaxSafeChainID is the largest chain id wallets accept (EIP-2294).
const MaxSafeChainID uint64 = 4503599627370476

// ID is a parsed chain identifier.
type ID uint64

// String renders the id as a hex quantity ("0xa").
func (id ID) String() string {
	return "0x" + strconv.FormatUint(uint64(id), 16)
}

// ValidateID checks that id is within (0, MaxSafeChainID].
func ValidateID(id uint64) error {
	if id == 0 || id > MaxSafeChainID {
		return fmt.Errorf("chain id %d out of range (1..%d)", id, MaxSafeChainID)
	}
	return nil
}

// ParseID accepts the shapes providers emit for chainChanged: integers,
// JSON numbers, decimal strings and 0x-prefixed hex strings.
func ParseID(v any) (uint64, error) {
	var id uint64
	switch t := v.(type) {
	case int:
		if t < 0 {
			return 0, fmt.Errorf("negative chain id %d", t)
		}
		id = uint64(t)
	case int64:
		if t < 0 {
			return 0, fmt.Errorf("negative chain id %d", t)
		}
		id = uint64(t)
	case uint64:
		id = t
	case ID:
		id = uint64(t)
	case float64:
		if t < 0 || t != math.Trunc(t) || t > float64(MaxSafeChainID) {
			return 0, fmt.Errorf("invalid chain id %v", t)
		}
		id = uint64(t)
	case json.Number:
		return ParseID(t.String())
	case string:
		parsed, err := parseIDString(t)
		if err != nil {
			return 0, err
		}
		id = parsed
	default:
		return 0, fmt.Errorf("unsupported chain id type %T", v)
	}
	if err := ValidateID(id); err != nil {
		return 0, err
	}
	return id, nil
}

func parseIDString(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty chain id")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		id, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid hex chain id %q: %w", s, err)
		}
		return id, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	return id, nil
}

// IsAddress reports whether s looks like a 20-byte hex account address.
func IsAddress(s string) bool {
	if len(s) != 42 || !(strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

// ChecksumAddress returns the EIP-55 mixed-case form of addr. Mixed-case
// input must already carry a valid checksum.
func ChecksumAddress(addr string) (string, error) {
	if !IsAddress(addr) {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	body := addr[2:]
	lower := strings.ToLower(body)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := hex.EncodeToString(h.Sum(nil))

	var b strings.Builder
	b.Grow(42)
	b.WriteString("0x")
	for i, c := range lower {
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			b.WriteRune(c - 'a' + 'A')
		} else {
			b.WriteRune(c)
		}
	}
	sum := b.String()

	if body != lower && body != strings.ToUpper(body) && sum[2:] != body {
		return "", fmt.Errorf("address %q has an invalid checksum", addr)
	}
	return sum, nil
}

// ChecksumAddresses normalizes every address, failing on the first invalid one.
func ChecksumAddresses(addrs []string) ([]string, error) {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		sum, err := ChecksumAddress(a)
		if err != nil {
			return nil, err
		}
		out[i] = sum
	}
	return out, nil
}
