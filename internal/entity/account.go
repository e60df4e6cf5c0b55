package entity

import (
	"errors"
	"fmt"
	"github.com/Zilliqa/gozilliqa-sdk/bech32"
	"regexp"
	"strings"
)

// Account is a lower-cased, 0x prefixed 20 byte address.
type Account string

const NoAccount Account = ""

var (
	ErrInvalidAddress = errors.New("invalid address")

	hexAddress = regexp.MustCompile(`^0x[0-9a-f]{40}$`)
)

// ParseAccount accepts an address in hex (with or without 0x) or bech32 (zil1...) form.
func ParseAccount(address string) (Account, error) {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(strings.ToLower(address), "zil1") {
		decoded, err := bech32.FromBech32Addr(address)
		if err != nil {
			return NoAccount, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
		}
		address = decoded
	}

	address = strings.ToLower(address)
	if !strings.HasPrefix(address, "0x") {
		address = "0x" + address
	}

	if !hexAddress.MatchString(address) {
		return NoAccount, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	return Account(address), nil
}

func MustParseAccount(address string) Account {
	a, err := ParseAccount(address)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Account) String() string {
	return string(a)
}

func (a Account) IsZero() bool {
	return a == NoAccount
}

func (a Account) Bech32() string {
	if a.IsZero() {
		return ""
	}
	b, err := bech32.ToBech32Address(string(a))
	if err != nil {
		return ""
	}
	return b
}

type Accounts []Account

func (as Accounts) Contains(a Account) bool {
	for _, existing := range as {
		if existing == a {
			return true
		}
	}
	return false
}

func (as Accounts) Strings() []string {
	out := make([]string, len(as))
	for i := range as {
		out[i] = string(as[i])
	}
	return out
}
