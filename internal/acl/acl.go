package acl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// ErrMalformed is returned for an unparsable entry. The accompanying decision is Deny.
var ErrMalformed = errors.New("malformed acl entry")

// Decision is the outcome of an evaluation.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Rule is one parsed entry. A remote address matches when addr&Mask == Network.
type Rule struct {
	Allow   bool
	Network uint32
	Mask    uint32
}

// Matches reports whether addr falls under the rule.
func (r Rule) Matches(addr uint32) bool {
	return addr&r.Mask == r.Network
}

// Parse splits list into rules. Surrounding whitespace of each entry is ignored;
// empty entries are skipped.
func Parse(list string) ([]Rule, error) {
	var rules []Rule
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		rule, err := parseRule(entry)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Evaluate applies list to the remote address.
func Evaluate(list string, remote netip.Addr) (Decision, error) {
	rules, err := Parse(list)
	if err != nil {
		return Deny, err
	}
	if len(rules) == 0 {
		return Allow, nil
	}

	addr, ok := toUint32(remote)
	if !ok {
		// Only IPv4 rules exist; anything else never matches.
		return Deny, nil
	}

	decision := Deny
	for _, r := range rules {
		if r.Matches(addr) {
			decision = Decision(r.Allow)
		}
	}
	return decision, nil
}

// Allowed is Evaluate collapsed to a bool; malformed lists deny.
func Allowed(list string, remote netip.Addr) bool {
	d, err := Evaluate(list, remote)
	return err == nil && d == Allow
}

// Validate reports whether list parses.
func Validate(list string) error {
	_, err := Parse(list)
	return err
}

func parseRule(entry string) (Rule, error) {
	var rule Rule
	switch entry[0] {
	case '+':
		rule.Allow = true
	case '-':
		rule.Allow = false
	default:
		return Rule{}, fmt.Errorf("%w: %q: sign must be + or -", ErrMalformed, entry)
	}

	network, mask, hasMask := strings.Cut(entry[1:], "/")

	addr, err := netip.ParseAddr(network)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %q: %v", ErrMalformed, entry, err)
	}
	n, ok := toUint32(addr)
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q: not an ipv4 address", ErrMalformed, entry)
	}
	rule.Network = n
	rule.Mask = 0xffffffff

	if hasMask {
		m, err := parseMask(mask)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %q: %v", ErrMalformed, entry, err)
		}
		rule.Mask = m
	}
	return rule, nil
}

// parseMask accepts prefix bits ("16") or a dotted mask ("255.255.0.0").
func parseMask(s string) (uint32, error) {
	if strings.Contains(s, ".") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return 0, err
		}
		m, ok := toUint32(addr)
		if !ok {
			return 0, errors.New("mask is not ipv4")
		}
		return m, nil
	}

	bits, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if bits < 0 || bits > 32 {
		return 0, fmt.Errorf("prefix length %d out of range", bits)
	}
	if bits == 0 {
		return 0, nil
	}
	return ^uint32(0) << (32 - bits), nil
}

func toUint32(addr netip.Addr) (uint32, bool) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0, false
	}
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:]), true
}
