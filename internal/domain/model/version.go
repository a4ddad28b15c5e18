package model

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is a parsed toolkit version. The numeric triple defines the default
// ordering; Pre and Build are carried for display and for the opt-in
// prerelease-aware ordering (see ComparePrerelease).
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
	Pre   string // pre-release identifier without the leading '-'
	Build string // build metadata without the leading '+'
}

// ParseError reports a version string that could not be parsed.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse version %q: %s", e.Input, e.Reason)
}

// ParseVersion parses strings like "1.8.0", "v2.0", "3" or "1.8.0-rc.1+build.5".
// A leading "v" or "V" is accepted and discarded. Missing minor/patch
// components default to zero. Anything else returns a *ParseError.
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Version{}, &ParseError{Input: s, Reason: "empty string"}
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(raw, "v"), "V")

	var build string
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		rest, build = rest[:i], rest[i+1:]
		if build == "" {
			return Version{}, &ParseError{Input: s, Reason: "empty build metadata"}
		}
	}
	var pre string
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		rest, pre = rest[:i], rest[i+1:]
		if pre == "" {
			return Version{}, &ParseError{Input: s, Reason: "empty pre-release identifier"}
		}
	}

	parts := strings.Split(rest, ".")
	if len(parts) > 3 {
		return Version{}, &ParseError{Input: s, Reason: "more than three numeric components"}
	}
	nums := [3]uint64{}
	for i, p := range parts {
		n, err := parseComponent(p)
		if err != nil {
			return Version{}, &ParseError{Input: s, Reason: err.Error()}
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Pre: pre, Build: build}, nil
}

// MustParseVersion is ParseVersion for trusted literals; it panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseComponent(p string) (uint64, error) {
	if p == "" {
		return 0, fmt.Errorf("empty numeric component")
	}
	var n uint64
	for _, c := range p {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-numeric component %q", p)
		}
		d := uint64(c - '0')
		if n > (1<<64-1-d)/10 {
			return 0, fmt.Errorf("numeric component %q overflows", p)
		}
		n = n*10 + d
	}
	return n, nil
}

// String renders the canonical form, e.g. "1.8.0" or "1.8.0-rc.1+build.5".
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		b.WriteByte('-')
		b.WriteString(v.Pre)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

// Compare orders versions by the numeric triple alone: -1 if v < other,
// 0 if equal, +1 if v > other. Pre-release and build metadata are ignored,
// so "1.8.0-rc.1" and "1.8.0" compare equal here.
func (v Version) Compare(other Version) int {
	if c := compareUint64(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareUint64(v.Minor, other.Minor); c != 0 {
		return c
	}
	return compareUint64(v.Patch, other.Patch)
}

// ComparePrerelease orders versions with full semver precedence, where a
// pre-release sorts before its release ("1.8.0-rc.1" < "1.8.0"). Build
// metadata never affects ordering.
func (v Version) ComparePrerelease(other Version) int {
	a := semver.New(v.Major, v.Minor, v.Patch, v.Pre, v.Build)
	b := semver.New(other.Major, other.Minor, other.Patch, other.Pre, other.Build)
	return a.Compare(b)
}

// NewerThan reports whether v is strictly newer than other by numeric triple.
func (v Version) NewerThan(other Version) bool {
	return v.Compare(other) > 0
}

// Equal reports numeric-triple equality, ignoring suffixes.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// IsZero reports whether v is the zero value (no version known).
func (v Version) IsZero() bool {
	return v == Version{}
}

// MarshalText implements encoding.TextMarshaler using the canonical form.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via ParseVersion.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
