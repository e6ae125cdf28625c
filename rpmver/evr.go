// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rpmver implements RPM's epoch:version-release comparison
// algorithm. It has no third-party equivalent in the dependency graph this
// module draws from; see DESIGN.md for why it is hand-written against the
// stdlib rather than borrowed.
package rpmver

import (
	"fmt"
	"strconv"
	"strings"
)

// EVR is a parsed epoch:version-release triple, RPM's canonical ordering
// key. The zero value compares as epoch 0, empty version, empty release.
type EVR struct {
	Epoch   int
	Version string
	Release string
}

// Parse splits a "[epoch:]version[-release]" string into its EVR parts.
// A missing epoch defaults to 0, matching rpm's own convention.
func Parse(s string) (EVR, error) {
	var e EVR

	if i := strings.IndexByte(s, ':'); i >= 0 {
		epoch, err := strconv.Atoi(s[:i])
		if err != nil {
			return e, fmt.Errorf("rpmver: invalid epoch in %q: %w", s, err)
		}
		e.Epoch = epoch
		s = s[i+1:]
	}

	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		e.Version = s[:i]
		e.Release = s[i+1:]
	} else {
		e.Version = s
	}

	return e, nil
}

// String renders the EVR back to its canonical "epoch:version-release"
// form. Epoch 0 is still printed explicitly; callers that want the
// epoch-suppressed display form should use DisplayString.
func (e EVR) String() string {
	if e.Release == "" {
		return fmt.Sprintf("%d:%s", e.Epoch, e.Version)
	}
	return fmt.Sprintf("%d:%s-%s", e.Epoch, e.Version, e.Release)
}

// DisplayString renders version-release, suppressing a zero epoch, which is
// the conventional way EVRs are shown to users (e.g. in NEVRA strings).
func (e EVR) DisplayString() string {
	if e.Release == "" {
		return e.Version
	}
	return e.Version + "-" + e.Release
}

// Compare returns -1, 0, or 1 as a sorts before, equals, or sorts after b,
// using rpm's epoch-then-version-then-release comparison.
func Compare(a, b EVR) int {
	if a.Epoch != b.Epoch {
		if a.Epoch < b.Epoch {
			return -1
		}
		return 1
	}

	if c := compareSegment(a.Version, b.Version); c != 0 {
		return c
	}

	return compareSegment(a.Release, b.Release)
}

// Less reports whether a sorts strictly before b.
func Less(a, b EVR) bool { return Compare(a, b) < 0 }

// Equal reports whether a and b are the same EVR under rpm's comparison
// rules (note this is not the same as a == b, since e.g. "1.0" and "1.0"
// with differing whitespace-free representations always compare equal, but
// two textually different strings might also compare equal under segment
// rules — unlikely in practice, but Compare is the source of truth).
func Equal(a, b EVR) bool { return Compare(a, b) == 0 }

// compareSegment implements rpm's rpmvercmp: the string is split into runs
// of digits, runs of letters, and isolated punctuation/tilde/caret
// boundaries, and corresponding runs are compared pairwise.
//
// Rules (from rpm's documented algorithm):
//   - a tilde sorts before anything else, including the empty string
//     ("1.0~rc1" < "1.0")
//   - a caret sorts after everything compared against the empty string,
//     but before a following non-empty segment ("1.0" < "1.0^" < "1.0^git")
//   - digit runs compare numerically (leading zeros stripped)
//   - alpha runs compare lexically
//   - a digit run always sorts after an alpha run at the same position
//   - if one string runs out of segments first, the longer one wins unless
//     the extra segment is a tilde (which always loses) or a caret (which
//     always loses to a longer opposite) segment
func compareSegment(a, b string) int {
	for {
		// Strip matching non-alphanumeric, non-tilde, non-caret separators
		// from the front of both strings; rpm treats any run of such
		// characters as an equal-weight separator.
		a = trimSeparators(a)
		b = trimSeparators(b)

		// Tilde sorts before everything, including end-of-string.
		aTilde, bTilde := strings.HasPrefix(a, "~"), strings.HasPrefix(b, "~")
		switch {
		case aTilde && bTilde:
			a, b = a[1:], b[1:]
			continue
		case aTilde:
			return -1
		case bTilde:
			return 1
		}

		// Caret sorts after everything compared to the empty string, but a
		// caret followed by more text loses to a plain continuation.
		aCaret, bCaret := strings.HasPrefix(a, "^"), strings.HasPrefix(b, "^")
		switch {
		case aCaret && bCaret:
			a, b = a[1:], b[1:]
			continue
		case aCaret:
			if b == "" {
				return 1
			}
			return -1
		case bCaret:
			if a == "" {
				return -1
			}
			return 1
		}

		if a == "" || b == "" {
			break
		}

		aNum := isDigit(a[0])
		bNum := isDigit(b[0])

		var aSeg, bSeg string
		if aNum {
			aSeg, a = splitRun(a, isDigit)
		} else {
			aSeg, a = splitRun(a, isAlpha)
		}
		if bNum {
			bSeg, b = splitRun(b, isDigit)
		} else {
			bSeg, b = splitRun(b, isAlpha)
		}

		if aNum != bNum {
			// Numeric segments always win over alpha segments.
			if aNum {
				return 1
			}
			return -1
		}

		if aNum {
			if c := compareNumeric(aSeg, bSeg); c != 0 {
				return c
			}
		} else if aSeg != bSeg {
			if aSeg < bSeg {
				return -1
			}
			return 1
		}
	}

	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

func trimSeparators(s string) string {
	i := 0
	for i < len(s) && !isDigit(s[i]) && !isAlpha(s[i]) && s[i] != '~' && s[i] != '^' {
		i++
	}
	return s[i:]
}

func splitRun(s string, class func(byte) bool) (run, rest string) {
	i := 0
	for i < len(s) && class(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
