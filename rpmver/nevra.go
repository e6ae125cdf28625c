// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmver

import (
	"fmt"
	"strings"
)

// NEVRA is the canonical RPM identity: name-epoch:version-release.arch.
type NEVRA struct {
	Name    string
	EVR     EVR
	Arch    string
}

// String renders the NEVRA in "name-epoch:version-release.arch" form.
func (n NEVRA) String() string {
	return fmt.Sprintf("%s-%s.%s", n.Name, n.EVR.String(), n.Arch)
}

// Form controls which textual NEVRA layouts ParseNEVRA will accept, mirroring
// "form-list controlled" nevra filter.
type Form int

const (
	// FormNEVRA is name-epoch:version-release.arch (e.g. foo-1:2.3-4.x86_64).
	FormNEVRA Form = iota
	// FormNEVR is name-epoch:version-release, no arch.
	FormNEVR
	// FormNA is name.arch.
	FormNA
	// FormNameOnly is a bare package name.
	FormNameOnly
)

// ParseNEVRA attempts to parse s as each of the given forms in order,
// returning the first successful parse. Forms not satisfiable by s (e.g. no
// dash for FormNEVRA) are skipped rather than erroring.
func ParseNEVRA(s string, forms ...Form) (NEVRA, Form, bool) {
	for _, f := range forms {
		if n, ok := parseForm(s, f); ok {
			return n, f, true
		}
	}
	return NEVRA{}, 0, false
}

func parseForm(s string, f Form) (NEVRA, bool) {
	switch f {
	case FormNameOnly:
		if s == "" || strings.ContainsAny(s, "/") {
			return NEVRA{}, false
		}
		return NEVRA{Name: s}, true

	case FormNA:
		i := strings.LastIndexByte(s, '.')
		if i <= 0 || i == len(s)-1 {
			return NEVRA{}, false
		}
		return NEVRA{Name: s[:i], Arch: s[i+1:]}, true

	case FormNEVR, FormNEVRA:
		rest := s
		arch := ""
		if f == FormNEVRA {
			i := strings.LastIndexByte(rest, '.')
			if i <= 0 {
				return NEVRA{}, false
			}
			arch = rest[i+1:]
			rest = rest[:i]
		}

		// rest is now name-evr; evr is everything after the second-to-last
		// dash (name-version-release). A string with fewer than two
		// dashes does not parse under this form.
		i := strings.LastIndexByte(rest, '-')
		if i <= 0 {
			return NEVRA{}, false
		}
		j := strings.LastIndexByte(rest[:i], '-')
		var name, evrStr string
		if j <= 0 {
			return NEVRA{}, false
		}
		name = rest[:j]
		evrStr = rest[j+1:]

		evr, err := Parse(evrStr)
		if err != nil {
			return NEVRA{}, false
		}

		return NEVRA{Name: name, EVR: evr, Arch: arch}, true
	}
	return NEVRA{}, false
}

// Comparator is the set of EVR comparison operators Query's evr filter
// supports.
type Comparator int

const (
	EQ Comparator = iota
	NEQ
	LT
	LTE
	GT
	GTE
)

// Match reports whether cmp(subject, target) holds for the given comparator,
// where cmp is rpm's EVR ordering.
func (c Comparator) Match(subject, target EVR) bool {
	cmp := Compare(subject, target)
	switch c {
	case EQ:
		return cmp == 0
	case NEQ:
		return cmp != 0
	case LT:
		return cmp < 0
	case LTE:
		return cmp <= 0
	case GT:
		return cmp > 0
	case GTE:
		return cmp >= 0
	}
	return false
}
