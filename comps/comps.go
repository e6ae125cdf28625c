// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package comps implements C3 of the core engine: parsing comps.xml into
// Group/Environment definitions and resolving a group's package list under
// an allowed PackageType mask.
package comps

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
)

// PackageType classifies one package entry inside a comps Group.
type PackageType int

const (
	Mandatory PackageType = 1 << iota
	Default
	Optional
	Conditional
)

// PackageTypeMask is a bitwise OR of PackageType values controlling which
// entries CompsIndex.ResolvePackages returns.
type PackageTypeMask = PackageType

// Default mask matching dnf's own historical default: mandatory+default.
const DefaultMask PackageTypeMask = Mandatory | Default

func parsePackageType(s string) (PackageType, error) {
	switch s {
	case "mandatory":
		return Mandatory, nil
	case "default", "":
		return Default, nil
	case "optional":
		return Optional, nil
	case "conditional":
		return Conditional, nil
	}
	return 0, errors.Errorf("comps: unknown package type %q", s)
}

// PackageEntry is one <packagereq> element.
type PackageEntry struct {
	Name      string
	Type      PackageType
	Condition string // the "if" requires-name for Conditional entries
}

// Group is one <group> element in the comps Group/Environment data
// model.
type Group struct {
	ID          string
	Name        string
	Lang        map[string]string // localized names keyed by xml:lang
	UserVisible bool
	Packages    []PackageEntry
}

// Environment is one <environment> element.
type Environment struct {
	ID              string
	Name            string
	Lang            map[string]string
	MandatoryGroups []string
	OptionalGroups  []string
}

// Index holds every Group/Environment parsed from one or more comps.xml
// documents, keyed by id. Loading multiple documents into the same Index
// merges by id, last write wins — matching how repositories with
// overlapping comps data are layered in practice.
type Index struct {
	Groups       map[string]Group
	Environments map[string]Environment
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{
		Groups:       make(map[string]Group),
		Environments: make(map[string]Environment),
	}
}

// xmlComps mirrors the on-disk comps.xml shape; it is kept separate from
// Group/Environment so the exported types stay a clean domain model
// independent of XML tag plumbing, the same raw-DTO/domain-type split
// used for lock.json and similar wire formats elsewhere in the engine.
type xmlComps struct {
	XMLName      xml.Name        `xml:"comps"`
	Groups       []xmlGroup      `xml:"group"`
	Environments []xmlEnvironment `xml:"environment"`
}

type xmlGroup struct {
	ID          string       `xml:"id"`
	NamesLocal  []xmlLocName `xml:"name"`
	UserVisible string       `xml:"uservisible"`
	PackageList xmlPkgList   `xml:"packagelist"`
}

type xmlLocName struct {
	Lang  string `xml:"lang,attr"`
	Value string `xml:",chardata"`
}

type xmlPkgList struct {
	Packages []xmlPackageReq `xml:"packagereq"`
}

type xmlPackageReq struct {
	Type      string `xml:"type,attr"`
	Requires  string `xml:"requires,attr"`
	Name      string `xml:",chardata"`
}

type xmlEnvironment struct {
	ID              string       `xml:"id"`
	NamesLocal      []xmlLocName `xml:"name"`
	GroupList       xmlGroupList `xml:"grouplist"`
	OptionGroupList xmlGroupList `xml:"optionlist"`
}

type xmlGroupList struct {
	GroupIDs []string `xml:"groupid"`
}

// Load parses one comps.xml document from r and merges its groups and
// environments into idx.
func (idx *Index) Load(r io.Reader) error {
	var doc xmlComps
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return errors.Wrap(err, "comps: decode comps.xml")
	}

	for _, g := range doc.Groups {
		group := Group{
			ID:          g.ID,
			Name:        defaultName(g.NamesLocal),
			Lang:        localizedNames(g.NamesLocal),
			UserVisible: g.UserVisible != "false",
		}
		for _, pr := range g.PackageList.Packages {
			pt, err := parsePackageType(pr.Type)
			if err != nil {
				return errors.Wrapf(err, "comps: group %q", g.ID)
			}
			group.Packages = append(group.Packages, PackageEntry{
				Name:      trimChardata(pr.Name),
				Type:      pt,
				Condition: pr.Requires,
			})
		}
		idx.Groups[group.ID] = group
	}

	for _, e := range doc.Environments {
		env := Environment{
			ID:   e.ID,
			Name: defaultName(e.NamesLocal),
			Lang: localizedNames(e.NamesLocal),
		}
		env.MandatoryGroups = append(env.MandatoryGroups, e.GroupList.GroupIDs...)
		env.OptionalGroups = append(env.OptionalGroups, e.OptionGroupList.GroupIDs...)
		idx.Environments[env.ID] = env
	}

	return nil
}

// defaultName returns the <name> element that carries no xml:lang.
func defaultName(ns []xmlLocName) string {
	for _, n := range ns {
		if n.Lang == "" {
			return trimChardata(n.Value)
		}
	}
	return ""
}

func localizedNames(ns []xmlLocName) map[string]string {
	if len(ns) == 0 {
		return nil
	}
	out := make(map[string]string, len(ns))
	for _, n := range ns {
		if n.Lang == "" {
			continue
		}
		out[n.Lang] = trimChardata(n.Value)
	}
	return out
}

func trimChardata(s string) string {
	// comps.xml indents packagereq/name text; trim the surrounding
	// whitespace encoding/xml preserves verbatim.
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// ResolvePackages returns the package names of group groupID whose
// PackageType is set in mask. Conditional entries are included only if
// their Condition name appears in satisfiedConditions.
func (idx *Index) ResolvePackages(groupID string, mask PackageTypeMask, satisfiedConditions map[string]bool) ([]string, error) {
	g, ok := idx.Groups[groupID]
	if !ok {
		return nil, errors.Errorf("comps: unknown group %q", groupID)
	}

	var out []string
	for _, pe := range g.Packages {
		if pe.Type == Conditional {
			if mask&Conditional == 0 {
				continue
			}
			if satisfiedConditions == nil || !satisfiedConditions[pe.Condition] {
				continue
			}
		} else if pe.Type&mask == 0 {
			continue
		}
		out = append(out, pe.Name)
	}
	return out, nil
}

// ResolveEnvironment returns every package name belonging to the
// environment's mandatory groups, plus its optional groups when
// includeOptional is true.
func (idx *Index) ResolveEnvironment(envID string, mask PackageTypeMask, includeOptional bool, satisfiedConditions map[string]bool) ([]string, error) {
	env, ok := idx.Environments[envID]
	if !ok {
		return nil, errors.Errorf("comps: unknown environment %q", envID)
	}

	groupIDs := append([]string{}, env.MandatoryGroups...)
	if includeOptional {
		groupIDs = append(groupIDs, env.OptionalGroups...)
	}

	seen := make(map[string]bool)
	var out []string
	for _, gid := range groupIDs {
		pkgs, err := idx.ResolvePackages(gid, mask, satisfiedConditions)
		if err != nil {
			return nil, err
		}
		for _, p := range pkgs {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out, nil
}
