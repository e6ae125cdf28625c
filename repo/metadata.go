// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/rpmver"
)

// RepoMD is the parsed form of repomd.xml, the per-repo metadata index.
// Treated as a fixed external wire format, decoded with stdlib
// encoding/xml struct tags the same way fixed-schema JSON elsewhere in
// the engine is decoded with encoding/json tags.
type RepoMD struct {
	Revision string              `xml:"revision"`
	Data     []RepoMDData        `xml:"data"`
}

// RepoMDData is one <data type="..."> entry: a pointer to one metadata
// file plus its checksum, used both to decide what to fetch and to
// validate a.solv cache.
type RepoMDData struct {
	Type         string `xml:"type,attr"`
	Location     struct {
		Href string `xml:"href,attr"`
	} `xml:"location"`
	Checksum struct {
		Type  string `xml:"type,attr"`
		Value string `xml:",chardata"`
	} `xml:"checksum"`
	OpenChecksum struct {
		Value string `xml:",chardata"`
	} `xml:"open-checksum"`
	Timestamp string `xml:"timestamp"`
}

// ParseRepoMD parses repomd.xml from r.
func ParseRepoMD(r io.Reader) (*RepoMD, error) {
	var md RepoMD
	if err := xml.NewDecoder(r).Decode(&md); err != nil {
		return nil, errors.Wrap(err, "repo: parse repomd.xml")
	}
	return &md, nil
}

// Location returns the href for a given metadata kind, if repomd lists it.
func (md *RepoMD) Location(kind MetadataKind) (string, bool) {
	for _, d := range md.Data {
		if d.Type == string(kind) {
			return d.Location.Href, true
		}
	}
	return "", false
}

// --- primary.xml -----------------------------------------------------

type primaryXML struct {
	Packages []primaryPackage `xml:"package"`
}

type primaryPackage struct {
	Type    string `xml:"type,attr"`
	Name    string `xml:"name"`
	Arch    string `xml:"arch"`
	Version struct {
		Epoch   string `xml:"epoch,attr"`
		Ver     string `xml:"ver,attr"`
		Rel     string `xml:"rel,attr"`
	} `xml:"version"`
	Format struct {
		Provides    depList `xml:"provides"`
		Requires    depList `xml:"requires"`
		Conflicts   depList `xml:"conflicts"`
		Obsoletes   depList `xml:"obsoletes"`
		Supplements depList `xml:"supplements"`
		Recommends  depList `xml:"recommends"`
		Enhances    depList `xml:"enhances"`
		Suggests    depList `xml:"suggests"`
		Files       []string `xml:"file"`
	} `xml:"format"`
}

type depList struct {
	Entries []depEntry `xml:"entry"`
}

type depEntry struct {
	Name string `xml:"name,attr"`
}

func (d depList) names() []string {
	out := make([]string, 0, len(d.Entries))
	for _, e := range d.Entries {
		out = append(out, e.Name)
	}
	return out
}

// ParsePrimary parses primary.xml (already decompressed) into Pool
// solvables belonging to repo h. Packages whose <package type="..."> is
// not "rpm" (e.g. srpm-only placeholder entries) are skipped.
func ParsePrimary(r io.Reader, h pool.RepoHandle) ([]pool.Solvable, error) {
	var doc primaryXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "repo: parse primary.xml")
	}

	out := make([]pool.Solvable, 0, len(doc.Packages))
	for _, p := range doc.Packages {
		if p.Type != "" && p.Type != "rpm" {
			continue
		}
		evr, err := rpmver.Parse(evrString(p.Version.Epoch, p.Version.Ver, p.Version.Rel))
		if err != nil {
			return nil, errors.Wrapf(err, "repo: package %s", p.Name)
		}
		out = append(out, pool.Solvable{
			Repo:        h,
			Name:        p.Name,
			EVR:         evr,
			Arch:        p.Arch,
			Provides:    p.Format.Provides.names(),
			Requires:    p.Format.Requires.names(),
			Conflicts:   p.Format.Conflicts.names(),
			Obsoletes:   p.Format.Obsoletes.names(),
			Supplements: p.Format.Supplements.names(),
			Recommends:  p.Format.Recommends.names(),
			Enhances:    p.Format.Enhances.names(),
			Suggests:    p.Format.Suggests.names(),
			Files:       p.Format.Files,
			Kind:        pool.KindPackage,
		})
	}
	return out, nil
}

func evrString(epoch, ver, rel string) string {
	var b strings.Builder
	if epoch != "" && epoch != "0" {
		b.WriteString(epoch)
		b.WriteByte(':')
	}
	b.WriteString(ver)
	if rel != "" {
		b.WriteByte('-')
		b.WriteString(rel)
	}
	return b.String()
}

// --- filelists.xml / other.xml -----------------------------------------

// FileEntry augments a package with the file list filelists.xml carries
// separately to keep primary.xml small. It records the package's pkgid,
// but the loader matches entries to solvables by name and arch only.
type FileEntry struct {
	PkgID string
	Name  string
	Arch  string
	Files []string
}

type filelistsXML struct {
	Packages []struct {
		PkgID string   `xml:"pkgid,attr"`
		Name  string   `xml:"name,attr"`
		Arch  string   `xml:"arch,attr"`
		Files []string `xml:"file"`
	} `xml:"package"`
}

// ParseFilelists parses filelists.xml into per-package file lists.
func ParseFilelists(r io.Reader) ([]FileEntry, error) {
	var doc filelistsXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "repo: parse filelists.xml")
	}
	out := make([]FileEntry, 0, len(doc.Packages))
	for _, p := range doc.Packages {
		out = append(out, FileEntry{PkgID: p.PkgID, Name: p.Name, Arch: p.Arch, Files: p.Files})
	}
	return out, nil
}

// --- updateinfo.xml ------------------------------------------------

// Advisory is one <update> entry from updateinfo.xml: a security/bugfix
// notice bundling a set of package NEVRAs, consumed by the advisory
// Query filters ("advisory" axis).
type Advisory struct {
	ID       string
	Type     string
	Title    string
	Packages []string // nevras
}

type updateinfoXML struct {
	Updates []struct {
		ID    string `xml:"id"`
		Type  string `xml:"type,attr"`
		Title string `xml:"title"`
		Pkglist struct {
			Collections []struct {
				Packages []struct {
					Name    string `xml:"name,attr"`
					Epoch   string `xml:"epoch,attr"`
					Version string `xml:"version,attr"`
					Release string `xml:"release,attr"`
					Arch    string `xml:"arch,attr"`
				} `xml:"package"`
			} `xml:"collection"`
		} `xml:"pkglist"`
	} `xml:"update"`
}

// ParseUpdateinfo parses updateinfo.xml. Per updateinfo
// introduces pseudo-solvables and so must be loaded last among
// extensions; this function only parses, callers decide load order.
func ParseUpdateinfo(r io.Reader) ([]Advisory, error) {
	var doc updateinfoXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "repo: parse updateinfo.xml")
	}
	out := make([]Advisory, 0, len(doc.Updates))
	for _, u := range doc.Updates {
		adv := Advisory{ID: u.ID, Type: u.Type, Title: u.Title}
		for _, coll := range u.Pkglist.Collections {
			for _, p := range coll.Packages {
				nevra := p.Name + "-" + evrString(p.Epoch, p.Version, p.Release) + "." + p.Arch
				adv.Packages = append(adv.Packages, nevra)
			}
		}
		out = append(out, adv)
	}
	return out, nil
}
