// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pool

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/dnfcore/engine/rpmver"
)

// RPM's own binary header format: a fixed 96-byte lead, a signature
// header, and a main header, the latter two sharing the same
// magic+index+data-blob layout. See Maximum RPM ch.14 for the on-disk
// shape this mirrors.
const (
	rpmLeadSize    = 96
	rpmLeadMagic   = 0xedabeedb
	rpmHeaderMagic = 0x8eade801
)

// Tag numbers this reader understands, a small subset of rpm's full tag
// space sufficient to turn a local .rpm into a Solvable.
const (
	tagName         = 1000
	tagVersion      = 1001
	tagRelease      = 1002
	tagEpoch        = 1003
	tagArch         = 1022
	tagProvideName  = 1047
	tagRequireName  = 1049
	tagConflictName = 1054
	tagObsoleteName = 1090
)

type headerEntry struct {
	tag, offset, count int32
}

// AddRpmPath reads path's rpm header and inserts the resulting Solvable
// into repo h, returning its new id. This is the Pool-level counterpart
// to handing Goal an already-parsed Solvable: it is what actually turns
// a filesystem .rpm path into an arena entry for the commandline repo.
func (p *Pool) AddRpmPath(h RepoHandle, path string) (SolvableId, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "pool: open rpm file")
	}
	defer f.Close()

	sv, err := readRpmHeader(f)
	if err != nil {
		return 0, errors.Wrapf(err, "pool: parse rpm header %s", path)
	}
	sv.Repo = h

	return p.AddSolvable(sv)
}

// readRpmHeader reads the lead, skips over the signature header, and
// parses just enough of the main header's tag index to build a
// Solvable: name, version, release, epoch, arch, and the four
// name-based dependency arrays. File lists and weak deps are left to
// the repodata extensions this reader has no use for on a standalone
// rpm.
func readRpmHeader(r io.Reader) (Solvable, error) {
	var lead [rpmLeadSize]byte
	if _, err := io.ReadFull(r, lead[:]); err != nil {
		return Solvable{}, errors.Wrap(err, "read lead")
	}
	if binary.BigEndian.Uint32(lead[0:4]) != rpmLeadMagic {
		return Solvable{}, errors.New("not an rpm file (bad lead magic)")
	}

	_, sigData, err := readHeaderSection(r)
	if err != nil {
		return Solvable{}, errors.Wrap(err, "read signature header")
	}
	// The signature header's data blob is padded to a multiple of 8
	// bytes before the main header begins.
	if pad := (8 - len(sigData)%8) % 8; pad > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(pad)); err != nil {
			return Solvable{}, errors.Wrap(err, "skip signature padding")
		}
	}

	entries, data, err := readHeaderSection(r)
	if err != nil {
		return Solvable{}, errors.Wrap(err, "read main header")
	}

	sv := Solvable{Kind: KindPackage}
	var version, release string
	var epoch int32

	for _, e := range entries {
		switch e.tag {
		case tagName:
			sv.Name = readString(data, e)
		case tagVersion:
			version = readString(data, e)
		case tagRelease:
			release = readString(data, e)
		case tagEpoch:
			epoch = readInt32(data, e)
		case tagArch:
			sv.Arch = readString(data, e)
		case tagProvideName:
			sv.Provides = readStringArray(data, e)
		case tagRequireName:
			sv.Requires = readStringArray(data, e)
		case tagConflictName:
			sv.Conflicts = readStringArray(data, e)
		case tagObsoleteName:
			sv.Obsoletes = readStringArray(data, e)
		}
	}

	if sv.Name == "" || version == "" || release == "" {
		return Solvable{}, errors.New("rpm header missing name/version/release")
	}
	sv.EVR = rpmver.EVR{Epoch: int(epoch), Version: version, Release: release}
	return sv, nil
}

// readHeaderSection reads one rpm header section: an 16-byte
// magic+reserved+nindex+hsize preamble, nindex 16-byte index entries,
// then hsize bytes of data blob the entries' offsets point into.
func readHeaderSection(r io.Reader) ([]headerEntry, []byte, error) {
	var preamble [16]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return nil, nil, err
	}
	if binary.BigEndian.Uint32(preamble[0:4]) != rpmHeaderMagic {
		return nil, nil, errors.New("bad header magic")
	}
	nindex := binary.BigEndian.Uint32(preamble[8:12])
	hsize := binary.BigEndian.Uint32(preamble[12:16])

	rawIndex := make([]byte, nindex*16)
	if _, err := io.ReadFull(r, rawIndex); err != nil {
		return nil, nil, err
	}
	entries := make([]headerEntry, nindex)
	for i := range entries {
		b := rawIndex[i*16 : i*16+16]
		entries[i] = headerEntry{
			tag:    int32(binary.BigEndian.Uint32(b[0:4])),
			offset: int32(binary.BigEndian.Uint32(b[8:12])),
			count:  int32(binary.BigEndian.Uint32(b[12:16])),
		}
	}

	data := make([]byte, hsize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, nil, err
	}
	return entries, data, nil
}

func readString(data []byte, e headerEntry) string {
	start := int(e.offset)
	if start < 0 || start >= len(data) {
		return ""
	}
	end := start
	for end < len(data) && data[end] != 0 {
		end++
	}
	return string(data[start:end])
}

func readStringArray(data []byte, e headerEntry) []string {
	pos := int(e.offset)
	out := make([]string, 0, e.count)
	for i := int32(0); i < e.count && pos >= 0 && pos < len(data); i++ {
		end := pos
		for end < len(data) && data[end] != 0 {
			end++
		}
		out = append(out, string(data[pos:end]))
		pos = end + 1
	}
	return out
}

func readInt32(data []byte, e headerEntry) int32 {
	start := int(e.offset)
	if start < 0 || start+4 > len(data) {
		return 0
	}
	return int32(binary.BigEndian.Uint32(data[start : start+4]))
}
