// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pool

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildHeaderSection assembles one rpm header section (magic+reserved+
// nindex+hsize preamble, index entries, data blob) from a set of tag ->
// value pairs, mirroring the layout readHeaderSection parses.
type rawTag struct {
	tag   int32
	typ   int32 // 6 = STRING, 8 = STRING_ARRAY, 4 = INT32
	value interface{}
}

func buildHeaderSection(tags []rawTag) []byte {
	var data bytes.Buffer
	entries := make([]headerEntry, 0, len(tags))

	for _, t := range tags {
		offset := int32(data.Len())
		var count int32 = 1
		switch v := t.value.(type) {
		case string:
			data.WriteString(v)
			data.WriteByte(0)
		case []string:
			count = int32(len(v))
			for _, s := range v {
				data.WriteString(s)
				data.WriteByte(0)
			}
		case int32:
			binary.Write(&data, binary.BigEndian, v)
		}
		entries = append(entries, headerEntry{tag: t.tag, offset: offset, count: count})
	}

	var out bytes.Buffer
	var preamble [16]byte
	binary.BigEndian.PutUint32(preamble[0:4], rpmHeaderMagic)
	binary.BigEndian.PutUint32(preamble[8:12], uint32(len(entries)))
	binary.BigEndian.PutUint32(preamble[12:16], uint32(data.Len()))
	out.Write(preamble[:])

	for _, e := range entries {
		var idx [16]byte
		binary.BigEndian.PutUint32(idx[0:4], uint32(e.tag))
		binary.BigEndian.PutUint32(idx[8:12], uint32(e.offset))
		binary.BigEndian.PutUint32(idx[12:16], uint32(e.count))
		out.Write(idx[:])
	}
	out.Write(data.Bytes())
	return out.Bytes()
}

func buildTestRpm(t *testing.T, tags []rawTag) []byte {
	t.Helper()
	var out bytes.Buffer

	var lead [rpmLeadSize]byte
	binary.BigEndian.PutUint32(lead[0:4], rpmLeadMagic)
	out.Write(lead[:])

	sig := buildHeaderSection(nil) // empty signature header is enough for this reader
	out.Write(sig)
	// padding is computed off the signature data blob length; an empty
	// blob needs no padding.

	out.Write(buildHeaderSection(tags))
	return out.Bytes()
}

func TestReadRpmHeaderParsesNameVersionDeps(t *testing.T) {
	raw := buildTestRpm(t, []rawTag{
		{tag: tagName, value: "meson"},
		{tag: tagVersion, value: "1.0"},
		{tag: tagRelease, value: "1"},
		{tag: tagEpoch, value: int32(0)},
		{tag: tagArch, value: "x86_64"},
		{tag: tagProvideName, value: []string{"meson", "meson(x86-64)"}},
		{tag: tagRequireName, value: []string{"glibc"}},
	})

	sv, err := readRpmHeader(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if sv.Name != "meson" || sv.Arch != "x86_64" {
		t.Fatalf("unexpected solvable: %+v", sv)
	}
	if sv.EVR.Version != "1.0" || sv.EVR.Release != "1" {
		t.Fatalf("unexpected EVR: %+v", sv.EVR)
	}
	if len(sv.Provides) != 2 || len(sv.Requires) != 1 {
		t.Fatalf("unexpected deps: %+v", sv)
	}
}

func TestReadRpmHeaderRejectsBadLeadMagic(t *testing.T) {
	raw := buildTestRpm(t, []rawTag{{tag: tagName, value: "meson"}})
	raw[0] = 0 // corrupt the lead magic
	if _, err := readRpmHeader(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected an error for a corrupted lead magic")
	}
}

func TestReadRpmHeaderRequiresNameVersionRelease(t *testing.T) {
	raw := buildTestRpm(t, []rawTag{{tag: tagName, value: "meson"}})
	if _, err := readRpmHeader(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected an error when version/release are missing")
	}
}

func TestAddRpmPathInsertsIntoRepo(t *testing.T) {
	raw := buildTestRpm(t, []rawTag{
		{tag: tagName, value: "meson"},
		{tag: tagVersion, value: "1.0"},
		{tag: tagRelease, value: "1"},
		{tag: tagArch, value: "x86_64"},
	})

	path := filepath.Join(t.TempDir(), "meson-1.0-1.x86_64.rpm")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}

	p := New()
	h, err := p.AddRepo("@commandline", RepoCommandline)
	if err != nil {
		t.Fatal(err)
	}

	id, err := p.AddRpmPath(h, path)
	if err != nil {
		t.Fatal(err)
	}
	sv, err := p.Solvable(id)
	if err != nil {
		t.Fatal(err)
	}
	if sv.Name != "meson" || sv.Repo != h {
		t.Fatalf("unexpected solvable: %+v", sv)
	}
}
