// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"bufio"
	"compress/gzip"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// openMetadata opens name, transparently unwrapping gzip or zstd
// compression by file extension. zstd is handled by klauspost/compress,
// a common choice for streaming decompression; gzip uses the stdlib
// since Go ships a complete gzip reader already.
func openMetadata(name string, raw io.Reader) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(name, ".gz"):
		gz, err := gzip.NewReader(bufio.NewReader(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "repo: open gzip metadata %s", name)
		}
		return gz, nil
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "repo: open zstd metadata %s", name)
		}
		return zstdReadCloser{zr}, nil
	default:
		return io.NopCloser(raw), nil
	}
}

// zstdReadCloser adapts *zstd.Decoder (Close has no error return) to
// io.ReadCloser.
type zstdReadCloser struct {
	d *zstd.Decoder
}

func (z zstdReadCloser) Read(p []byte) (int, error) { return z.d.Read(p) }
func (z zstdReadCloser) Close() error                { z.d.Close(); return nil }
