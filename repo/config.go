// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/dnfcore/engine/pool"
)

// section is one `[name]` block's raw key/value pairs, in file order.
type section struct {
	name string
	keys []string
	vals map[string]string
}

func (s *section) get(key string) (string, bool) {
	v, ok := s.vals[key]
	return v, ok
}

// parseINI is a small hand-rolled scanner for the `[section]`/`key = value`
// format specifies for repo config: no nesting, no quoting
// rules beyond trimming whitespace, `#`/`;` line comments. There is no
// general-purpose INI library in the example corpus worth adopting for a
// format this small (DESIGN.md justifies the stdlib-only choice here).
func parseINI(r io.Reader) ([]*section, error) {
	var sections []*section
	var cur *section

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, errors.Errorf("repo: line %d: malformed section header %q", lineNo, line)
			}
			name := strings.TrimSpace(line[1 : len(line)-1])
			cur = &section{name: name, vals: make(map[string]string)}
			sections = append(sections, cur)
			continue
		}
		if cur == nil {
			return nil, errors.Errorf("repo: line %d: key outside any section", lineNo)
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			return nil, errors.Errorf("repo: line %d: expected key=value", lineNo)
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if _, exists := cur.vals[key]; !exists {
			cur.keys = append(cur.keys, key)
		}
		cur.vals[key] = val
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "repo: scan config")
	}
	return sections, nil
}

// LoadConfigDir reads every `*.conf` file in dir, sorted by filename, and
// returns one Config per non-`[main]` section. Duplicate repo ids across
// files, or within one file, are an error.
func LoadConfigDir(dir string) ([]Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "repo: read config dir")
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".conf") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	var out []Config
	for _, name := range names {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "repo: open %s", path)
		}
		sections, err := parseINI(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "repo: parse %s", path)
		}
		for _, sec := range sections {
			if sec.name == "main" {
				continue
			}
			if seen[sec.name] {
				return nil, errors.Errorf("repo: duplicate repo id %q (in %s)", sec.name, path)
			}
			seen[sec.name] = true

			cfg, err := sectionToConfig(sec, path)
			if err != nil {
				return nil, errors.Wrapf(err, "repo: section %q in %s", sec.name, path)
			}
			out = append(out, cfg)
		}
	}
	return out, nil
}

func sectionToConfig(sec *section, path string) (Config, error) {
	cfg := Config{
		ID:           sec.name,
		Type:         pool.RepoAvailable,
		Enabled:      true,
		SyncStrategy: TryCache,
		ConfigPath:   path,
	}

	if v, ok := sec.get("enabled"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.Wrapf(err, "enabled=%q", v)
		}
		cfg.Enabled = b
	}
	if v, ok := sec.get("cost"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrapf(err, "cost=%q", v)
		}
		cfg.Cost = n
	}
	if v, ok := sec.get("priority"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrapf(err, "priority=%q", v)
		}
		cfg.Priority = n
	}
	if v, ok := sec.get("baseurl"); ok {
		for _, u := range strings.Fields(v) {
			cfg.BaseURLs = append(cfg.BaseURLs, u)
		}
	}
	if v, ok := sec.get("metalink"); ok {
		cfg.Metalink = v
	}
	if v, ok := sec.get("mirrorlist"); ok {
		cfg.Mirrorlist = v
	}
	if v, ok := sec.get("cachedir"); ok {
		cfg.CacheDir = v
	}
	if v, ok := sec.get("sync_strategy"); ok {
		switch strings.ToLower(v) {
		case "try_cache", "":
			cfg.SyncStrategy = TryCache
		case "only_cache":
			cfg.SyncStrategy = OnlyCache
		case "lazy":
			cfg.SyncStrategy = Lazy
		default:
			return Config{}, errors.Errorf("sync_strategy=%q", v)
		}
	}
	if v, ok := sec.get("metadata_expire"); ok {
		switch v {
		case "never":
			cfg.Expire.Never = true
		default:
			secs, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, errors.Wrapf(err, "metadata_expire=%q", v)
			}
			cfg.Expire.TTL = time.Duration(secs) * time.Second
		}
	}

	return cfg, nil
}
