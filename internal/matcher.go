package internal

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Pattern matches a mount-relative slash path (no leading "/").
type Pattern interface {
	Match(rel string) bool
	Desc() string // for logs
}

type RegexPattern struct{ re *regexp.Regexp }

func (p *RegexPattern) Match(rel string) bool { return p.re.MatchString(rel) }
func (p *RegexPattern) Desc() string          { return "re:" + p.re.String() }

type GlobPattern struct{ glob string }

func (p *GlobPattern) Match(rel string) bool {
	ok, _ := path.Match(p.glob, rel)
	return ok
}
func (p *GlobPattern) Desc() string { return "glob:" + p.glob }

// SubtreePattern matches a path and everything below it.
type SubtreePattern struct{ prefix string }

func (p *SubtreePattern) Match(rel string) bool {
	return rel == p.prefix || strings.HasPrefix(rel, p.prefix+"/")
}
func (p *SubtreePattern) Desc() string { return "/" + p.prefix }

// ParsePattern understands:
//
//	/var/lib/docker
//	glob:tmp/*.sock
//	re:^proc/[0-9]+$
func ParsePattern(line string) (Pattern, error) {
	switch {
	case strings.HasPrefix(line, "re:"):
		re, err := regexp.Compile(line[3:])
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", line, err)
		}
		return &RegexPattern{re: re}, nil
	case strings.HasPrefix(line, "glob:"):
		g := strings.TrimPrefix(line[5:], "/")
		if _, err := path.Match(g, ""); err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", line, err)
		}
		return &GlobPattern{glob: g}, nil
	default:
		p := strings.Trim(path.Clean("/"+line), "/")
		if p == "" {
			return nil, fmt.Errorf("subtree pattern %q would whitelist everything", line)
		}
		return &SubtreePattern{prefix: p}, nil
	}
}

// LoadPatterns reads a whitelist file, one pattern per line, '#' comments.
func LoadPatterns(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := ParsePattern(line); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	logrus.Debugf("Loaded %d whitelist patterns", len(lines))
	return lines, nil
}
