// Command sqllint verifies that every inline SQL constant carries a unique
// audit marker on its first line. The runner logs queries by marker, so a
// missing or duplicated marker breaks log attribution.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with)\b`)
	markerPattern     = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

type finding struct {
	file    string
	name    string
	line    int
	message string
}

type linter struct {
	fset     *token.FileSet
	seen     map[string]string // marker uuid -> const name of first use
	findings []finding
}

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"internal/sqlinline"}
	}

	l := &linter{
		fset: token.NewFileSet(),
		seen: map[string]string{},
	}

	for _, target := range targets {
		if err := l.lintTarget(target); err != nil {
			fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
			os.Exit(1)
		}
	}

	if len(l.findings) > 0 {
		fmt.Fprintln(os.Stderr, "sqllint: SQL audit marker problems")
		for _, f := range l.findings {
			fmt.Fprintf(os.Stderr, "  %s:%d %s (%s)\n", f.file, f.line, f.message, f.name)
		}
		os.Exit(1)
	}
}

func (l *linter) lintTarget(target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if filepath.Ext(target) == ".go" {
			return l.lintFile(target)
		}
		return nil
	}
	return filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		return l.lintFile(path)
	})
}

func (l *linter) lintFile(path string) error {
	file, err := parser.ParseFile(l.fset, path, nil, parser.ParseComments)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		name := specName(vs)
		for _, value := range vs.Values {
			bl, ok := value.(*ast.BasicLit)
			if !ok || bl.Kind != token.STRING {
				continue
			}
			raw, err := unquote(bl.Value)
			if err != nil || !sqlKeywordPattern.MatchString(raw) {
				continue
			}
			l.checkMarker(path, name, bl, raw)
		}
		return true
	})
	return nil
}

func (l *linter) checkMarker(path, name string, bl *ast.BasicLit, raw string) {
	pos := l.fset.Position(bl.Pos())
	match := markerPattern.FindStringSubmatch(firstLine(raw))
	if match == nil {
		l.findings = append(l.findings, finding{
			file:    path,
			line:    pos.Line,
			name:    name,
			message: "missing or invalid --sql <uuid> marker",
		})
		return
	}
	marker := match[1]
	if prior, dup := l.seen[marker]; dup {
		l.findings = append(l.findings, finding{
			file:    path,
			line:    pos.Line,
			name:    name,
			message: fmt.Sprintf("marker %s already used by %s", marker, prior),
		})
		return
	}
	l.seen[marker] = name
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}

func specName(vs *ast.ValueSpec) string {
	parts := make([]string, 0, len(vs.Names))
	for _, ident := range vs.Names {
		if ident == nil {
			continue
		}
		parts = append(parts, ident.Name)
	}
	return strings.Join(parts, ",")
}
