package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// schemagen scans the schema package for its Type* string constants and
// regenerates known_types_gen.go, the set of recognized wire
// discriminators. Run it through go generate after adding a message type.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "schemagen: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dirFlag := flag.String("dir", ".", "schema package directory")
	flag.Parse()

	dir, err := filepath.Abs(*dirFlag)
	if err != nil {
		return err
	}

	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedSyntax | packages.NeedFiles | packages.NeedCompiledGoFiles,
		Dir:  dir,
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		return errors.New("no packages found")
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return fmt.Errorf("load failed: %s", pkg.Errors[0])
	}

	values, err := collectTypeConstants(pkg.Syntax)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return errors.New("no Type* string constants found")
	}

	out, err := render(pkg.Name, values)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "known_types_gen.go"), out, 0o644)
}

// collectTypeConstants picks every top-level string constant whose name
// starts with "Type", skipping generated files.
func collectTypeConstants(files []*ast.File) ([]string, error) {
	var names []string
	seen := make(map[string]struct{})
	for _, file := range files {
		if isGenerated(file) {
			continue
		}
		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.CONST {
				continue
			}
			for _, spec := range gen.Specs {
				valueSpec, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for i, name := range valueSpec.Names {
					if !strings.HasPrefix(name.Name, "Type") || i >= len(valueSpec.Values) {
						continue
					}
					lit, ok := valueSpec.Values[i].(*ast.BasicLit)
					if !ok || lit.Kind != token.STRING {
						continue
					}
					if _, dup := seen[name.Name]; dup {
						return nil, fmt.Errorf("duplicate constant %s", name.Name)
					}
					seen[name.Name] = struct{}{}
					names = append(names, name.Name)
				}
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func isGenerated(file *ast.File) bool {
	for _, group := range file.Comments {
		for _, comment := range group.List {
			if strings.Contains(comment.Text, "Code generated by schemagen") {
				return true
			}
		}
	}
	return false
}

func render(pkgName string, names []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("// Code generated by schemagen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkgName)

	buf.WriteString("var knownTypes = map[string]struct{}{\n")
	for _, name := range names {
		fmt.Fprintf(&buf, "\t%s: {},\n", name)
	}
	buf.WriteString("}\n\n")

	buf.WriteString("// KnownType reports whether t is a declared wire message type.\n")
	buf.WriteString("func KnownType(t string) bool {\n")
	buf.WriteString("\t_, ok := knownTypes[t]\n")
	buf.WriteString("\treturn ok\n")
	buf.WriteString("}\n")

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return out, nil
}
