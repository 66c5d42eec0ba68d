// Package extractor pulls structural code elements (classes, fields,
// methods, constructors) out of Java source using tree-sitter. Each element
// carries a normalized signature string that the comparison engine matches
// on; the format mirrors how the declaration reads, with modifiers first
// and parameters rendered as "Type name" pairs.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/diffgrader/diffgrader/pkg/models"
)

// FileStructure is the extraction result for one source file.
type FileStructure struct {
	FileName string               `json:"file_name" toon:"file_name"`
	Package  string               `json:"package,omitempty" toon:"package,omitempty"`
	Elements []models.CodeElement `json:"elements" toon:"elements"`
}

// Extractor parses Java source and extracts code elements.
// Not safe for concurrent use; create one per goroutine.
type Extractor struct {
	parser *sitter.Parser
}

// New creates a Java extractor.
func New() *Extractor {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Extractor{parser: p}
}

// Close releases the underlying parser.
func (e *Extractor) Close() {
	if e.parser != nil {
		e.parser.Close()
	}
}

// ExtractFile reads and extracts a Java source file.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*FileStructure, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return e.ExtractSource(ctx, source, filepath.Base(path))
}

// ExtractSource extracts elements from Java source text. Tree-sitter is
// error-tolerant, so malformed input produces a partial element list
// rather than an error.
func (e *Extractor) ExtractSource(ctx context.Context, source []byte, fileName string) (*FileStructure, error) {
	tree, err := e.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fileName, err)
	}
	defer tree.Close()

	fs := &FileStructure{FileName: fileName}

	walk(tree.RootNode(), func(node *sitter.Node) {
		switch node.Type() {
		case "package_declaration":
			if fs.Package == "" {
				fs.Package = packageName(node, source)
			}
		case "class_declaration", "interface_declaration":
			fs.Elements = append(fs.Elements, element(node, source, fileName,
				models.KindClass, classSignature(node, source)))
		case "field_declaration":
			// One element per declarator: "int x, y;" yields two fields.
			for i := 0; i < int(node.NamedChildCount()); i++ {
				decl := node.NamedChild(i)
				if decl.Type() != "variable_declarator" {
					continue
				}
				el := element(node, source, fileName,
					models.KindField, fieldSignature(node, decl, source))
				el.Name = fieldText(decl.ChildByFieldName("name"), source)
				fs.Elements = append(fs.Elements, el)
			}
		case "method_declaration":
			fs.Elements = append(fs.Elements, element(node, source, fileName,
				models.KindMethod, methodSignature(node, source)))
		case "constructor_declaration":
			fs.Elements = append(fs.Elements, element(node, source, fileName,
				models.KindConstructor, constructorSignature(node, source)))
		}
	})

	return fs, nil
}

// element builds the common parts of a CodeElement from a declaration node.
func element(node *sitter.Node, source []byte, fileName string, kind models.ElementKind, signature string) models.CodeElement {
	return models.CodeElement{
		Name:       fieldText(node.ChildByFieldName("name"), source),
		Kind:       kind,
		Signature:  signature,
		SourceCode: node.Content(source),
		LineNumber: int(node.StartPoint().Row) + 1,
		File:       fileName,
	}
}

// walk visits every named node in document order.
func walk(node *sitter.Node, visit func(*sitter.Node)) {
	if node == nil {
		return
	}
	visit(node)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		walk(node.NamedChild(i), visit)
	}
}

func packageName(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if t := child.Type(); t == "scoped_identifier" || t == "identifier" {
			return child.Content(source)
		}
	}
	return ""
}

func fieldText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return node.Content(source)
}
