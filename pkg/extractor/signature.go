package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// modifierKeywords are rendered into signatures in this order regardless of
// how the source orders them, so formatting quirks don't defeat matching.
var modifierKeywords = []string{"public", "protected", "private", "static", "abstract", "final"}

// modifiers returns the declaration's modifier keywords in canonical order.
// Annotations are skipped; they are formatting-sensitive noise for matching.
func modifiers(node *sitter.Node, source []byte) []string {
	var mods *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "modifiers" {
			mods = child
			break
		}
	}
	if mods == nil {
		return nil
	}

	present := make(map[string]bool)
	for i := 0; i < int(mods.ChildCount()); i++ {
		present[mods.Child(i).Type()] = true
	}

	var out []string
	for _, kw := range modifierKeywords {
		if present[kw] {
			out = append(out, kw)
		}
	}
	return out
}

// accessAndOthers splits modifiers into the access specifier (at most one)
// and the remaining keywords. Package-private declarations have no access
// specifier and render without one.
func accessAndOthers(mods []string) (string, []string) {
	access := ""
	var rest []string
	for _, m := range mods {
		switch m {
		case "public", "protected", "private":
			if access == "" {
				access = m
			}
		default:
			rest = append(rest, m)
		}
	}
	return access, rest
}

func classSignature(node *sitter.Node, source []byte) string {
	access, rest := accessAndOthers(modifiers(node, source))

	var parts []string
	if access != "" {
		parts = append(parts, access)
	}
	if node.Type() == "interface_declaration" {
		parts = append(parts, "interface")
	} else {
		parts = append(parts, rest...)
		parts = append(parts, "class")
	}

	name := fieldText(node.ChildByFieldName("name"), source)
	if tp := node.ChildByFieldName("type_parameters"); tp != nil {
		name += tp.Content(source)
	}
	parts = append(parts, name)

	sig := strings.Join(parts, " ")

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "superclass":
			// superclass node reads "extends Type"; keep its own wording.
			sig += " extends " + typeList(child, source)
		case "extends_interfaces":
			sig += " extends " + typeList(child, source)
		case "super_interfaces":
			sig += " implements " + typeList(child, source)
		}
	}
	return sig
}

// typeList renders the type names under an extends/implements clause.
func typeList(node *sitter.Node, source []byte) string {
	var names []string
	var collect func(n *sitter.Node)
	collect = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "type_list" {
				collect(child)
				continue
			}
			names = append(names, child.Content(source))
		}
	}
	collect(node)
	return strings.Join(names, ", ")
}

func fieldSignature(node, declarator *sitter.Node, source []byte) string {
	var parts []string
	parts = append(parts, modifiers(node, source)...)
	parts = append(parts, fieldText(node.ChildByFieldName("type"), source))
	parts = append(parts, fieldText(declarator.ChildByFieldName("name"), source))
	return strings.Join(parts, " ")
}

func methodSignature(node *sitter.Node, source []byte) string {
	var parts []string
	parts = append(parts, modifiers(node, source)...)
	parts = append(parts, fieldText(node.ChildByFieldName("type"), source))
	parts = append(parts, fieldText(node.ChildByFieldName("name"), source)+
		parameterList(node.ChildByFieldName("parameters"), source))
	return strings.Join(parts, " ")
}

func constructorSignature(node *sitter.Node, source []byte) string {
	var parts []string
	parts = append(parts, modifiers(node, source)...)
	parts = append(parts, fieldText(node.ChildByFieldName("name"), source)+
		parameterList(node.ChildByFieldName("parameters"), source))
	return strings.Join(parts, " ")
}

// parameterList renders formal parameters as "(Type name, Type name)".
func parameterList(node *sitter.Node, source []byte) string {
	if node == nil {
		return "()"
	}
	var params []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "formal_parameter":
			params = append(params, strings.TrimSpace(
				fieldText(child.ChildByFieldName("type"), source)+" "+
					fieldText(child.ChildByFieldName("name"), source)))
		case "spread_parameter":
			params = append(params, collapseSpace(child.Content(source)))
		}
	}
	return "(" + strings.Join(params, ", ") + ")"
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
