// # internal/engine/parser/types.go
package parser

import "strings"

// Language identifies the source language a declaration was extracted from.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangReact      Language = "react"
	LangPython     Language = "python"
	LangCSharp     Language = "csharp"
)

// SourceExtensions lists the extensions the built-in extractors handle, in the
// order import resolution tries them.
var SourceExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".py", ".cs"}

// ComponentType is the coarse semantic category assigned to a declaration.
// The set is closed; ParseComponentType rejects anything outside it.
type ComponentType string

const (
	TypeComponent ComponentType = "component"
	TypeClass     ComponentType = "class"
	TypeFunction  ComponentType = "function"
	TypeModule    ComponentType = "module"
	TypeService   ComponentType = "service"
	TypeHook      ComponentType = "hook"
	TypeContext   ComponentType = "context"
	TypeStore     ComponentType = "store"
	TypeAPI       ComponentType = "api"
	TypeUtil      ComponentType = "util"
	TypeType      ComponentType = "type"
	TypeConfig    ComponentType = "config"
	TypeUnknown   ComponentType = "unknown"
)

// ComponentTypes lists every ComponentType in presentation order.
var ComponentTypes = []ComponentType{
	TypeComponent,
	TypeHook,
	TypeFunction,
	TypeService,
	TypeAPI,
	TypeContext,
	TypeStore,
	TypeClass,
	TypeType,
	TypeConfig,
	TypeUtil,
	TypeModule,
	TypeUnknown,
}

func (t ComponentType) Valid() bool {
	for _, known := range ComponentTypes {
		if t == known {
			return true
		}
	}
	return false
}

func ParseComponentType(value string) (ComponentType, bool) {
	t := ComponentType(strings.ToLower(strings.TrimSpace(value)))
	if !t.Valid() {
		return TypeUnknown, false
	}
	return t, true
}

const (
	// DefaultExportName is the export key used for `export default`.
	DefaultExportName = "default"
	// WildcardName marks `*` imports and re-exports.
	WildcardName = "*"
)

// Declaration is a named, locatable symbol found in one file.
type Declaration struct {
	Name          string
	Type          ComponentType
	FilePath      string
	Line          int // 1-based
	Column        int // 0-based
	Language      Language
	Description   string   // carries "Extends: X | Implements: Y, Z"
	ExportedNames []string // names other files may import this under
}

// IsExported reports whether the declaration is reachable under name.
func (d Declaration) IsExported(name string) bool {
	for _, n := range d.ExportedNames {
		if n == name {
			return true
		}
	}
	return false
}

// ImportStatement is one import (or re-export) found in a file.
type ImportStatement struct {
	Source      string   // relative path fragment or bare specifier
	Names       []string // ordered; a namespace import holds one binding or WildcardName
	IsDefault   bool
	IsNamespace bool
	IsReexport  bool
	Line        int
}

// IsRelative reports whether Source is a relative path fragment.
func (s ImportStatement) IsRelative() bool {
	return strings.HasPrefix(s.Source, ".")
}

// HasWildcard reports whether the statement pulls every export of its target.
func (s ImportStatement) HasWildcard() bool {
	if s.IsNamespace {
		return true
	}
	for _, n := range s.Names {
		if n == WildcardName {
			return true
		}
	}
	return false
}

// ParseResult is the output of one extractor invocation.
type ParseResult struct {
	FilePath     string
	Language     Language
	Declarations []Declaration
	Imports      []ImportStatement
	Errors       []string
}

// Empty reports whether the result carries neither declarations nor imports.
func (r ParseResult) Empty() bool {
	return len(r.Declarations) == 0 && len(r.Imports) == 0
}

// ErrorResult builds a result that only records a failure for path.
func ErrorResult(path string, msg string) ParseResult {
	return ParseResult{FilePath: path, Errors: []string{msg}}
}
