package parser

import (
	"regexp"
	"strings"
)

var (
	hookNameRE      = regexp.MustCompile(`^use[A-Z0-9]`)
	apiNameRE       = regexp.MustCompile(`^(?i:api)|(?i:api)$|Api[A-Z]|API`)
	csInterfaceRE   = regexp.MustCompile(`^I[A-Z]`)
	pyTestFileRE    = regexp.MustCompile(`^test_|_test\.py$`)
	unityComponents = []string{"MonoBehaviour", "NetworkBehaviour", "StateMachineBehaviour"}
)

// ClassifyTypeScript infers the type of a TS/JS declaration from its name,
// its path and whether its body renders markup. fallback applies when no
// rule fires and the body has no markup.
func ClassifyTypeScript(name, filePath string, hasMarkup bool, fallback ComponentType) ComponentType {
	lower := strings.ToLower(name)
	base := lowerBase(filePath)

	switch {
	case hookNameRE.MatchString(name):
		return TypeHook
	case inDirectory(filePath, "services", "service"):
		return TypeService
	case containsAny(lower, "context", "provider"):
		return TypeContext
	case containsAny(lower, "store", "slice", "reducer"):
		return TypeStore
	case inDirectory(filePath, "api") || apiNameRE.MatchString(name):
		return TypeAPI
	case inDirectory(filePath, "util", "utils", "helper", "helpers") || containsAny(lower, "util", "helper"):
		return TypeUtil
	case strings.HasSuffix(base, ".d.ts") || inDirectory(filePath, "types"):
		return TypeType
	case strings.Contains(lower, "config") || strings.Contains(base, "config"):
		return TypeConfig
	case hasMarkup:
		return TypeComponent
	}
	return fallback
}

// ClassifyPython infers the type of a Python declaration from naming and
// directory conventions.
func ClassifyPython(name, filePath string) ComponentType {
	lower := strings.ToLower(name)
	base := lowerBase(filePath)

	switch {
	case inDirectory(filePath, "api", "apis", "routes", "routers", "endpoints") ||
		hasAnyPrefix(base, "api", "routes", "router", "endpoints"):
		return TypeAPI
	case inDirectory(filePath, "services", "service") || strings.Contains(base, "service") || strings.HasSuffix(lower, "service"):
		return TypeService
	case inDirectory(filePath, "utils", "util", "helpers", "helper") || containsAny(base, "util", "helper"):
		return TypeUtil
	case containsAny(base, "config", "settings") || containsAny(lower, "config", "settings"):
		return TypeConfig
	case inDirectory(filePath, "views", "templates", "components") || hasAnyPrefix(base, "views") || strings.HasSuffix(name, "View"):
		return TypeComponent
	case inDirectory(filePath, "models", "entities", "schemas") || hasAnyPrefix(base, "models", "schemas") || strings.HasSuffix(name, "Model"):
		return TypeClass
	case inDirectory(filePath, "tests", "test") || pyTestFileRE.MatchString(base) || strings.HasPrefix(lower, "test"):
		return TypeFunction
	}
	return TypeUnknown
}

// CSharpKind is the declaring keyword of a C# type.
type CSharpKind string

const (
	CSharpClass     CSharpKind = "class"
	CSharpInterface CSharpKind = "interface"
	CSharpEnum      CSharpKind = "enum"
	CSharpStruct    CSharpKind = "struct"
	CSharpRecord    CSharpKind = "record"
)

// ClassifyCSharp infers the type of a C# declaration. Unity base classes take
// precedence over naming rules.
func ClassifyCSharp(name, filePath string, kind CSharpKind, bases []string) ComponentType {
	for _, b := range bases {
		b = lastSegment(stripGenerics(b))
		for _, unity := range unityComponents {
			if b == unity {
				return TypeComponent
			}
		}
		if b == "ScriptableObject" {
			return TypeConfig
		}
	}

	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(name, "Service"):
		return TypeService
	case strings.HasSuffix(name, "Controller"):
		return TypeAPI
	case strings.HasSuffix(name, "Manager"):
		return TypeService
	case strings.HasSuffix(name, "Repository"):
		return TypeService
	case strings.HasSuffix(name, "Handler"):
		return TypeFunction
	case inDirectory(filePath, "models", "model", "entities", "entity"):
		return TypeClass
	case kind == CSharpInterface && csInterfaceRE.MatchString(name):
		return TypeType
	case kind == CSharpEnum:
		return TypeType
	case containsAny(lower, "util", "helper") || inDirectory(filePath, "utils", "util", "helpers", "helper"):
		return TypeUtil
	case containsAny(lower, "config", "settings"):
		return TypeConfig
	}
	return TypeClass
}

func lastSegment(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
