package mapping

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	monument "github.com/Fallen-Breath/monument"
)

// ParseProguard reads a Proguard-style mapping file (spec §4.D,
// §[ADDED] supplemented grammar): dot-separated class names, "->"
// arrows, and member lines indented under their owning class, with an
// optional "<lineFrom>:<lineTo>:" prefix on method lines. The
// resulting tree has two namespaces, "obfuscated" (the right-hand
// name, the class's actual current name in the jar) and "named" (the
// left-hand, human-readable name). Namespace 0 = default must match
// the jar's current class/member names, exactly as tiny trees put the
// jar-current namespace first (spec §4.D) — GetClass/resolveMember key
// off namespace 0, so it has to be the obfuscated side, not the file's
// left-hand column.
func ParseProguard(r io.Reader) (*MappingTree, error) {
	tree := New("obfuscated", "named")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var current *ClassMapping
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indented := len(line) > 0 && (line[0] == ' ' || line[0] == '\t')

		if !indented {
			if current != nil {
				if err := tree.AddClass(current); err != nil {
					return nil, err
				}
				current = nil
			}
			cm, err := parseProguardClassLine(trimmed)
			if err != nil {
				return nil, monument.NewError(monument.KindBadFormat, "mapping.ParseProguard", err)
			}
			current = cm
			continue
		}

		if current == nil {
			return nil, monument.NewError(monument.KindBadFormat, "mapping.ParseProguard",
				fmt.Errorf("member line before any class line: %q", line))
		}
		if err := parseProguardMemberLine(current, trimmed); err != nil {
			return nil, monument.NewError(monument.KindBadFormat, "mapping.ParseProguard", err)
		}
	}
	if current != nil {
		if err := tree.AddClass(current); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, monument.NewError(monument.KindIO, "mapping.ParseProguard", err)
	}
	return tree, nil
}

// parseProguardClassLine parses "original.Class -> obfuscated.name:".
func parseProguardClassLine(line string) (*ClassMapping, error) {
	line = strings.TrimSuffix(line, ":")
	parts := strings.SplitN(line, "->", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed class line: %q", line)
	}
	original := dotsToInternal(strings.TrimSpace(parts[0]))
	obfuscated := dotsToInternal(strings.TrimSpace(parts[1]))
	return newClassMapping([]string{obfuscated, original}), nil
}

// parseProguardMemberLine parses one of:
//
//	<type> <name> -> <renamed>
//	<type> <name>(<args>) -> <renamed>
//	<lineFrom>:<lineTo>:<type> <name>(<args>) -> <renamed>
func parseProguardMemberLine(cm *ClassMapping, line string) error {
	parts := strings.SplitN(line, "->", 2)
	if len(parts) != 2 {
		return fmt.Errorf("malformed member line: %q", line)
	}
	lhs := strings.TrimSpace(parts[0])
	renamed := strings.TrimSpace(parts[1])

	if idx := strings.Index(lhs, ":"); idx >= 0 {
		if second := strings.Index(lhs[idx+1:], ":"); second >= 0 {
			lhs = lhs[idx+1+second+1:]
		}
	}

	parenIdx := strings.Index(lhs, "(")
	if parenIdx < 0 {
		fields := strings.Fields(lhs)
		if len(fields) != 2 {
			return fmt.Errorf("malformed field line: %q", line)
		}
		descriptor := javaTypeToDescriptor(fields[0])
		key := MemberDescriptor{Name: renamed, Descriptor: descriptor}
		cm.Fields[key] = &FieldMapping{Names: []string{renamed, fields[1]}, Descriptor: descriptor}
		return nil
	}

	if !strings.HasSuffix(lhs, ")") {
		return fmt.Errorf("malformed method line: %q", line)
	}
	head := lhs[:parenIdx]
	args := lhs[parenIdx+1 : len(lhs)-1]
	fields := strings.Fields(head)
	if len(fields) != 2 {
		return fmt.Errorf("malformed method line: %q", line)
	}
	returnType, name := fields[0], fields[1]
	descriptor := buildMethodDescriptor(args, returnType)
	key := MemberDescriptor{Name: renamed, Descriptor: descriptor}
	cm.Methods[key] = &MethodMapping{
		Names:      []string{renamed, name},
		Descriptor: descriptor,
		Parameters: make(map[int]*ParameterMapping),
	}
	return nil
}

func buildMethodDescriptor(args, returnType string) string {
	var b strings.Builder
	b.WriteByte('(')
	if strings.TrimSpace(args) != "" {
		for _, a := range strings.Split(args, ",") {
			b.WriteString(javaTypeToDescriptor(strings.TrimSpace(a)))
		}
	}
	b.WriteByte(')')
	b.WriteString(javaTypeToDescriptor(returnType))
	return b.String()
}

// javaTypeToDescriptor converts a Proguard-style Java source type name
// ("int", "java.lang.String", "int[]", "java.lang.String[][]") to a
// JVM field descriptor.
func javaTypeToDescriptor(javaType string) string {
	dims := 0
	for strings.HasSuffix(javaType, "[]") {
		dims++
		javaType = javaType[:len(javaType)-2]
	}
	var elem string
	switch javaType {
	case "boolean":
		elem = "Z"
	case "byte":
		elem = "B"
	case "char":
		elem = "C"
	case "short":
		elem = "S"
	case "int":
		elem = "I"
	case "long":
		elem = "J"
	case "float":
		elem = "F"
	case "double":
		elem = "D"
	case "void":
		elem = "V"
	default:
		elem = "L" + dotsToInternal(javaType) + ";"
	}
	return strings.Repeat("[", dims) + elem
}

func dotsToInternal(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}
