package classfile

import "strings"

// MapDescriptor rewrites every embedded internal class name ("L...;")
// within a field or method descriptor using mapFn, leaving primitive
// characters, array-dimension brackets and parentheses untouched — the
// "array types and primitive descriptors pass through unchanged at the
// element level; the remapper composes descriptors" rule of spec §4.D.
// Works uniformly for field descriptors ("Ljava/lang/String;", "[I",
// ...) and whole method descriptors ("(ILjava/lang/String;)V") since
// both are just sequences of field-descriptor-shaped tokens.
func MapDescriptor(desc string, mapFn func(string) string) string {
	var b strings.Builder
	b.Grow(len(desc))
	for i := 0; i < len(desc); i++ {
		c := desc[i]
		if c != 'L' {
			b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			// Malformed; copy the remainder verbatim rather than panic.
			b.WriteString(desc[i:])
			break
		}
		name := desc[i+1 : i+end]
		b.WriteByte('L')
		b.WriteString(mapFn(name))
		b.WriteByte(';')
		i += end
	}
	return b.String()
}

// SplitMethodDescriptor splits "(params)return" into the individual
// parameter field descriptors, in order, and the return descriptor.
func SplitMethodDescriptor(desc string) (params []string, ret string) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, desc
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		start := i
		for desc[i] == '[' {
			i++
		}
		if desc[i] == 'L' {
			end := strings.IndexByte(desc[i:], ';')
			i += end + 1
		} else {
			i++
		}
		params = append(params, desc[start:i])
	}
	ret = desc[i+1:]
	return params, ret
}

// Slots reports how many local-variable slots a field descriptor
// occupies when used as a method parameter or local: 2 for long/double,
// 1 otherwise (JVM calling convention, spec §3).
func Slots(fieldDescriptor string) int {
	if len(fieldDescriptor) > 0 && (fieldDescriptor[0] == 'J' || fieldDescriptor[0] == 'D') {
		return 2
	}
	return 1
}

// ElementType strips leading array-dimension markers, returning the
// dimension count and the element field descriptor.
func ElementType(desc string) (dims int, element string) {
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	return dims, desc[dims:]
}

// ClassInternalName returns the internal name embedded in an "L...;"
// field descriptor, and whether desc was actually an object type.
func ClassInternalName(desc string) (string, bool) {
	if len(desc) < 3 || desc[0] != 'L' || desc[len(desc)-1] != ';' {
		return "", false
	}
	return desc[1 : len(desc)-1], true
}
