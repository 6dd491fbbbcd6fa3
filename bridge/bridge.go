// Package bridge restores the BRIDGE access flag some obfuscators
// strip, by heuristically recognizing compiler-generated bridge
// methods post-remap (spec §4.I). It is a pure function over an
// already-parsed classfile.ClassFile — no external dependency needed,
// grounded on classfile's own instruction decoder.
package bridge

import "github.com/Fallen-Breath/monument/classfile"

// Detect scans cf for methods that are SYNTHETIC but not BRIDGE whose
// instruction body invokes only specializations of themselves on cf's
// own type hierarchy, and sets their BRIDGE flag. It returns the
// names of the methods it flagged, for logging.
func Detect(cf *classfile.ClassFile) ([]string, error) {
	var flagged []string
	owners := candidateOwners(cf)

	for _, m := range cf.Methods {
		if m.AccessFlags&classfile.AccSynthetic == 0 || m.AccessFlags&classfile.AccBridge != 0 {
			continue
		}
		if m.Code == nil {
			continue
		}
		ok, err := isProbableBridge(cf, m, owners)
		if err != nil {
			return flagged, err
		}
		if ok {
			m.AccessFlags |= classfile.AccBridge
			flagged = append(flagged, m.Name(cf.Pool))
		}
	}
	return flagged, nil
}

func candidateOwners(cf *classfile.ClassFile) map[string]bool {
	owners := map[string]bool{cf.Name(): true}
	if s := cf.SuperName(); s != "" {
		owners[s] = true
	}
	for _, i := range cf.InterfaceNames() {
		owners[i] = true
	}
	return owners
}

func isProbableBridge(cf *classfile.ClassFile, m *classfile.MethodInfo, owners map[string]bool) (bool, error) {
	name := m.Name(cf.Pool)
	arity := paramCount(m.Descriptor(cf.Pool))

	insts, err := classfile.DecodeInstructions(m.Code.Code)
	if err != nil {
		return false, err
	}

	sawCall := false
	for _, inst := range insts {
		if !classfile.IsInvoke(inst.Opcode) {
			continue
		}
		ref, ok := cf.Pool.MemberRefAt(inst.CPIndex)
		if !ok {
			return false, nil
		}
		if inst.Opcode == classfile.OpInvokeInterface || ref.IsInterface {
			return false, nil // target is an interface method, not a specialization of m
		}
		if !owners[ref.Owner] {
			return false, nil
		}
		if ref.Name != name {
			return false, nil
		}
		if paramCount(ref.Descriptor) != arity {
			return false, nil
		}
		sawCall = true
	}
	return sawCall, nil
}

func paramCount(descriptor string) int {
	params, _ := classfile.SplitMethodDescriptor(descriptor)
	return len(params)
}
