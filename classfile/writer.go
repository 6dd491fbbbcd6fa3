package classfile

import (
	"bytes"
	"encoding/binary"
	"io"
)

type builder struct {
	buf bytes.Buffer
}

func (b *builder) u1(v byte)    { b.buf.WriteByte(v) }
func (b *builder) u2(v uint16)  { var tmp [2]byte; binary.BigEndian.PutUint16(tmp[:], v); b.buf.Write(tmp[:]) }
func (b *builder) u4(v uint32)  { var tmp [4]byte; binary.BigEndian.PutUint32(tmp[:], v); b.buf.Write(tmp[:]) }
func (b *builder) raw(p []byte) { b.buf.Write(p) }

// Write encodes cf as a .class file to w.
func Write(w io.Writer, cf *ClassFile) error {
	// Everything after the constant pool is encoded first: writing an
	// attribute interns its name into the pool, so the pool is emitted
	// only once the rest of the class has been encoded.
	b := &builder{}
	b.u2(cf.AccessFlags)
	b.u2(cf.ThisClass)
	b.u2(cf.SuperClass)

	b.u2(uint16(len(cf.Interfaces)))
	for _, idx := range cf.Interfaces {
		b.u2(idx)
	}

	b.u2(uint16(len(cf.Fields)))
	for _, f := range cf.Fields {
		writeField(b, cf.Pool, f)
	}

	b.u2(uint16(len(cf.Methods)))
	for _, m := range cf.Methods {
		writeMethod(b, cf.Pool, m)
	}

	classAttrCount := len(cf.OtherAttributes)
	if cf.SourceFile != nil {
		classAttrCount++
	}
	if len(cf.BootstrapMethods) > 0 {
		classAttrCount++
	}
	if cf.IsRecord {
		classAttrCount++
	}
	b.u2(uint16(classAttrCount))
	if cf.SourceFile != nil {
		b.u2(cf.Pool.InternUtf8(AttrSourceFile))
		b.u4(2)
		b.u2(*cf.SourceFile)
	}
	if len(cf.BootstrapMethods) > 0 {
		writeBootstrapMethods(b, cf.Pool, cf.BootstrapMethods)
	}
	if cf.IsRecord {
		writeRecord(b, cf.Pool, cf.RecordComponents)
	}
	for _, a := range cf.OtherAttributes {
		writeRawAttribute(b, cf.Pool, a)
	}

	head := &builder{}
	head.u4(0xCAFEBABE)
	head.u2(cf.MinorVersion)
	head.u2(cf.MajorVersion)
	writeConstantPool(head, cf.Pool)
	head.raw(b.buf.Bytes())

	_, err := w.Write(head.buf.Bytes())
	return err
}

func writeConstantPool(b *builder, p *ConstantPool) {
	b.u2(uint16(len(p.entries)))
	for i := 1; i < len(p.entries); i++ {
		e := p.entries[i]
		if e.Tag == 0 {
			continue // Long/Double placeholder slot, not separately encoded
		}
		b.u1(e.Tag)
		switch e.Tag {
		case TagUtf8:
			data := []byte(e.Utf8)
			b.u2(uint16(len(data)))
			b.raw(data)
		case TagInteger, TagFloat:
			b.u4(uint32(e.Int32))
		case TagLong, TagDouble:
			b.u4(uint32(e.Int64 >> 32))
			b.u4(uint32(e.Int64))
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			b.u2(e.Index1)
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			b.u2(e.Index1)
			b.u2(e.Index2)
		case TagMethodHandle:
			b.u1(e.RefKind)
			b.u2(e.Index2)
		}
	}
}

func writeRawAttribute(b *builder, p *ConstantPool, a RawAttribute) {
	b.u2(p.InternUtf8(a.Name))
	b.u4(uint32(len(a.Info)))
	b.raw(a.Info)
}

func writeField(b *builder, p *ConstantPool, f *FieldInfo) {
	b.u2(f.AccessFlags)
	b.u2(f.NameIndex)
	b.u2(f.DescIndex)
	b.u2(uint16(len(f.Attributes)))
	for _, a := range f.Attributes {
		writeRawAttribute(b, p, a)
	}
}

func writeMethod(b *builder, p *ConstantPool, m *MethodInfo) {
	b.u2(m.AccessFlags)
	b.u2(m.NameIndex)
	b.u2(m.DescIndex)

	attrCount := len(m.Attributes)
	if m.Code != nil {
		attrCount++
	}
	b.u2(uint16(attrCount))
	if m.Code != nil {
		writeCode(b, p, m.Code)
	}
	for _, a := range m.Attributes {
		writeRawAttribute(b, p, a)
	}
}

func writeBootstrapMethods(b *builder, p *ConstantPool, methods []BootstrapMethod) {
	b.u2(p.InternUtf8(AttrBootstrapMethods))
	var body builder
	body.u2(uint16(len(methods)))
	for _, bm := range methods {
		body.u2(bm.MethodRefIndex)
		body.u2(uint16(len(bm.Arguments)))
		for _, a := range bm.Arguments {
			body.u2(a)
		}
	}
	b.u4(uint32(body.buf.Len()))
	b.raw(body.buf.Bytes())
}

func writeRecord(b *builder, p *ConstantPool, comps []RecordComponentInfo) {
	b.u2(p.InternUtf8(AttrRecord))
	var body builder
	body.u2(uint16(len(comps)))
	for _, c := range comps {
		body.u2(c.NameIndex)
		body.u2(c.DescIndex)
		body.u2(uint16(len(c.Attributes)))
		for _, a := range c.Attributes {
			writeRawAttribute(&body, p, a)
		}
	}
	b.u4(uint32(body.buf.Len()))
	b.raw(body.buf.Bytes())
}

func writeCode(b *builder, p *ConstantPool, code *CodeAttribute) {
	b.u2(p.InternUtf8(AttrCode))
	var body builder
	body.u2(code.MaxStack)
	body.u2(code.MaxLocals)
	body.u4(uint32(len(code.Code)))
	body.raw(code.Code)
	body.u2(uint16(len(code.ExceptionTable)))
	for _, e := range code.ExceptionTable {
		body.u2(e.StartPC)
		body.u2(e.EndPC)
		body.u2(e.HandlerPC)
		body.u2(e.CatchType)
	}

	attrCount := len(code.OtherAttributes)
	if code.LocalVariableTable != nil {
		attrCount++
	}
	if code.LocalVariableTypeTable != nil {
		attrCount++
	}
	body.u2(uint16(attrCount))
	if code.LocalVariableTable != nil {
		writeLocalVarTable(&body, p, AttrLocalVariableTable, code.LocalVariableTable)
	}
	if code.LocalVariableTypeTable != nil {
		writeLocalVarTable(&body, p, AttrLocalVariableTypeTable, code.LocalVariableTypeTable)
	}
	for _, a := range code.OtherAttributes {
		writeRawAttribute(&body, p, a)
	}

	b.u4(uint32(body.buf.Len()))
	b.raw(body.buf.Bytes())
}

func writeLocalVarTable(b *builder, p *ConstantPool, name string, rows []LocalVar) {
	b.u2(p.InternUtf8(name))
	var body builder
	body.u2(uint16(len(rows)))
	for _, v := range rows {
		body.u2(v.StartPC)
		body.u2(v.Length)
		body.u2(v.NameIndex)
		body.u2(v.DescIndex)
		body.u2(v.Slot)
	}
	b.u4(uint32(body.buf.Len()))
	b.raw(body.buf.Bytes())
}
