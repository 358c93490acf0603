package gdbstub

// registerByte is one byte of a serialized register file; missing marks
// a byte the host declined to collect (serialized as "xx").
type registerByte struct {
	value   byte
	missing bool
}

// registersBuf collects the bytes produced by a host Registers.Serialize
// call, in target.xml order, for the 'g' handler to hex-encode.
type registersBuf struct {
	bytes []registerByte
}

func (r *registersBuf) collect(regs Registers) {
	regs.Serialize(func(b *byte) {
		if b == nil {
			r.bytes = append(r.bytes, registerByte{missing: true})
			return
		}
		r.bytes = append(r.bytes, registerByte{value: *b})
	})
}

func decodeHex(hex []byte) ([]byte, error) {
	if len(hex)%2 != 0 {
		return nil, newErr(ErrPacketParse)
	}
	out := make([]byte, len(hex)/2)
	for i := 0; i < len(out); i++ {
		hi, ok1 := hexVal(hex[2*i])
		lo, ok2 := hexVal(hex[2*i+1])
		if !ok1 || !ok2 {
			return nil, newErr(ErrPacketParse)
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}
