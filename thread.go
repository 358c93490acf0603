package gdbstub

import (
	"fmt"
	"strconv"
	"strings"
)

// Tid identifies a single thread of a debugged target. It is always a
// non-zero integer when it names a real thread; the reserved values
// TidAll and TidAny only ever appear inside a ThreadSelector.
type Tid int64

const (
	// TidAll selects every thread ("-1" on the wire).
	TidAll Tid = -1
	// TidAny selects an unspecified thread ("0" on the wire); the engine
	// resolves it to the first thread reported by ListActiveThreads.
	TidAny Tid = 0
)

// ThreadSelector is the parsed form of a thread-id as it appears after H
// and T packets, and inside a vCont action: either "every thread" or a
// specific (possibly TidAny) thread.
type ThreadSelector struct {
	All bool
	Id  Tid
}

func selectorOf(tid Tid) ThreadSelector {
	if tid == TidAll {
		return ThreadSelector{All: true}
	}
	return ThreadSelector{Id: tid}
}

// SpecificThreadId pairs an optional process id (present only once
// multiprocess extensions are in play) with a thread selector, as used
// by qfThreadInfo enumeration and vCont action thread qualifiers.
type SpecificThreadId struct {
	Pid    *int64
	Thread ThreadSelector
}

// parseThreadId parses the GDB thread-id grammar used after 'H'/'T' and
// as vCont action qualifiers: "[p<pid>.]<tid>", where <tid> is either
// the literal "-1" (all) or a hex number ("0" meaning any).
func parseThreadId(s []byte) (SpecificThreadId, error) {
	str := string(s)
	var pid *int64
	if strings.HasPrefix(str, "p") {
		rest := str[1:]
		dot := strings.IndexByte(rest, '.')
		if dot < 0 {
			return SpecificThreadId{}, newErr(ErrPacketParse)
		}
		pidPart, tidPart := rest[:dot], rest[dot+1:]
		p, err := parseThreadNum(pidPart)
		if err != nil {
			return SpecificThreadId{}, err
		}
		pv := int64(p)
		pid = &pv
		str = tidPart
	}
	n, err := parseThreadNum(str)
	if err != nil {
		return SpecificThreadId{}, err
	}
	return SpecificThreadId{Pid: pid, Thread: selectorOf(n)}, nil
}

// parseThreadNum parses a single tid/pid component: "-1" literally, or a
// hex number otherwise (GDB never zero-pads or sign-extends these).
func parseThreadNum(s string) (Tid, error) {
	if s == "-1" {
		return TidAll, nil
	}
	n, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0, newErr(ErrPacketParse)
	}
	return Tid(n), nil
}

func (t Tid) String() string {
	if t == TidAll {
		return "-1"
	}
	return fmt.Sprintf("%x", int64(t))
}

// writeThreadId renders a SpecificThreadId onto the wire, prefixing
// "p<pid>." whenever multiprocess extensions are in effect (FakePid is
// used when the host doesn't model processes but multiprocess was still
// advertised, per spec §9 design note (d)).
func writeThreadId(w *ResponseWriter, multiprocess bool, id SpecificThreadId) error {
	if multiprocess {
		pid := FakePid
		if id.Pid != nil {
			pid = *id.Pid
		}
		if err := w.WriteStr("p"); err != nil {
			return err
		}
		if err := w.WriteStr(fmt.Sprintf("%x", pid)); err != nil {
			return err
		}
		if err := w.WriteStr("."); err != nil {
			return err
		}
	}
	if id.Thread.All {
		return w.WriteStr("-1")
	}
	return w.WriteStr(id.Thread.Id.String())
}
