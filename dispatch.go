package gdbstub

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// outcome is the four-way result of dispatching one command (spec §4.5),
// outcomeDeferredStop being the result of a resume command.
type outcome int

const (
	outcomeHandled outcome = iota
	outcomeNeedsOK
	outcomeDisconnect
	outcomeDeferredStop
)

type dispatchResult struct {
	outcome    outcome
	disconnect DisconnectReason
}

// engine holds the dispatcher's session state (spec §3). It is owned
// exclusively by one Stub for the lifetime of one connection.
type engine struct {
	noAckMode        bool
	currentMemTid    Tid
	currentResumeTid ThreadSelector
	multiprocess     bool
	extendedMode     bool
	gate             *FeatureGate
	clientVersion    string
	log              *logrus.Entry
	recorder         Recorder
}

func newEngine(cfg Config) *engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &engine{
		currentMemTid:    SingleThreadTid,
		currentResumeTid: selectorOf(SingleThreadTid),
		multiprocess:     true,
		gate:             cfg.FeatureGate,
		clientVersion:    cfg.ClientVersion,
		log:              logger.WithField("component", "gdbstub"),
		recorder:         cfg.Recorder,
	}
}

func (e *engine) allows(feature string) bool {
	if e.gate == nil {
		return true
	}
	return e.gate.Allows(e.clientVersion, feature)
}

// dispatch implements spec §4.5: translate cmd into calls against the
// target, update engine state, and write exactly one response (except
// for resume commands, which defer the response to the stop-reason
// path).
func (e *engine) dispatch(cmd Command, target Target, w *ResponseWriter, packetSize int) (dispatchResult, error) {
	start := time.Now()
	name := commandName(cmd)
	defer func() {
		if e.recorder != nil {
			e.recorder.ObserveCommand(name, time.Since(start))
		}
	}()

	switch c := cmd.(type) {
	case cmdUnknown:
		return dispatchResult{outcome: outcomeHandled}, nil

	case cmdQSupported:
		return dispatchResult{outcome: outcomeHandled}, e.handleQSupported(target, w, packetSize)

	case cmdQStartNoAckMode:
		e.noAckMode = true
		return dispatchResult{outcome: outcomeNeedsOK}, nil

	case cmdQXferFeaturesRead:
		return dispatchResult{outcome: outcomeHandled}, e.handleQXferFeaturesRead(target, w, c)

	case cmdQuestionMark:
		return dispatchResult{outcome: outcomeHandled}, w.WriteStr("S05")

	case cmdQAttached:
		return dispatchResult{outcome: outcomeHandled}, e.handleQAttached(target, w, c)

	case cmdReadRegisters:
		return dispatchResult{outcome: outcomeHandled}, e.handleReadRegisters(target, w)

	case cmdWriteRegisters:
		return dispatchResult{outcome: outcomeHandled}, e.handleWriteRegisters(target, w, c)

	case cmdReadMemory:
		return dispatchResult{outcome: outcomeHandled}, e.handleReadMemory(target, w, c, packetSize)

	case cmdWriteMemory:
		return dispatchResult{outcome: outcomeHandled}, e.handleWriteMemory(target, w, c)

	case cmdKill:
		return e.handleKill(target, w, nil)

	case cmdVKill:
		return e.handleKill(target, w, c.pid)

	case cmdDetach:
		if err := w.WriteStr("OK"); err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{outcome: outcomeDisconnect, disconnect: DisconnectClient}, nil

	case cmdVContQuery:
		return dispatchResult{outcome: outcomeHandled}, w.WriteStr(vContSupportedString(target))

	case cmdVCont:
		if err := resumeVCont(target, c.actions); err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{outcome: outcomeDeferredStop}, nil

	case cmdContinue:
		var sig *uint8
		actions := legacyResumeAction(sig, false, e.currentResumeTid)
		if err := resumeVCont(target, actions); err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{outcome: outcomeDeferredStop}, nil

	case cmdStep:
		var sig *uint8
		actions := legacyResumeAction(sig, true, e.currentResumeTid)
		if err := resumeVCont(target, actions); err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{outcome: outcomeDeferredStop}, nil

	case cmdSetThread:
		return dispatchResult{outcome: outcomeHandled}, e.handleSetThread(target, w, c)

	case cmdQfThreadInfo:
		return dispatchResult{outcome: outcomeHandled}, e.handleThreadInfo(target, w)

	case cmdQsThreadInfo:
		return dispatchResult{outcome: outcomeHandled}, w.WriteStr("l")

	case cmdTThread:
		return dispatchResult{outcome: outcomeHandled}, e.handleTThread(target, w, c)

	case cmdQRegisterInfo:
		return dispatchResult{outcome: outcomeHandled}, e.handleRegisterInfo(target, w, c)

	default:
		return dispatchResult{outcome: outcomeHandled}, nil
	}
}

func commandName(cmd Command) string {
	switch cmd.(type) {
	case cmdUnknown:
		return "unknown"
	case cmdQSupported:
		return "qSupported"
	case cmdQStartNoAckMode:
		return "QStartNoAckMode"
	case cmdQXferFeaturesRead:
		return "qXfer:features:read"
	case cmdQuestionMark:
		return "?"
	case cmdQAttached:
		return "qAttached"
	case cmdReadRegisters:
		return "g"
	case cmdWriteRegisters:
		return "G"
	case cmdReadMemory:
		return "m"
	case cmdWriteMemory:
		return "M"
	case cmdKill:
		return "k"
	case cmdVKill:
		return "vKill"
	case cmdDetach:
		return "D"
	case cmdVContQuery:
		return "vCont?"
	case cmdVCont:
		return "vCont"
	case cmdContinue:
		return "c"
	case cmdStep:
		return "s"
	case cmdSetThread:
		return "H"
	case cmdQfThreadInfo:
		return "qfThreadInfo"
	case cmdQsThreadInfo:
		return "qsThreadInfo"
	case cmdTThread:
		return "T"
	case cmdQRegisterInfo:
		return "qRegisterInfo"
	default:
		return "?unknown?"
	}
}

func (e *engine) handleQSupported(target Target, w *ResponseWriter, packetSize int) error {
	if err := w.WriteStr("PacketSize="); err != nil {
		return err
	}
	if err := w.WriteNum(uint64(packetSize)); err != nil {
		return err
	}
	if err := w.WriteStr(";" + vContSupportedString(target) + "+"); err != nil {
		return err
	}
	if err := w.WriteStr(";multiprocess+;QStartNoAckMode+"); err != nil {
		return err
	}

	caps, _ := baseReverseCaps(target)
	if caps.cont && e.allows("ReverseContinue") {
		if err := w.WriteStr(";ReverseContinue+"); err != nil {
			return err
		}
	}
	if caps.step && e.allows("ReverseStep") {
		if err := w.WriteStr(";ReverseStep+"); err != nil {
			return err
		}
	}

	if ext := target.SupportExtendedMode(); ext != nil {
		if ext.SupportConfigureAslr() {
			if err := w.WriteStr(";QDisableRandomization+"); err != nil {
				return err
			}
		}
		if ext.SupportConfigureEnv() {
			if err := w.WriteStr(";QEnvironmentHexEncoded+;QEnvironmentUnset+;QEnvironmentReset+"); err != nil {
				return err
			}
		}
		if ext.SupportConfigureStartupShell() {
			if err := w.WriteStr(";QStartupWithShell+"); err != nil {
				return err
			}
		}
		if ext.SupportConfigureWorkingDir() {
			if err := w.WriteStr(";QSetWorkingDir+"); err != nil {
				return err
			}
		}
	}

	if bp := target.SupportBreakpoints(); bp != nil {
		if bp.SupportSwBreakpoint() {
			if err := w.WriteStr(";swbreak+"); err != nil {
				return err
			}
		}
		if bp.SupportHwBreakpoint() || bp.SupportHwWatchpoint() {
			if err := w.WriteStr(";hwbreak+"); err != nil {
				return err
			}
		}
	}

	if target.SupportCatchSyscalls() != nil && e.allows("QCatchSyscalls") {
		if err := w.WriteStr(";QCatchSyscalls+"); err != nil {
			return err
		}
	}

	_, hasStaticXML := target.Arch().TargetDescriptionXML()
	if hasStaticXML || target.SupportTargetDescriptionXMLOverride() != nil {
		if err := w.WriteStr(";qXfer:features:read+"); err != nil {
			return err
		}
	}
	if target.SupportMemoryMap() != nil {
		if err := w.WriteStr(";qXfer:memory-map:read+"); err != nil {
			return err
		}
	}
	if target.SupportExecFile() != nil {
		if err := w.WriteStr(";qXfer:exec-file:read+"); err != nil {
			return err
		}
	}
	if target.SupportAuxv() != nil {
		if err := w.WriteStr(";qXfer:auxv:read+"); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) handleQXferFeaturesRead(target Target, w *ResponseWriter, c cmdQXferFeaturesRead) error {
	var n int
	var err error
	if override := target.SupportTargetDescriptionXMLOverride(); override != nil {
		buf := make([]byte, c.length)
		n, err = override.TargetDescriptionXML(c.offset, c.length, buf)
		if err != nil {
			return wrapTarget(err)
		}
		return writeXferWindow(w, buf[:n])
	}
	xml, ok := target.Arch().TargetDescriptionXML()
	if !ok {
		return newErr(ErrPacketUnexpected)
	}
	xml = strings.TrimSpace(xml)
	start := min(len(xml), c.offset)
	end := min(len(xml), c.offset+c.length)
	if end < start {
		end = start
	}
	return writeXferWindow(w, []byte(xml[start:end]))
}

func writeXferWindow(w *ResponseWriter, data []byte) error {
	if len(data) == 0 {
		return w.WriteStr("l")
	}
	if err := w.WriteStr("m"); err != nil {
		return err
	}
	return w.WriteBinary(data)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (e *engine) handleQAttached(target Target, w *ResponseWriter, c cmdQAttached) error {
	isAttached := true
	if ext := target.SupportExtendedMode(); ext != nil {
		if c.pid == nil {
			return newErr(ErrPacketUnexpected)
		}
		attached, err := ext.QueryIfAttached(c.pid)
		if err != nil {
			return wrapTarget(err)
		}
		isAttached = attached
	}
	if isAttached {
		return w.WriteStr("1")
	}
	return w.WriteStr("0")
}

func (e *engine) handleReadRegisters(target Target, w *ResponseWriter) error {
	regs := target.Arch().NewRegisters()
	switch ops := target.BaseOps().(type) {
	case SingleThreadBase:
		if err := ops.ReadRegisters(regs); err != nil {
			return wrapTarget(err)
		}
	case MultiThreadBase:
		if err := ops.ReadRegisters(regs, e.currentMemTid); err != nil {
			return wrapTarget(err)
		}
	}
	var buf registersBuf
	buf.collect(regs)
	for _, b := range buf.bytes {
		if b.missing {
			if err := w.WriteMissingHex(); err != nil {
				return err
			}
			continue
		}
		if err := w.WriteHexBuf([]byte{b.value}); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) handleWriteRegisters(target Target, w *ResponseWriter, c cmdWriteRegisters) error {
	raw, err := decodeHex(c.hex)
	if err != nil {
		return newErr(ErrPacketParse)
	}
	regs := target.Arch().NewRegisters()
	if err := regs.Deserialize(raw); err != nil {
		return newErr(ErrTargetMismatch)
	}
	var derr error
	switch ops := target.BaseOps().(type) {
	case SingleThreadBase:
		derr = ops.WriteRegisters(regs)
	case MultiThreadBase:
		derr = ops.WriteRegisters(regs, e.currentMemTid)
	}
	if derr != nil {
		return wrapTarget(derr)
	}
	return w.WriteStr("OK")
}

func (e *engine) handleReadMemory(target Target, w *ResponseWriter, c cmdReadMemory, packetSize int) error {
	remaining := c.length
	addr := c.addr
	total := make([]byte, 0, c.length)
	chunk := make([]byte, packetSize)
	for remaining > 0 {
		n := uint64(packetSize)
		if n > remaining {
			n = remaining
		}
		var read int
		var err error
		switch ops := target.BaseOps().(type) {
		case SingleThreadBase:
			read, err = ops.ReadAddrs(addr, chunk[:n])
		case MultiThreadBase:
			read, err = ops.ReadAddrs(addr, chunk[:n], e.currentMemTid)
		}
		if err != nil {
			return wrapTarget(err)
		}
		total = append(total, chunk[:read]...)
		addr += n
		remaining -= n
	}
	return w.WriteHexBuf(total)
}

func (e *engine) handleWriteMemory(target Target, w *ResponseWriter, c cmdWriteMemory) error {
	data, err := decodeHex(c.hex)
	if err != nil {
		return newErr(ErrPacketParse)
	}
	var derr error
	switch ops := target.BaseOps().(type) {
	case SingleThreadBase:
		derr = ops.WriteAddrs(c.addr, data)
	case MultiThreadBase:
		derr = ops.WriteAddrs(c.addr, data, e.currentMemTid)
	}
	if derr != nil {
		return wrapTarget(derr)
	}
	return w.WriteStr("OK")
}

func (e *engine) handleKill(target Target, w *ResponseWriter, pid *int64) (dispatchResult, error) {
	if !e.extendedMode {
		return dispatchResult{outcome: outcomeDisconnect, disconnect: DisconnectKill}, nil
	}
	ext := target.SupportExtendedMode()
	if ext == nil {
		return dispatchResult{outcome: outcomeDisconnect, disconnect: DisconnectKill}, nil
	}
	end, err := ext.Kill(pid)
	if err != nil {
		return dispatchResult{}, wrapTarget(err)
	}
	if err := w.WriteStr("OK"); err != nil {
		return dispatchResult{}, err
	}
	if end {
		return dispatchResult{outcome: outcomeDisconnect, disconnect: DisconnectKill}, nil
	}
	return dispatchResult{outcome: outcomeHandled}, nil
}

func (e *engine) handleSetThread(target Target, w *ResponseWriter, c cmdSetThread) error {
	if c.op == 'g' {
		if c.thread.Thread.All {
			return newErr(ErrPacketUnexpected)
		}
		tid := c.thread.Thread.Id
		if tid == TidAny {
			resolved, err := e.resolveAnyThread(target)
			if err != nil {
				return err
			}
			tid = resolved
		}
		e.currentMemTid = tid
		return w.WriteStr("OK")
	}
	sel := c.thread.Thread
	if sel.Id == TidAny && !sel.All {
		resolved, err := e.resolveAnyThread(target)
		if err != nil {
			return err
		}
		sel = selectorOf(resolved)
	}
	e.currentResumeTid = sel
	return w.WriteStr("OK")
}

func (e *engine) resolveAnyThread(target Target) (Tid, error) {
	switch ops := target.BaseOps().(type) {
	case SingleThreadBase:
		return SingleThreadTid, nil
	case MultiThreadBase:
		var first *Tid
		if err := ops.ListActiveThreads(func(t Tid) {
			if first == nil {
				tc := t
				first = &tc
			}
		}); err != nil {
			return 0, wrapTarget(err)
		}
		if first == nil {
			return 0, newErr(ErrNoActiveThreads)
		}
		return *first, nil
	default:
		return 0, newErr(ErrNoActiveThreads)
	}
}

func (e *engine) handleThreadInfo(target Target, w *ResponseWriter) error {
	ops, ok := target.BaseOps().(MultiThreadBase)
	if !ok {
		if err := w.WriteStr("m"); err != nil {
			return err
		}
		return w.WriteSpecificThreadId(e.multiprocess, SpecificThreadId{Thread: selectorOf(SingleThreadTid)})
	}
	if err := w.WriteStr("m"); err != nil {
		return err
	}
	first := true
	var outerErr error
	if err := ops.ListActiveThreads(func(t Tid) {
		if outerErr != nil {
			return
		}
		if !first {
			outerErr = w.WriteStr(",")
		}
		first = false
		if outerErr == nil {
			outerErr = w.WriteSpecificThreadId(e.multiprocess, SpecificThreadId{Thread: selectorOf(t)})
		}
	}); err != nil {
		return wrapTarget(err)
	}
	return outerErr
}

func (e *engine) handleTThread(target Target, w *ResponseWriter, c cmdTThread) error {
	if c.thread.Thread.All {
		return newErr(ErrPacketUnexpected)
	}
	switch ops := target.BaseOps().(type) {
	case SingleThreadBase:
		_ = ops
		if c.thread.Thread.Id != SingleThreadTid {
			return NonFatal(1)
		}
		return w.WriteStr("OK")
	case MultiThreadBase:
		alive, err := ops.IsThreadAlive(c.thread.Thread.Id)
		if err != nil {
			return wrapTarget(err)
		}
		if !alive {
			return NonFatal(1)
		}
		return w.WriteStr("OK")
	default:
		return NonFatal(1)
	}
}

func (e *engine) handleRegisterInfo(target Target, w *ResponseWriter, c cmdQRegisterInfo) error {
	ops := target.SupportRegisterInfo()
	if ops == nil {
		return nil
	}
	info, ok := ops.GetRegisterInfo(c.n)
	if !ok {
		return w.WriteStr("OK")
	}
	return w.WriteStr(info)
}
