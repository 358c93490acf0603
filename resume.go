package gdbstub

// vContSupportedString reports the "vCont;..." capability list for
// qSupported/vCont?, per spec §4.5: always c/C, s/S when any single-step
// capability exists, r when range-step exists.
func vContSupportedString(target Target) string {
	s := "vCont;c;C"
	switch ops := target.BaseOps().(type) {
	case SingleThreadBase:
		if ops.SupportSingleStep() != nil {
			s += ";s;S"
		}
		if ops.SupportRangeStep() != nil {
			s += ";r"
		}
	case MultiThreadBase:
		if ops.SupportSingleStep() != nil {
			s += ";s;S"
		}
		if ops.SupportRangeStep() != nil {
			s += ";r"
		}
	}
	return s
}

// resumeSingleThread implements spec §4.6's single-thread resume
// machine: at most two actions, the second of which (if present) must be
// a bare continue-default.
func resumeSingleThread(ops SingleThreadBase, actions []VContAction) error {
	if len(actions) == 0 || len(actions) > 2 {
		return newErr(ErrPacketUnexpected)
	}
	if len(actions) == 2 {
		second := actions[1]
		if second.Kind != VContContinue || second.Thread != nil {
			return newErr(ErrPacketUnexpected)
		}
	}
	first := actions[0]
	switch first.Kind {
	case VContContinue:
		return wrapTarget(ops.Resume(nil))
	case VContContinueSig:
		sig := first.Sig
		return wrapTarget(ops.Resume(&sig))
	case VContStep:
		step := ops.SupportSingleStep()
		if step == nil {
			return newErr(ErrPacketUnexpected)
		}
		return wrapTarget(step.Step(nil))
	case VContStepSig:
		step := ops.SupportSingleStep()
		if step == nil {
			return newErr(ErrPacketUnexpected)
		}
		sig := first.Sig
		return wrapTarget(step.Step(&sig))
	case VContRangeStep:
		rs := ops.SupportRangeStep()
		if rs == nil {
			return newErr(ErrPacketUnexpected)
		}
		return wrapTarget(rs.ResumeRangeStep(first.RangeStart, first.RangeEnd))
	case VContStop:
		return newErr(ErrPacketUnexpected)
	default:
		return newErr(ErrPacketUnexpected)
	}
}

// resumeMultiThread implements spec §4.6's multi-thread resume machine:
// clear installed actions, install one action per referenced thread (or
// a single default action for threads left unaddressed), then resume.
// Step and RangeStep may never be used as the default action.
func resumeMultiThread(ops MultiThreadBase, actions []VContAction) error {
	if err := wrapTarget(ops.ClearResumeActions()); err != nil {
		return err
	}
	for _, a := range actions {
		isDefault := a.Thread == nil || a.Thread.Thread.All
		switch a.Kind {
		case VContContinue:
			if isDefault {
				if err := wrapTarget(ops.SetDefaultResumeActionContinue(nil)); err != nil {
					return err
				}
			} else if err := wrapTarget(ops.SetResumeActionContinue(a.Thread.Thread.Id, nil)); err != nil {
				return err
			}
		case VContContinueSig:
			sig := a.Sig
			if isDefault {
				if err := wrapTarget(ops.SetDefaultResumeActionContinue(&sig)); err != nil {
					return err
				}
			} else if err := wrapTarget(ops.SetResumeActionContinue(a.Thread.Thread.Id, &sig)); err != nil {
				return err
			}
		case VContStep, VContStepSig:
			if isDefault {
				return newErr(ErrPacketUnexpected)
			}
			step := ops.SupportSingleStep()
			if step == nil {
				return newErr(ErrPacketUnexpected)
			}
			var sig *uint8
			if a.Kind == VContStepSig {
				s := a.Sig
				sig = &s
			}
			if err := wrapTarget(step.SetResumeActionStep(a.Thread.Thread.Id, sig)); err != nil {
				return err
			}
		case VContRangeStep:
			if isDefault {
				return newErr(ErrPacketUnexpected)
			}
			rs := ops.SupportRangeStep()
			if rs == nil {
				return newErr(ErrPacketUnexpected)
			}
			if err := wrapTarget(rs.SetResumeActionRangeStep(a.Thread.Thread.Id, a.RangeStart, a.RangeEnd)); err != nil {
				return err
			}
		case VContStop:
			return newErr(ErrPacketUnexpected)
		default:
			return newErr(ErrPacketUnexpected)
		}
	}
	return wrapTarget(ops.Resume())
}

// resumeVCont dispatches to the single- or multi-thread resume machine
// according to the target's declared BaseOps shape.
func resumeVCont(target Target, actions []VContAction) error {
	switch ops := target.BaseOps().(type) {
	case SingleThreadBase:
		return resumeSingleThread(ops, actions)
	case MultiThreadBase:
		return resumeMultiThread(ops, actions)
	default:
		return newErr(ErrPacketUnexpected)
	}
}

// legacyResumeAction translates a legacy 'c'/'s' packet into the
// single-action vCont form bound to the engine's current_resume_tid, per
// spec §4.5.
func legacyResumeAction(sig *uint8, step bool, resumeTid ThreadSelector) []VContAction {
	var thread *SpecificThreadId
	if !resumeTid.All {
		id := SpecificThreadId{Thread: resumeTid}
		thread = &id
	}
	a := VContAction{Thread: thread}
	switch {
	case step && sig != nil:
		a.Kind = VContStepSig
		a.Sig = *sig
	case step:
		a.Kind = VContStep
	case sig != nil:
		a.Kind = VContContinueSig
		a.Sig = *sig
	default:
		a.Kind = VContContinue
	}
	return []VContAction{a}
}
