package drumcore

// UiEvent is the sealed set of debounced inputs the UI collaborator
// delivers to Core.HandleEvent (spec.md §6). Core does not own any
// debounce or quadrature-decode state machine; it only reacts to these
// already-clean events.
type UiEvent interface{ isUiEvent() }

// StartPressed toggles play/stop.
type StartPressed struct{}

// EncoderRotated carries a signed tick delta from the rotary encoder.
// With the coarse increment engaged (see EncoderClicked) each tick
// moves BPM by 10; otherwise by 1.
type EncoderRotated struct{ Delta int }

// EncoderClicked toggles the coarse/fine increment between ×1 and ×10.
type EncoderClicked struct{}

// EditPressed and PatternPressed select UI screens the core does not
// render; Core only needs to accept the call without erroring, since
// screen/mode state belongs to the display collaborator.
type EditPressed struct{}
type PatternPressed struct{}

func (StartPressed) isUiEvent()   {}
func (EncoderRotated) isUiEvent() {}
func (EncoderClicked) isUiEvent() {}
func (EditPressed) isUiEvent()    {}
func (PatternPressed) isUiEvent() {}

// HandleEvent applies one UI event to the control surface. BPM
// adjustments from the encoder are clamped by tempo.Clock the same way
// a direct SetBPM call would be.
func (c *Core) HandleEvent(ev UiEvent) {
	switch e := ev.(type) {
	case StartPressed:
		if c.IsPlaying() {
			c.Stop()
		} else {
			c.Start()
		}
	case EncoderClicked:
		c.mu.Lock()
		c.coarseEncoder = !c.coarseEncoder
		c.mu.Unlock()
	case EncoderRotated:
		step := 1
		c.mu.Lock()
		if c.coarseEncoder {
			step = 10
		}
		c.mu.Unlock()
		bpm := int(c.GetBPM()) + e.Delta*step
		if bpm < 0 {
			bpm = 0
		}
		c.SetBPM(uint16(bpm))
	case EditPressed, PatternPressed:
		// Screen selection lives entirely in the display collaborator.
	}
}
