package chatstate

// Dispatcher routes outbound events to registered callbacks.
type Dispatcher struct {
	onMessage      func(MessageEvent)
	onThreadLoaded func(ThreadLoadedEvent)
	onRunStarted   func(RunEvent)
	onRunFinished  func(RunEvent)
	onError        func(error)
}

func (d *Dispatcher) SetOnMessage(fn func(MessageEvent))           { d.onMessage = fn }
func (d *Dispatcher) SetOnThreadLoaded(fn func(ThreadLoadedEvent)) { d.onThreadLoaded = fn }
func (d *Dispatcher) SetOnRunStarted(fn func(RunEvent))            { d.onRunStarted = fn }
func (d *Dispatcher) SetOnRunFinished(fn func(RunEvent))           { d.onRunFinished = fn }
func (d *Dispatcher) SetOnError(fn func(error))                    { d.onError = fn }

func (d *Dispatcher) Dispatch(out Outbound) {
	if out.Type == outboundError && out.Error != nil && d.onError != nil {
		d.onError(FromProtocolError(out.Error))
		return
	}
	switch out.Event {
	case eventMessage:
		if d.onMessage == nil {
			return
		}
		var ev MessageEvent
		if err := UnmarshalData(out.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal message event", err))
			return
		}
		d.onMessage(ev)
	case eventThreadLoaded:
		if d.onThreadLoaded == nil {
			return
		}
		var ev ThreadLoadedEvent
		if err := UnmarshalData(out.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal thread_loaded event", err))
			return
		}
		d.onThreadLoaded(ev)
	case eventRunStarted:
		if d.onRunStarted == nil {
			return
		}
		var ev RunEvent
		if err := UnmarshalData(out.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal run_started event", err))
			return
		}
		d.onRunStarted(ev)
	case eventRunFinished:
		if d.onRunFinished == nil {
			return
		}
		var ev RunEvent
		if err := UnmarshalData(out.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal run_finished event", err))
			return
		}
		d.onRunFinished(ev)
	}
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}
