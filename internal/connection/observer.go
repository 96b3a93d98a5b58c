package connection

// Observer receives dispatched events. Methods are called from the
// dispatcher goroutine, one at a time, in the order the transport produced
// the events.
type Observer interface {
	OnOpen(Event)
	OnMessage(Event)
	OnClose(Event)
	OnError(Event)
}

// Recorder receives counters for the manager. Implemented by the metrics
// package.
type Recorder interface {
	HandleOpened()
	HandleClosed(local bool)
	MessageReceived(bytes int)
	HandleFailed(kind ErrorKind)
	HandleAbandoned()
	SetHolding(holding bool)
}

type observers []Observer

func (o observers) OnOpen(e Event) {
	for _, obs := range o {
		obs.OnOpen(e)
	}
}

func (o observers) OnMessage(e Event) {
	for _, obs := range o {
		obs.OnMessage(e)
	}
}

func (o observers) OnClose(e Event) {
	for _, obs := range o {
		obs.OnClose(e)
	}
}

func (o observers) OnError(e Event) {
	for _, obs := range o {
		obs.OnError(e)
	}
}

type nopRecorder struct{}

func (nopRecorder) HandleOpened()          {}
func (nopRecorder) HandleClosed(bool)      {}
func (nopRecorder) MessageReceived(int)    {}
func (nopRecorder) HandleFailed(ErrorKind) {}
func (nopRecorder) HandleAbandoned()       {}
func (nopRecorder) SetHolding(bool)        {}
