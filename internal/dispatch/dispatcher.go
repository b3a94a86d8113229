package dispatch

import "github.com/r30x/fpdriver/internal/wire"

// Dispatcher fans out the four signals the driver publishes. One
// Dispatcher is owned per Driver; the reader and finger-watcher
// goroutines emit the frame, disconnect and finger-detected signals,
// Driver.Reconnect emits the connect signal, and the transaction layer
// and any user code are its subscribers.
type Dispatcher struct {
	OnFrameReceived  Signal[wire.Frame]
	OnConnect        Signal[struct{}]
	OnDisconnect     Signal[struct{}]
	OnFingerDetected Signal[struct{}]
}

// New returns a ready-to-use Dispatcher with no subscribers.
func New() *Dispatcher { return &Dispatcher{} }

func (d *Dispatcher) EmitFrame(f wire.Frame) { d.OnFrameReceived.Emit(f) }
func (d *Dispatcher) EmitConnect()           { d.OnConnect.Emit(struct{}{}) }
func (d *Dispatcher) EmitDisconnect()        { d.OnDisconnect.Emit(struct{}{}) }
func (d *Dispatcher) EmitFingerDetected()    { d.OnFingerDetected.Emit(struct{}{}) }
