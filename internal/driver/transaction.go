package driver

import (
	"sync"
	"time"

	"github.com/r30x/fpdriver/internal/dispatch"
	"github.com/r30x/fpdriver/internal/fpproto"
	"github.com/r30x/fpdriver/internal/metrics"
	"github.com/r30x/fpdriver/internal/wire"
)

// ResponseTimeout bounds both the ack wait and the bulk-data quiescence
// window.
const ResponseTimeout = 5 * time.Second

// transmit installs a one-shot subscriber matching predicate, writes
// send, and waits up to ResponseTimeout for a matching frame. The
// subscriber is removed on every exit path.
func (d *Driver) transmit(send wire.Frame, predicate func(wire.Frame) bool) (wire.Frame, error) {
	done := make(chan wire.Frame, 1)
	tok := d.disp.OnFrameReceived.Subscribe(func(f wire.Frame) {
		if !predicate(f) {
			return
		}
		select {
		case done <- f:
		default:
		}
	})
	defer d.disp.OnFrameReceived.Unsubscribe(tok)

	if _, err := d.port.Write(send.Encode()); err != nil {
		metrics.IncError(metrics.ErrPortWrite)
		return wire.Frame{}, err
	}
	metrics.IncFramesTx()

	select {
	case f := <-done:
		return f, nil
	case <-time.After(ResponseTimeout):
		return wire.Frame{}, errTransmitTimeout
	}
}

// bulkAssembler accumulates DATA/END_OF_DATA payloads for one
// data_wait=true call. Every received bulk frame resets the quiescence
// clock; completion fires on END_OF_DATA.
type bulkAssembler struct {
	mu       sync.Mutex
	buf      []byte
	complete chan struct{}
	activity chan struct{}
	once     sync.Once
	tok      dispatch.Token
}

func (d *Driver) newBulkAssembler() *bulkAssembler {
	b := &bulkAssembler{
		complete: make(chan struct{}),
		activity: make(chan struct{}, 1),
	}
	b.tok = d.disp.OnFrameReceived.Subscribe(func(f wire.Frame) {
		switch f.PID {
		case wire.PIDData:
			b.mu.Lock()
			b.buf = append(b.buf, f.Payload...)
			b.mu.Unlock()
			select {
			case b.activity <- struct{}{}:
			default:
			}
		case wire.PIDEndOfData:
			b.mu.Lock()
			b.buf = append(b.buf, f.Payload...)
			b.mu.Unlock()
			b.once.Do(func() { close(b.complete) })
		}
	})
	return b
}

func (d *Driver) stopBulkAssembler(b *bulkAssembler) {
	d.disp.OnFrameReceived.Unsubscribe(b.tok)
}

// wait blocks until END_OF_DATA closes b.complete or the quiescence
// window elapses with no new bulk frame.
func (b *bulkAssembler) wait() ([]byte, error) {
	timer := time.NewTimer(ResponseTimeout)
	defer timer.Stop()
	for {
		select {
		case <-b.complete:
			b.mu.Lock()
			out := b.buf
			b.mu.Unlock()
			return out, nil
		case <-b.activity:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(ResponseTimeout)
		case <-timer.C:
			return nil, errTransmitTimeout
		}
	}
}

func ackErrorLabel(code fpproto.ErrorCode) string {
	switch code {
	case fpproto.ErrPacketTransmission:
		return metrics.ErrCommunication
	case fpproto.ErrAddress:
		return metrics.ErrWrongAddress
	case fpproto.ErrPassword:
		return metrics.ErrPasswordNeeded
	default:
		return metrics.ErrTransaction
	}
}

// commandGetLocked is command_get; it assumes cmdMu is already held.
func (d *Driver) commandGetLocked(cmd fpproto.Command, payload []byte, dataWait bool) (wire.Frame, []byte, error) {
	name := cmd.String()
	if !d.connected.Load() {
		metrics.ObserveCommand(name, "disconnected")
		return wire.Frame{}, nil, errDisconnected
	}

	var assembler *bulkAssembler
	if dataWait {
		assembler = d.newBulkAssembler()
		defer d.stopBulkAssembler(assembler)
	}

	body := make([]byte, 0, 1+len(payload))
	body = append(body, byte(cmd))
	body = append(body, payload...)
	send := wire.Frame{Address: d.sess.Address(), PID: wire.PIDCommand, Payload: body}

	ack, err := d.transmit(send, func(f wire.Frame) bool {
		return f.PID == wire.PIDAck && f.Address == send.Address
	})
	if err != nil {
		metrics.IncReceptionTimeout()
		metrics.ObserveCommand(name, "reception_timeout")
		return wire.Frame{}, nil, &ReceptionFailure{Command: name}
	}

	if len(ack.Payload) == 0 {
		metrics.ObserveCommand(name, "malformed_ack")
		return ack, nil, &TransactionError{Command: name, Code: fpproto.ErrUndefined}
	}
	code := fpproto.ErrorCode(ack.Payload[0])

	if fatal := fatalAckError(name, code); fatal != nil {
		metrics.IncError(ackErrorLabel(code))
		metrics.ObserveCommand(name, "fatal")
		return ack, nil, fatal
	}

	var data []byte
	if dataWait {
		data, err = assembler.wait()
		if err != nil {
			metrics.IncBulkTimeout()
			metrics.ObserveCommand(name, "bulk_timeout")
			return ack, nil, &BulkTimeout{Command: name}
		}
		metrics.ObserveBulkTransfer(len(data))
	}

	if !code.Ok() {
		metrics.ObserveCommand(name, "transaction_error")
		return ack, data, &TransactionError{Command: name, Code: code}
	}

	metrics.ObserveCommand(name, "ok")
	return ack, data, nil
}

// commandSetLocked is command_set; it assumes cmdMu is already held.
func (d *Driver) commandSetLocked(cmd fpproto.Command, payload []byte, outbound []byte) error {
	_, _, err := d.commandGetLocked(cmd, payload, false)
	if err != nil {
		return err
	}
	if len(outbound) == 0 {
		return nil
	}

	chunk := d.sess.PacketSize()
	if chunk <= 0 {
		chunk = 32
	}
	for i := 0; i < len(outbound); i += chunk {
		end := i + chunk
		pid := wire.PIDData
		if end >= len(outbound) {
			end = len(outbound)
			pid = wire.PIDEndOfData
		}
		f := wire.Frame{Address: d.sess.Address(), PID: pid, Payload: outbound[i:end]}
		if _, err := d.port.Write(f.Encode()); err != nil {
			metrics.IncError(metrics.ErrPortWrite)
			return err
		}
		metrics.IncFramesTx()
	}
	return nil
}

// commandGet is the public, cmdMu-serialized entry point used by
// commands that do not also need to send outbound bulk data.
func (d *Driver) commandGet(cmd fpproto.Command, payload []byte, dataWait bool) (wire.Frame, []byte, error) {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	return d.commandGetLocked(cmd, payload, dataWait)
}

// commandSet is the public, cmdMu-serialized entry point for commands
// that follow their ack with an outbound bulk transfer.
func (d *Driver) commandSet(cmd fpproto.Command, payload []byte, outbound []byte) error {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	return d.commandSetLocked(cmd, payload, outbound)
}
