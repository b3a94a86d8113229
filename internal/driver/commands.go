package driver

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/r30x/fpdriver/internal/fpproto"
)

// ErrUploadVerifyMismatch is returned by TemplateUpload when the
// re-downloaded template does not match what was uploaded.
var ErrUploadVerifyMismatch = errors.New("fpdriver: uploaded template failed download verification")

const (
	notepadCount = 16
	notepadSize  = 32

	imageWidth  = 256
	imageHeight = 288
)

// Handshake performs the HANDSHAKE command and reports whether the
// sensor answered with a success code.
func (d *Driver) Handshake() (bool, error) {
	_, _, err := d.commandGet(fpproto.CmdHandshake, nil, false)
	if err != nil {
		return false, err
	}
	return true, nil
}

// PasswordVerify verifies the sensor's password. If password is given
// it replaces the session's cached value first, matching the original
// SDK's password_verify(password=None) behavior.
func (d *Driver) PasswordVerify(password ...uint32) (bool, error) {
	pw := d.sess.Password()
	if len(password) > 0 {
		pw = password[0]
		d.sess.setPassword(pw)
	}
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, pw)
	_, _, err := d.commandGet(fpproto.CmdPasswordVerify, payload, false)
	if err != nil {
		return false, err
	}
	return true, nil
}

// PasswordSet changes the sensor's password and, on success, updates
// the cached session value.
func (d *Driver) PasswordSet(password uint32) error {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, password)
	if err := d.commandSetLocked(fpproto.CmdPasswordSet, payload, nil); err != nil {
		return err
	}
	d.sess.setPassword(password)
	return nil
}

// ParametersGet fetches and caches the sensor's system parameters.
func (d *Driver) ParametersGet() (fpproto.SystemParameters, error) {
	ack, _, err := d.commandGet(fpproto.CmdSystemGetParameters, nil, false)
	if err != nil {
		return fpproto.SystemParameters{}, err
	}
	if len(ack.Payload) < 1 {
		return fpproto.SystemParameters{}, &TransactionError{Command: "parameters_get", Code: fpproto.ErrUndefined}
	}
	params, ok := fpproto.DecodeSystemParameters(ack.Payload[1:])
	if !ok {
		return fpproto.SystemParameters{}, &TransactionError{Command: "parameters_get", Code: fpproto.ErrUndefined}
	}
	d.sess.setCapacity(params.Capacity)
	d.sess.setPacketSize(params.PacketSize)
	return params, nil
}

// ParametersSet writes one system parameter. Changing the baud rate
// pauses the reader, reconfigures the Port and resumes it, since no
// frame can be in flight after the ack at the old rate.
func (d *Driver) ParametersSet(param fpproto.ParameterID, value uint8) error {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	if err := d.commandSetLocked(fpproto.CmdSystemSetParameters, []byte{byte(param), value}, nil); err != nil {
		return err
	}
	if param != fpproto.ParamBaudRate {
		return nil
	}
	newBaud := uint32(value) * 9600
	return d.pauseReaderForBaudChange(func() error { return d.port.SetBaud(newBaud) })
}

// Capacity returns the cached template capacity, lazily loading it via
// ParametersGet on first use.
func (d *Driver) Capacity() (uint16, error) {
	if c, ok := d.sess.Capacity(); ok {
		return c, nil
	}
	p, err := d.ParametersGet()
	if err != nil {
		return 0, err
	}
	return p.Capacity, nil
}

// AddressSet reassigns the sensor's bus address and, on success,
// updates the session's cached address used by subsequent frames.
func (d *Driver) AddressSet(addr uint32) error {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, addr)
	if err := d.commandSetLocked(fpproto.CmdAddressSet, payload, nil); err != nil {
		return err
	}
	d.sess.setAddress(addr)
	return nil
}

// ImageCapture captures a fingerprint image into the sensor's image
// buffer. The free variant skips backlight control.
func (d *Driver) ImageCapture(free bool) error {
	cmd := fpproto.CmdImageCapture
	if free {
		cmd = fpproto.CmdImageCaptureFree
	}
	_, _, err := d.commandGet(cmd, nil, false)
	return err
}

func validBuffer(buffer fpproto.BufferID) error {
	if buffer != fpproto.Buffer1 && buffer != fpproto.Buffer2 {
		return &ArgumentError{Field: "buffer", Msg: "must be 1 or 2"}
	}
	return nil
}

// ImageConvert converts the captured image into a feature set in the
// given char buffer. Error codes 6/7/15 mean a poor-quality image; the
// caller decides whether to retry the capture.
func (d *Driver) ImageConvert(buffer fpproto.BufferID) error {
	if err := validBuffer(buffer); err != nil {
		return err
	}
	_, _, err := d.commandGet(fpproto.CmdImageConvert, []byte{byte(buffer)}, false)
	return err
}

// ImageDownload retrieves the 256x288 grayscale image currently held by
// the sensor, unpacking its two-pixels-per-byte wire encoding.
func (d *Driver) ImageDownload() ([]byte, error) {
	_, raw, err := d.commandGet(fpproto.CmdImageDownload, nil, true)
	if err != nil {
		return nil, err
	}
	return unpackImage(raw)
}

func unpackImage(data []byte) ([]byte, error) {
	half := imageWidth / 2
	if len(data) < half*imageHeight {
		return nil, &TransactionError{Command: "image_download", Code: fpproto.ErrImageDownload}
	}
	out := make([]byte, imageWidth*imageHeight)
	for y := 0; y < imageHeight; y++ {
		off := half * y
		for x := 0; x < half; x++ {
			idx := 2 * x
			b := data[off+x]
			out[y*imageWidth+idx] = (0x0F & (b >> 4)) << 4
			out[y*imageWidth+idx+1] = (0x0F & b) << 4
		}
	}
	return out, nil
}

// TemplateCreate merges the contents of char buffers 1 and 2 into one
// template, stored back into both buffers.
func (d *Driver) TemplateCreate() error {
	_, _, err := d.commandGet(fpproto.CmdTemplateCreate, nil, false)
	return err
}

func validTemplateIndex(index uint16, capacity uint16, haveCapacity bool) error {
	if haveCapacity && index >= capacity {
		return &ArgumentError{Field: "index", Msg: "exceeds device capacity"}
	}
	return nil
}

// TemplateStore persists the given char buffer into the database at
// index.
func (d *Driver) TemplateStore(buffer fpproto.BufferID, index uint16) error {
	if err := validBuffer(buffer); err != nil {
		return err
	}
	if capv, ok := d.sess.Capacity(); ok {
		if err := validTemplateIndex(index, capv, ok); err != nil {
			return err
		}
	}
	payload := make([]byte, 3)
	payload[0] = byte(buffer)
	binary.BigEndian.PutUint16(payload[1:], index)
	_, _, err := d.commandGet(fpproto.CmdTemplateStore, payload, false)
	return err
}

// TemplateLoad loads an existing template from the database into the
// given char buffer.
func (d *Driver) TemplateLoad(buffer fpproto.BufferID, index uint16) error {
	if err := validBuffer(buffer); err != nil {
		return err
	}
	if capv, ok := d.sess.Capacity(); ok {
		if err := validTemplateIndex(index, capv, ok); err != nil {
			return err
		}
	}
	payload := make([]byte, 3)
	payload[0] = byte(buffer)
	binary.BigEndian.PutUint16(payload[1:], index)
	_, _, err := d.commandGet(fpproto.CmdTemplateLoad, payload, false)
	return err
}

// TemplateUpload sends buffer's character file to the sensor, then
// downloads it back and verifies the bytes round-tripped unchanged.
func (d *Driver) TemplateUpload(buffer fpproto.BufferID, data []byte) error {
	if err := validBuffer(buffer); err != nil {
		return err
	}
	d.cmdMu.Lock()
	err := d.commandSetLocked(fpproto.CmdTemplateUpload, nil, data)
	if err != nil {
		d.cmdMu.Unlock()
		return err
	}
	_, down, err := d.commandGetLocked(fpproto.CmdTemplateDownload, []byte{byte(buffer)}, true)
	d.cmdMu.Unlock()
	if err != nil {
		return err
	}
	if !bytes.Equal(down, data) {
		return ErrUploadVerifyMismatch
	}
	return nil
}

// TemplateDownload retrieves buffer's character file from the sensor.
func (d *Driver) TemplateDownload(buffer fpproto.BufferID) ([]byte, error) {
	if err := validBuffer(buffer); err != nil {
		return nil, err
	}
	_, data, err := d.commandGet(fpproto.CmdTemplateDownload, []byte{byte(buffer)}, true)
	return data, err
}

// TemplateDelete removes count consecutive templates starting at
// index.
func (d *Driver) TemplateDelete(index, count uint16) error {
	if capv, ok := d.sess.Capacity(); ok {
		if int(index)+int(count) > int(capv) {
			return &ArgumentError{Field: "count", Msg: "selection exceeds device capacity"}
		}
	}
	payload := make([]byte, 4)
	binary.BigEndian.PutUint16(payload[0:2], index)
	binary.BigEndian.PutUint16(payload[2:4], count)
	_, _, err := d.commandGet(fpproto.CmdTemplateDelete, payload, false)
	return err
}

// TemplateEmpty clears the entire template database.
func (d *Driver) TemplateEmpty() error {
	_, _, err := d.commandGet(fpproto.CmdTemplateEmpty, nil, false)
	return err
}

// TemplateCount reports the number of templates currently stored.
func (d *Driver) TemplateCount() (uint16, error) {
	ack, _, err := d.commandGet(fpproto.CmdTemplateCount, nil, false)
	if err != nil {
		return 0, err
	}
	if len(ack.Payload) < 3 {
		return 0, &TransactionError{Command: "template_count", Code: fpproto.ErrUndefined}
	}
	return binary.BigEndian.Uint16(ack.Payload[1:3]), nil
}

// TemplateIndex returns a bit-vector of occupied database slots, one
// entry per template position up to the sensor's capacity.
func (d *Driver) TemplateIndex() ([]bool, error) {
	capacity, err := d.Capacity()
	if err != nil {
		return nil, err
	}
	pages := int(capacity) / 256
	out := make([]bool, 0, capacity)
	for page := 0; page <= pages; page++ {
		ack, _, err := d.commandGet(fpproto.CmdTemplateIndex, []byte{byte(page)}, false)
		if err != nil {
			return nil, err
		}
		for _, b := range ack.Payload[1:] {
			for bit := 0; bit < 8; bit++ {
				out = append(out, b&(1<<uint(bit)) != 0)
				if len(out) == int(capacity) {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

// TemplateMatch compares char buffers 1 and 2 and returns a match
// score.
func (d *Driver) TemplateMatch() (uint16, error) {
	ack, _, err := d.commandGet(fpproto.CmdTemplateMatch, nil, false)
	if err != nil {
		return 0, err
	}
	if len(ack.Payload) < 3 {
		return 0, &TransactionError{Command: "template_match", Code: fpproto.ErrUndefined}
	}
	return binary.BigEndian.Uint16(ack.Payload[1:3]), nil
}

// TemplateSearch looks up buffer among [index, index+count) database
// slots. A not-found result reports foundIndex -1 with no error rather
// than surfacing ERROR_FINGER_NOT_FOUND as a TransactionError.
func (d *Driver) TemplateSearch(buffer fpproto.BufferID, index, count uint16, fast bool) (int32, uint16, error) {
	if err := validBuffer(buffer); err != nil {
		return 0, 0, err
	}
	cmd := fpproto.CmdTemplateSearch
	if fast {
		cmd = fpproto.CmdTemplateSearchFast
	}
	payload := make([]byte, 5)
	payload[0] = byte(buffer)
	binary.BigEndian.PutUint16(payload[1:3], index)
	binary.BigEndian.PutUint16(payload[3:5], count)

	ack, _, err := d.commandGet(cmd, payload, false)
	if err != nil {
		var te *TransactionError
		if errors.As(err, &te) && te.Code == fpproto.ErrFingerNotFound {
			return -1, 0, nil
		}
		return 0, 0, err
	}
	if len(ack.Payload) < 5 {
		return 0, 0, &TransactionError{Command: cmd.String(), Code: fpproto.ErrUndefined}
	}
	found := int32(binary.BigEndian.Uint16(ack.Payload[1:3]))
	score := binary.BigEndian.Uint16(ack.Payload[3:5])
	return found, score, nil
}

func validNotepadPage(page uint8) error {
	if int(page) >= notepadCount {
		return &ArgumentError{Field: "page", Msg: "must be 0..15"}
	}
	return nil
}

// NotepadGet returns the 32-byte contents of the given notepad page.
func (d *Driver) NotepadGet(page uint8) ([]byte, error) {
	if err := validNotepadPage(page); err != nil {
		return nil, err
	}
	ack, _, err := d.commandGet(fpproto.CmdNotepadGet, []byte{page}, false)
	if err != nil {
		return nil, err
	}
	data := ack.Payload[1:]
	if len(data) != notepadSize {
		return nil, &TransactionError{Command: "notepad_get", Code: fpproto.ErrUndefined}
	}
	return data, nil
}

// NotepadSet writes data into the given notepad page, truncating and
// logging a warning if data is longer than the 32-byte page size.
func (d *Driver) NotepadSet(page uint8, data []byte) error {
	if err := validNotepadPage(page); err != nil {
		return err
	}
	if len(data) > notepadSize {
		d.log.Warn("notepad_data_truncated", "page", page, "len", len(data), "max", notepadSize)
		data = data[:notepadSize]
	}
	payload := make([]byte, 0, 1+len(data))
	payload = append(payload, page)
	payload = append(payload, data...)
	_, _, err := d.commandGet(fpproto.CmdNotepadSet, payload, false)
	return err
}

// NotepadClear zeroes the given notepad page.
func (d *Driver) NotepadClear(page uint8) error {
	return d.NotepadSet(page, make([]byte, notepadSize))
}

// RandomGet returns a 32-bit random number generated by the sensor.
func (d *Driver) RandomGet() (uint32, error) {
	ack, _, err := d.commandGet(fpproto.CmdRandomGet, nil, false)
	if err != nil {
		return 0, err
	}
	if len(ack.Payload) < 5 {
		return 0, &TransactionError{Command: "random_get", Code: fpproto.ErrUndefined}
	}
	return binary.BigEndian.Uint32(ack.Payload[1:5]), nil
}

// Backlight turns the sensor's ring backlight on or off.
func (d *Driver) Backlight(on bool) error {
	cmd := fpproto.CmdBacklightOff
	if on {
		cmd = fpproto.CmdBacklightOn
	}
	_, _, err := d.commandGet(cmd, nil, false)
	return err
}
