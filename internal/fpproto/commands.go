// Package fpproto holds the R30x command, error and parameter
// identifiers plus the small payload structures the driver decodes,
// grounded on the original SDK's FpCommands/FpErrorCode enumerations.
package fpproto

// Command is a one-byte command identifier sent in a COMMAND frame's
// payload[0].
type Command uint8

// Command IDs. "Upload" means host to sensor, "download" means sensor
// to host — backwards from the vendor documentation's naming.
const (
	CmdImageCapture       Command = 0x01
	CmdImageCaptureFree   Command = 0x52
	CmdImageConvert       Command = 0x02
	CmdImageUpload        Command = 0x0B
	CmdImageDownload      Command = 0x0A

	CmdTemplateMatch      Command = 0x03
	CmdTemplateSearch     Command = 0x04
	CmdTemplateSearchFast Command = 0x1B
	CmdTemplateCreate     Command = 0x05
	CmdTemplateStore      Command = 0x06
	CmdTemplateLoad       Command = 0x07
	CmdTemplateUpload     Command = 0x08
	CmdTemplateDownload   Command = 0x09
	CmdTemplateDelete     Command = 0x0C
	CmdTemplateEmpty      Command = 0x0D
	CmdTemplateCount      Command = 0x1D
	CmdTemplateIndex      Command = 0x1F

	CmdSystemSetParameters Command = 0x0E
	CmdSystemGetParameters Command = 0x0F

	CmdPasswordSet    Command = 0x12
	CmdPasswordVerify Command = 0x13

	CmdAddressSet Command = 0x15

	CmdNotepadSet Command = 0x18
	CmdNotepadGet Command = 0x19

	CmdBacklightOn  Command = 0x50
	CmdBacklightOff Command = 0x51

	CmdRandomGet Command = 0x14

	CmdHandshake Command = 0x53
)

// String names a command for log fields and the per-command metric
// label; unrecognized values return "unknown".
func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return "unknown"
}

var commandNames = map[Command]string{
	CmdImageCapture:        "image_capture",
	CmdImageCaptureFree:    "image_capture_free",
	CmdImageConvert:        "image_convert",
	CmdImageUpload:         "image_upload",
	CmdImageDownload:       "image_download",
	CmdTemplateMatch:       "template_match",
	CmdTemplateSearch:      "template_search",
	CmdTemplateSearchFast:  "template_search_fast",
	CmdTemplateCreate:      "template_create",
	CmdTemplateStore:       "template_store",
	CmdTemplateLoad:        "template_load",
	CmdTemplateUpload:      "template_upload",
	CmdTemplateDownload:    "template_download",
	CmdTemplateDelete:      "template_delete",
	CmdTemplateEmpty:       "template_empty",
	CmdTemplateCount:       "template_count",
	CmdTemplateIndex:       "template_index",
	CmdSystemSetParameters: "parameters_set",
	CmdSystemGetParameters: "parameters_get",
	CmdPasswordSet:         "password_set",
	CmdPasswordVerify:      "password_verify",
	CmdAddressSet:          "address_set",
	CmdNotepadSet:          "notepad_set",
	CmdNotepadGet:          "notepad_get",
	CmdBacklightOn:         "backlight_on",
	CmdBacklightOff:        "backlight_off",
	CmdRandomGet:           "random_get",
	CmdHandshake:           "handshake",
}

// BufferID selects one of the sensor's two character buffers.
type BufferID uint8

const (
	Buffer1 BufferID = 0x01
	Buffer2 BufferID = 0x02
)

// ParameterID identifies a system parameter accepted by
// SYSTEM_SET_PARAMETERS.
type ParameterID uint8

const (
	ParamBaudRate   ParameterID = 0x04
	ParamSecurity   ParameterID = 0x05
	ParamPacketSize ParameterID = 0x06
)

// PacketSizeCode encodes the negotiated max data-frame payload size.
type PacketSizeCode uint8

const (
	PacketSize32  PacketSizeCode = 0x00
	PacketSize64  PacketSizeCode = 0x01
	PacketSize128 PacketSizeCode = 0x02
	PacketSize256 PacketSizeCode = 0x03
)

// Bytes returns the payload size in bytes a code stands for.
func (c PacketSizeCode) Bytes() int {
	switch c {
	case PacketSize32:
		return 32
	case PacketSize64:
		return 64
	case PacketSize128:
		return 128
	case PacketSize256:
		return 256
	default:
		return 32
	}
}
