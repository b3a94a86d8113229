package fpproto

// ErrorCode is the one-byte confirmation code carried in an ACK frame's
// payload[0], grounded on the original SDK's FpErrorCode enum.
type ErrorCode uint8

const (
	Success ErrorCode = 0x00

	// HandshakeSuccess is the alternate success code some firmware
	// revisions return for PASSWORD_VERIFY/HANDSHAKE instead of
	// Success; both are treated as success throughout the driver.
	HandshakeSuccess ErrorCode = 0x55

	ErrPacketTransmission      ErrorCode = 0x01
	ErrFingerNotInSensor       ErrorCode = 0x02
	ErrFingerEnrollFailed      ErrorCode = 0x03
	ErrImageMessy              ErrorCode = 0x06
	ErrImageFewFeaturePoints   ErrorCode = 0x07
	ErrFingerMismatch          ErrorCode = 0x08
	ErrFingerNotFound          ErrorCode = 0x09
	ErrCharacteristicsMismatch ErrorCode = 0x0A
	ErrTemplateInvalidIndex    ErrorCode = 0x0B
	ErrTemplateLoad            ErrorCode = 0x0C
	ErrTemplateDownload        ErrorCode = 0x0D
	ErrPacketModuleReception   ErrorCode = 0x0E
	ErrImageDownload           ErrorCode = 0x0F
	ErrTemplateDelete          ErrorCode = 0x10
	ErrTemplateEmpty           ErrorCode = 0x11
	ErrFlash                   ErrorCode = 0x18
	ErrUndefined               ErrorCode = 0x19
	ErrSystemInvalidRegister   ErrorCode = 0x1A
	ErrSystemInvalidConfig     ErrorCode = 0x1B
	ErrNotepadInvalidPage      ErrorCode = 0x1C
	ErrCommunicationPort       ErrorCode = 0x1D
	ErrImageInvalid            ErrorCode = 0x15
	ErrAddress                 ErrorCode = 0x20
	ErrPassword                ErrorCode = 0x21
	ErrTimeout                 ErrorCode = 0xFF
	ErrPacketFaulty            ErrorCode = 0xFE
)

// Ok reports whether code is one of the accepted success codes.
func (c ErrorCode) Ok() bool { return c == Success || c == HandshakeSuccess }

var errorNames = map[ErrorCode]string{
	Success:                    "success",
	HandshakeSuccess:           "handshake_success",
	ErrPacketTransmission:      "packet_transmission",
	ErrFingerNotInSensor:       "finger_not_in_sensor",
	ErrFingerEnrollFailed:      "finger_enroll_failed",
	ErrImageMessy:              "image_messy",
	ErrImageFewFeaturePoints:   "image_few_feature_points",
	ErrFingerMismatch:          "finger_mismatch",
	ErrFingerNotFound:          "finger_not_found",
	ErrCharacteristicsMismatch: "characteristics_mismatch",
	ErrTemplateInvalidIndex:    "template_invalid_index",
	ErrTemplateLoad:            "template_load",
	ErrTemplateDownload:        "template_download",
	ErrPacketModuleReception:   "packet_module_reception",
	ErrImageDownload:           "image_download",
	ErrTemplateDelete:          "template_delete",
	ErrTemplateEmpty:           "template_empty",
	ErrFlash:                   "flash",
	ErrUndefined:               "undefined",
	ErrSystemInvalidRegister:   "system_invalid_register",
	ErrSystemInvalidConfig:     "system_invalid_configuration",
	ErrNotepadInvalidPage:      "notepad_invalid_page",
	ErrCommunicationPort:       "communication_port",
	ErrImageInvalid:            "image_invalid",
	ErrAddress:                 "address",
	ErrPassword:                "password",
	ErrTimeout:                 "timeout",
	ErrPacketFaulty:            "packet_faulty",
}

func (c ErrorCode) String() string {
	if s, ok := errorNames[c]; ok {
		return s
	}
	return "unrecognized"
}
