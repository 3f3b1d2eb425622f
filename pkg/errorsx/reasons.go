package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonDeviceUnavailable   ReasonCode = "device_unavailable"
	ReasonDeviceStatus        ReasonCode = "device_status"
	ReasonDeviceDecode        ReasonCode = "device_decode"
	ReasonDeviceUnknownAction ReasonCode = "device_unknown_action"
	ReasonDeviceCircuitOpen   ReasonCode = "device_circuit_open"

	ReasonSceneMissing ReasonCode = "scene_missing"
	ReasonScenePartial ReasonCode = "scene_partial"

	ReasonStoreRead   ReasonCode = "store_read"
	ReasonStoreWrite  ReasonCode = "store_write"
	ReasonStoreDecode ReasonCode = "store_decode"

	ReasonRecognizeTimeout ReasonCode = "recognize_timeout"
	ReasonRecognizeFailed  ReasonCode = "recognize_failed"
	ReasonSpeakFailed      ReasonCode = "speak_failed"

	ReasonSTTConnect ReasonCode = "stt_connect"
	ReasonSTTSend    ReasonCode = "stt_send"
	ReasonTTSConnect ReasonCode = "tts_connect"
	ReasonTTSSend    ReasonCode = "tts_send"

	ReasonMessageDecode  ReasonCode = "message_decode"
	ReasonMessageUnknown ReasonCode = "message_unknown"

	ReasonTransportInvalidSignature ReasonCode = "webhook_invalid_signature"
	ReasonTransportSend             ReasonCode = "transport_send"

	ReasonConfigInvalid ReasonCode = "config_invalid"

	ReasonShutdown ReasonCode = "shutdown"
)
