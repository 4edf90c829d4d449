package protocol

// Protocol A endpoints (HTTP).
const (
	SecurityPath = "/di/v1/products/0/security"
	AirPath      = "/di/v1/products/1/air"
	FiltersPath  = "/di/v1/products/1/fltsts"
)

// Protocol B endpoints (CoAP).
const (
	SyncPath    = "/sys/dev/sync"
	StatusPath  = "/sys/dev/status"
	ControlPath = "/sys/dev/control"

	DefaultCoAPPort = 5683
)

// Kind identifies one of the two secured appliance protocols.
type Kind uint8

const (
	KindHTTP Kind = 1
	KindCoAP Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindCoAP:
		return "coap"
	default:
		return "unknown"
	}
}
