package protocol

// Opcode is the leading byte of a binary request.
type Opcode byte

const (
	OpGet    Opcode = 0x01
	OpExec   Opcode = 0x02
	OpDelete Opcode = 0x04 // reserved, not issued by this client
	OpFetch  Opcode = 0x05
	OpCreate Opcode = 0x06 // reserved, not issued by this client
	OpUpdate Opcode = 0x07
)

func (o Opcode) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpExec:
		return "exec"
	case OpDelete:
		return "delete"
	case OpFetch:
		return "fetch"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Text verbs. Get and fetch share '?'; the argument list tells them apart.
const (
	VerbGet    = '?'
	VerbUpdate = '='
	VerbExec   = '!'
)

// Reserved object IDs.
const (
	IDRoot  uint32 = 0x00
	IDPaths uint32 = 0x17 // metadata group mapping IDs to paths

	// PathsName is the text-mode name of the IDPaths group.
	PathsName = "_Paths"
	// RootPath is the path reported for IDRoot without asking the node.
	RootPath = "Root"
)

// textPrefix starts every text request and is echoed back by the node's shell.
const textPrefix = "thingset "

// cborNull is the CBOR simple value null.
const cborNull = 0xf6

// Encoding selects the wire format.
type Encoding int

const (
	EncodingText Encoding = iota
	EncodingBinary
)

func (e Encoding) String() string {
	switch e {
	case EncodingText:
		return "text"
	case EncodingBinary:
		return "binary"
	default:
		return "unknown"
	}
}
