package docserver

import (
	"fmt"

	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

// Variant names on the wire.
const (
	peerInfoKind = "PeerInfo"
	putKind      = "Put"
	getKind      = "Get"
	deleteKind   = "Delete"
	listKind     = "List"
	copyKind     = "Copy"
	documentKind = "Document"
	keysKind     = "Keys"
	okKind       = "Ok"
	errorKind    = "Error"
)

type MessageChoice interface {
	isMessageChoice()
}

type Version struct {
	Major uint8 `ubjson:"major"`
	Minor uint8 `ubjson:"minor"`
	Patch uint8 `ubjson:"patch"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// PeerInfo opens every session. The server answers with its own.
type PeerInfo struct {
	Name    string  `ubjson:"name"`
	Version Version `ubjson:"version"`
}

func (PeerInfo) isMessageChoice() {}

// Put stores Document under Key.
type Put struct {
	Key      string       `ubjson:"key"`
	Document ubjson.Value `ubjson:"document"`
}

func (Put) isMessageChoice() {}

// Get asks for the document stored under the key.
type Get string

func (Get) isMessageChoice() {}

type Delete string

func (Delete) isMessageChoice() {}

// List asks for the keys starting with Prefix.
type List struct {
	Prefix string `ubjson:"prefix"`
}

func (List) isMessageChoice() {}

// Copy duplicates the document at From under To. It travels as a tuple.
type Copy struct {
	From string
	To   string
}

func (Copy) isMessageChoice() {}

// Document answers Get.
type Document struct {
	Key   string       `ubjson:"key"`
	Value ubjson.Value `ubjson:"value"`
}

func (Document) isMessageChoice() {}

// Keys answers List.
type Keys []string

func (Keys) isMessageChoice() {}

// Ok answers Put, Delete and Copy.
type Ok struct{}

func (Ok) isMessageChoice() {}

type Error string

func (Error) isMessageChoice() {}

func (e Error) String() string {
	return string(e)
}

// NewMessage creates a new message with the inner choice
func NewMessage(choice MessageChoice) *Message {
	return &Message{
		choice: choice,
	}
}

// Message is one request or response. It is encoded as a variant.
type Message struct {
	// One of: PeerInfo, Put, Get, Delete, List, Copy, Document, Keys, Ok, Error
	choice MessageChoice
}

func (m *Message) UBJSONVariant() (string, any) {
	switch c := m.choice.(type) {
	case PeerInfo:
		return peerInfoKind, c
	case Put:
		return putKind, c
	case Get:
		return getKind, c
	case Delete:
		return deleteKind, c
	case List:
		return listKind, c
	case Copy:
		return copyKind, ubjson.Tuple{c.From, c.To}
	case Document:
		return documentKind, c
	case Keys:
		return keysKind, c
	case Ok:
		return okKind, nil
	case Error:
		return errorKind, c
	}
	return errorKind, Error(fmt.Sprintf("unencodable message %T", m.choice))
}

func (m *Message) VariantPayload(name string) (any, error) {
	switch name {
	case peerInfoKind:
		return PeerInfo{}, nil
	case putKind:
		return Put{}, nil
	case getKind:
		return Get(""), nil
	case deleteKind:
		return Delete(""), nil
	case listKind:
		return List{}, nil
	case copyKind:
		return ubjson.Tuple{"", ""}, nil
	case documentKind:
		return Document{}, nil
	case keysKind:
		return Keys{}, nil
	case okKind:
		return nil, nil
	case errorKind:
		return Error(""), nil
	}
	return nil, fmt.Errorf(ErrUnknownMessage, name)
}

func (m *Message) SetVariant(name string, payload any) error {
	switch value := payload.(type) {
	case nil:
		if name != okKind {
			return fmt.Errorf(ErrPayloadType, name, payload)
		}
		m.choice = Ok{}
	case ubjson.Tuple:
		if name != copyKind || len(value) != 2 {
			return fmt.Errorf(ErrPayloadType, name, payload)
		}
		from, _ := value[0].(string)
		to, _ := value[1].(string)
		m.choice = Copy{From: from, To: to}
	case MessageChoice:
		m.choice = value
	default:
		return fmt.Errorf(ErrPayloadType, name, payload)
	}
	return nil
}

func (m *Message) Get() MessageChoice {
	return m.choice
}
