package frame

import (
	"fmt"

	"github.com/uber/kassandra/cql/value"
)

// columnTypeID is the native-protocol wire id for a column's [option]
// encoding (spec §4.G), grounded on the CQL binary protocol v4
// specification's ColumnType table.
const (
	wireCustom    = 0x0000
	wireAscii     = 0x0001
	wireBigInt    = 0x0002
	wireBlob      = 0x0003
	wireBoolean   = 0x0004
	wireCounter   = 0x0005
	wireDecimal   = 0x0006
	wireDouble    = 0x0007
	wireFloat     = 0x0008
	wireInt       = 0x0009
	wireTimestamp = 0x000B
	wireUUID      = 0x000C
	wireText      = 0x000D
	wireVarint    = 0x000E
	wireTimeuuid  = 0x000F
	wireInet      = 0x0010
	wireDate      = 0x0011
	wireTime      = 0x0012
	wireSmallInt  = 0x0013
	wireTinyInt   = 0x0014
	wireDuration  = 0x0015
	wireList      = 0x0020
	wireMap       = 0x0021
	wireSet       = 0x0022
	wireUDT       = 0x0030
	wireTuple     = 0x0031
)

// writeOption writes one [option]: a uint16 id, followed by id-specific
// extra data for the composite types.
func writeOption(w *writer, t value.Type) error {
	id, err := wireID(t.Kind)
	if err != nil {
		return err
	}
	w.writeShort(uint16(id))
	switch t.Kind {
	case value.KindList, value.KindSet:
		return writeOption(w, *t.Elem)
	case value.KindMap:
		if err := writeOption(w, *t.Key); err != nil {
			return err
		}
		return writeOption(w, *t.Elem)
	case value.KindTuple:
		w.writeShort(uint16(len(t.Elems)))
		for _, e := range t.Elems {
			if err := writeOption(w, e); err != nil {
				return err
			}
		}
		return nil
	case value.KindUserDefinedType:
		w.writeString(t.UDTKeyspace)
		w.writeString(t.UDTName)
		w.writeShort(uint16(len(t.UDTFields)))
		for _, f := range t.UDTFields {
			w.writeString(f.Name)
			if err := writeOption(w, f.Type); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func wireID(k value.Kind) (int, error) {
	switch k {
	case value.KindAscii:
		return wireAscii, nil
	case value.KindText:
		return wireText, nil
	case value.KindBlob:
		return wireBlob, nil
	case value.KindBoolean:
		return wireBoolean, nil
	case value.KindTinyInt:
		return wireTinyInt, nil
	case value.KindSmallInt:
		return wireSmallInt, nil
	case value.KindInt:
		return wireInt, nil
	case value.KindBigInt:
		return wireBigInt, nil
	case value.KindCounter:
		return wireCounter, nil
	case value.KindFloat:
		return wireFloat, nil
	case value.KindDouble:
		return wireDouble, nil
	case value.KindDecimal:
		return wireDecimal, nil
	case value.KindVarint:
		return wireVarint, nil
	case value.KindDate:
		return wireDate, nil
	case value.KindTime:
		return wireTime, nil
	case value.KindTimestamp:
		return wireTimestamp, nil
	case value.KindDuration:
		return wireDuration, nil
	case value.KindUuid:
		return wireUUID, nil
	case value.KindTimeuuid:
		return wireTimeuuid, nil
	case value.KindInet:
		return wireInet, nil
	case value.KindList:
		return wireList, nil
	case value.KindSet:
		return wireSet, nil
	case value.KindMap:
		return wireMap, nil
	case value.KindTuple:
		return wireTuple, nil
	case value.KindUserDefinedType:
		return wireUDT, nil
	default:
		return 0, fmt.Errorf("frame: no wire column type for kind %d", k)
	}
}
