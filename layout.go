package blockpool

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

type layout struct {
	typ   reflect.Type
	size  int
	align int
}

// layoutOf describes T and rejects types that cannot live in untyped pooled memory: a pointer stored in a
// []byte is invisible to the garbage collector.
func layoutOf[T any]() (layout, error) {
	var zero T
	typ := reflect.TypeOf(&zero).Elem()
	if hasPointers(typ) {
		return layout{}, errors.Wrapf(ErrPointerType, "[%s]", typ)
	}
	return layout{
		typ:   typ,
		size:  int(unsafe.Sizeof(zero)),
		align: int(unsafe.Alignof(zero)),
	}, nil
}

func (self layout) check(blockSz int) error {
	if self.size > blockSz {
		return errors.Wrapf(ErrBlockSize, "[%s] needs [%d] bytes, blocks are [%d]", self.typ, self.size, blockSz)
	}
	if self.align > blockAlign {
		return errors.Wrapf(ErrAlignment, "[%s] needs [%d] byte alignment, blocks have [%d]", self.typ, self.align, blockAlign)
	}
	return nil
}

func (self layout) aligned(block Block) bool {
	return block.addr()%uintptr(self.align) == 0
}

func hasPointers(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false

	case reflect.Array:
		return typ.Len() > 0 && hasPointers(typ.Elem())

	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if hasPointers(typ.Field(i).Type) {
				return true
			}
		}
		return false

	default:
		return true
	}
}
