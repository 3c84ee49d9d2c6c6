// Package cbor wraps fxamacker/cbor with the deterministic options used for
// every persisted or emitted record, so equal values always encode to equal bytes.
package cbor

import (
	"bytes"
	"fmt"

	_cbor "github.com/fxamacker/cbor/v2"
)

var (
	encMode _cbor.EncMode
	decMode _cbor.DecMode
)

func init() {
	var err error
	opts := _cbor.EncOptions{
		// Make sure that maps have ordered keys
		Sort: _cbor.SortCoreDeterministic,
	}
	if encMode, err = opts.EncMode(); err != nil {
		panic(fmt.Sprintf("cbor: build encode mode: %v", err))
	}
	decOpts := _cbor.DecOptions{
		ExtraReturnErrors: _cbor.ExtraDecErrorUnknownField,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("cbor: build decode mode: %v", err))
	}
}

// Encode serializes v with deterministic key ordering.
func Encode(v interface{}) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := encMode.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses data into v, rejecting fields v does not declare.
func Decode(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}
