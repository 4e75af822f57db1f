package store

import (
	"github.com/bkaradzic/go-lz4"
	"github.com/golang/snappy"
	ie "github.com/sahib/dca/errors"
)

// AlgorithmType names a compression algorithm for cached values.
type AlgorithmType byte

const (
	// AlgoNone stores values as they are.
	AlgoNone AlgorithmType = iota
	// AlgoSnappy compresses with snappy.
	AlgoSnappy
	// AlgoLZ4 compresses with lz4.
	AlgoLZ4
)

// Algorithm is the common interface for all supported algorithms.
type Algorithm interface {
	Encode([]byte) ([]byte, error)
	Decode([]byte) ([]byte, error)
}

type noneAlgo struct{}
type snappyAlgo struct{}
type lz4Algo struct{}

var (
	algoMap = map[AlgorithmType]Algorithm{
		AlgoNone:   noneAlgo{},
		AlgoSnappy: snappyAlgo{},
		AlgoLZ4:    lz4Algo{},
	}

	algoToString = map[AlgorithmType]string{
		AlgoNone:   "none",
		AlgoSnappy: "snappy",
		AlgoLZ4:    "lz4",
	}

	stringToAlgo = map[string]AlgorithmType{
		"none":   AlgoNone,
		"snappy": AlgoSnappy,
		"lz4":    AlgoLZ4,
	}
)

func (a noneAlgo) Encode(src []byte) ([]byte, error) {
	return src, nil
}

func (a noneAlgo) Decode(src []byte) ([]byte, error) {
	return src, nil
}

func (a snappyAlgo) Encode(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (a snappyAlgo) Decode(src []byte) ([]byte, error) {
	return snappy.Decode(nil, src)
}

func (a lz4Algo) Encode(src []byte) ([]byte, error) {
	return lz4.Encode(nil, src)
}

func (a lz4Algo) Decode(src []byte) ([]byte, error) {
	return lz4.Decode(nil, src)
}

func (a AlgorithmType) String() string {
	name, ok := algoToString[a]
	if !ok {
		return "unknown algorithm"
	}

	return name
}

// AlgoFromString tries to convert `name` to an AlgorithmType.
func AlgoFromString(name string) (AlgorithmType, error) {
	algo, ok := stringToAlgo[name]
	if !ok {
		return 0, ie.Configurationf("invalid compression algorithm %q", name)
	}

	return algo, nil
}

// pack compresses `data` and prefixes it with the algorithm type,
// so values stay readable after the configured algorithm changed.
func pack(algo AlgorithmType, data []byte) ([]byte, error) {
	impl, ok := algoMap[algo]
	if !ok {
		return nil, ie.Configurationf("invalid compression algorithm %d", algo)
	}

	packed, err := impl.Encode(data)
	if err != nil {
		return nil, err
	}

	return append([]byte{byte(algo)}, packed...), nil
}

func unpack(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ie.Configurationf("empty cache value")
	}

	impl, ok := algoMap[AlgorithmType(data[0])]
	if !ok {
		return nil, ie.Configurationf("cache value uses unknown compression %d", data[0])
	}

	return impl.Decode(data[1:])
}
