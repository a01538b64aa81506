package net

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/FlavioCFOliveira/housenet/internal/activations"
	"github.com/FlavioCFOliveira/housenet/internal/layer"
	"github.com/FlavioCFOliveira/housenet/internal/loss"
	"github.com/FlavioCFOliveira/housenet/internal/opt"
)

// Snapshot file layout (little-endian):
//
//	magic    uint32  "HNET"
//	version  uint16
//	codec    uint8
//	checksum uint64  xxhash64 of the uncompressed payload
//	rawLen   uint64
//	dataLen  uint64
//	data     [dataLen]byte
//
// The payload is a gob stream: SnapshotInfo followed by the flattened params.
const (
	SnapshotMagic   = 0x54454e48 // "HNET" in little-endian
	SnapshotVersion = 1

	maxSnapshotPayload = 1 << 30
)

var (
	// ErrInvalidModel is returned for files that are not snapshots or
	// describe an unsupported architecture.
	ErrInvalidModel = errors.New("invalid model snapshot")
	// ErrChecksum is returned when the payload does not match its checksum.
	ErrChecksum = errors.New("model snapshot checksum mismatch")
)

// LayerConfig holds the configuration needed to reconstruct a layer.
type LayerConfig struct {
	Type       string
	InSize     int
	OutSize    int
	Activation string
}

// SnapshotInfo is the self-describing header of a saved network.
type SnapshotInfo struct {
	Version      int
	RunID        string
	Loss         string
	Optimizer    string
	LearningRate float64
	Layers       []LayerConfig
	Metadata     map[string][]float64
	Codec        Codec
}

// SaveOptions controls how a snapshot is written.
type SaveOptions struct {
	Codec    Codec
	RunID    string
	Metadata map[string][]float64
}

// ExtractLayerConfig extracts the configuration from a layer.
func ExtractLayerConfig(l layer.Layer) (LayerConfig, error) {
	dense, ok := l.(*layer.Dense)
	if !ok {
		return LayerConfig{}, fmt.Errorf("%w: unsupported layer type %T", ErrInvalidModel, l)
	}
	return LayerConfig{
		Type:       "Dense",
		InSize:     dense.InSize(),
		OutSize:    dense.OutSize(),
		Activation: dense.Activation().Name(),
	}, nil
}

// CreateLayer creates a new layer from the configuration.
func (c LayerConfig) CreateLayer() (layer.Layer, error) {
	if c.Type != "Dense" {
		return nil, fmt.Errorf("%w: unsupported layer type %q", ErrInvalidModel, c.Type)
	}
	if c.InSize <= 0 || c.OutSize <= 0 {
		return nil, fmt.Errorf("%w: dense layer %dx%d", ErrInvalidModel, c.InSize, c.OutSize)
	}
	act, err := activations.Resolve(c.Activation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return layer.NewDense(c.InSize, c.OutSize, act), nil
}

// Save saves the network to a file.
func (n *Network) Save(filename string, opts SaveOptions) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := n.Encode(file, opts); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Encode writes the network snapshot to w.
func (n *Network) Encode(w io.Writer, opts SaveOptions) error {
	info := SnapshotInfo{
		Version:  SnapshotVersion,
		RunID:    opts.RunID,
		Metadata: opts.Metadata,
	}
	if n.loss != nil {
		info.Loss = n.loss.Name()
	}
	if n.opt != nil {
		info.Optimizer = n.opt.Name()
		info.LearningRate = n.opt.LearningRate()
	}
	for _, l := range n.layers {
		cfg, err := ExtractLayerConfig(l)
		if err != nil {
			return err
		}
		info.Layers = append(info.Layers, cfg)
	}

	var payload bytes.Buffer
	encoder := gob.NewEncoder(&payload)
	if err := encoder.Encode(info); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	if err := encoder.Encode(n.Params()); err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	raw := payload.Bytes()
	data, used, err := compress(opts.Codec, raw)
	if err != nil {
		return err
	}

	header := []any{
		uint32(SnapshotMagic),
		uint16(SnapshotVersion),
		uint8(used),
		xxhash.Sum64(raw),
		uint64(len(raw)),
		uint64(len(data)),
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("failed to write snapshot header: %w", err)
		}
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write snapshot payload: %w", err)
	}
	return nil
}

// Load loads a network snapshot from a file.
func Load(filename string) (*Network, *SnapshotInfo, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads a snapshot written by Encode and rebuilds the network.
func Decode(r io.Reader) (*Network, *SnapshotInfo, error) {
	var (
		magic    uint32
		version  uint16
		codec    uint8
		checksum uint64
		rawLen   uint64
		dataLen  uint64
	)
	for _, v := range []any{&magic, &version, &codec, &checksum, &rawLen, &dataLen} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, nil, fmt.Errorf("%w: reading header: %v", ErrInvalidModel, err)
		}
	}
	if magic != SnapshotMagic {
		return nil, nil, fmt.Errorf("%w: bad magic %#x", ErrInvalidModel, magic)
	}
	if version != SnapshotVersion {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidModel, version)
	}
	if rawLen > maxSnapshotPayload || dataLen > maxSnapshotPayload {
		return nil, nil, fmt.Errorf("%w: payload too large", ErrInvalidModel)
	}
	if err := checkPayloadSizes(Codec(codec), rawLen, dataLen); err != nil {
		return nil, nil, err
	}

	// read what is there rather than trusting dataLen for the allocation
	data, err := io.ReadAll(io.LimitReader(r, int64(dataLen)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading payload: %v", ErrInvalidModel, err)
	}
	if uint64(len(data)) != dataLen {
		return nil, nil, fmt.Errorf("%w: payload truncated: %d of %d bytes", ErrInvalidModel, len(data), dataLen)
	}
	raw, err := decompress(Codec(codec), data, rawLen)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(raw)) != rawLen || xxhash.Sum64(raw) != checksum {
		return nil, nil, ErrChecksum
	}

	decoder := gob.NewDecoder(bytes.NewReader(raw))
	var info SnapshotInfo
	if err := decoder.Decode(&info); err != nil {
		return nil, nil, fmt.Errorf("%w: reading header: %v", ErrInvalidModel, err)
	}
	info.Codec = Codec(codec)

	var params []float64
	if err := decoder.Decode(&params); err != nil {
		return nil, nil, fmt.Errorf("%w: reading parameters: %v", ErrInvalidModel, err)
	}

	layers := make([]layer.Layer, 0, len(info.Layers))
	offset := 0
	for i, cfg := range info.Layers {
		l, err := cfg.CreateLayer()
		if err != nil {
			return nil, nil, fmt.Errorf("layer %d: %w", i, err)
		}
		size := len(l.Params())
		if offset+size > len(params) {
			return nil, nil, fmt.Errorf("%w: parameters truncated at layer %d", ErrInvalidModel, i)
		}
		l.SetParams(params[offset : offset+size])
		layers = append(layers, l)
		offset += size
	}
	if offset != len(params) {
		return nil, nil, fmt.Errorf("%w: %d unused parameters", ErrInvalidModel, len(params)-offset)
	}

	var lossFn loss.Loss
	switch info.Loss {
	case "mse", "":
		lossFn = loss.MSE{}
	case "mae":
		lossFn = loss.MAE{}
	default:
		return nil, nil, fmt.Errorf("%w: unsupported loss %q", ErrInvalidModel, info.Loss)
	}

	var optimizer opt.Optimizer
	if info.Optimizer != "" {
		optimizer, err = opt.Resolve(info.Optimizer, info.LearningRate)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
	}

	return New(layers, lossFn, optimizer), &info, nil
}
