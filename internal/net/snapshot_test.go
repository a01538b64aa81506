package net

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestSnapshotRoundTrip tests that every codec restores an identical network.
func TestSnapshotRoundTrip(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecZstd, CodecLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			network := newTestNetwork(11, 5, 4, 2, 1)
			path := filepath.Join(t.TempDir(), "model.hnet")

			meta := map[string][]float64{"feature_mean": {1, 2, 3}}
			if err := network.Save(path, SaveOptions{Codec: codec, RunID: "run-1", Metadata: meta}); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, info, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if info.RunID != "run-1" {
				t.Errorf("RunID = %q, want run-1", info.RunID)
			}
			if info.Loss != "mse" || info.Optimizer != "adam" {
				t.Errorf("Loss/Optimizer = %s/%s, want mse/adam", info.Loss, info.Optimizer)
			}
			if !reflect.DeepEqual(info.Metadata, meta) {
				t.Errorf("Metadata = %v, want %v", info.Metadata, meta)
			}
			if len(info.Layers) != 3 {
				t.Fatalf("Layers = %d, want 3", len(info.Layers))
			}
			if info.Layers[0].Activation != "tanh" || info.Layers[2].Activation != "linear" {
				t.Errorf("activations = %s/%s, want tanh/linear", info.Layers[0].Activation, info.Layers[2].Activation)
			}

			x := mat.NewDense(3, 5, []float64{
				0.1, 0.2, 0.3, 0.4, 0.5,
				-1, 0, 1, 2, 3,
				9, 8, 7, 6, 5,
			})
			want, err := network.PredictMatrix(x)
			if err != nil {
				t.Fatal(err)
			}
			got, err := loaded.PredictMatrix(x)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, want) {
				t.Errorf("predictions = %v, want %v", got, want)
			}
		})
	}
}

// TestSnapshotRejectsCorruption tests checksum and format validation.
func TestSnapshotRejectsCorruption(t *testing.T) {
	network := newTestNetwork(2, 3, 1)
	var buf bytes.Buffer
	if err := network.Encode(&buf, SaveOptions{}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	data := buf.Bytes()
	data[len(data)-1] ^= 0xff
	if _, _, err := Decode(bytes.NewReader(data)); !errors.Is(err, ErrChecksum) {
		t.Errorf("flipped byte: err = %v, want ErrChecksum", err)
	}

	if _, _, err := Decode(bytes.NewReader([]byte("not a model at all, just text"))); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("text: err = %v, want ErrInvalidModel", err)
	}
}

func craftSnapshot(codec Codec, rawLen, dataLen uint64, payload []byte) []byte {
	var buf bytes.Buffer
	for _, v := range []any{uint32(SnapshotMagic), uint16(SnapshotVersion), uint8(codec), uint64(0), rawLen, dataLen} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.Write(payload)
	return buf.Bytes()
}

// TestSnapshotRejectsOversizedHeader tests that declared sizes the
// payload cannot back are refused without allocating them.
func TestSnapshotRejectsOversizedHeader(t *testing.T) {
	zeros, _, err := compress(CodecZstd, make([]byte, 32<<20))
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"none raw larger than stored", craftSnapshot(CodecNone, 1<<29, 4, []byte{1, 2, 3, 4})},
		{"lz4 ratio", craftSnapshot(CodecLZ4, 1<<29, 4, []byte{1, 2, 3, 4})},
		{"truncated payload", craftSnapshot(CodecNone, 1<<29, 1<<29, []byte{1, 2, 3, 4})},
		{"zstd expands past declared size", craftSnapshot(CodecZstd, 16, uint64(len(zeros)), zeros)},
		{"unknown codec", craftSnapshot(Codec(9), 4, 4, []byte{1, 2, 3, 4})},
		{"over limit", craftSnapshot(CodecNone, maxSnapshotPayload+1, maxSnapshotPayload+1, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(bytes.NewReader(tt.data)); !errors.Is(err, ErrInvalidModel) {
				t.Errorf("err = %v, want ErrInvalidModel", err)
			}
		})
	}
}

// TestParseCodec tests codec name resolution.
func TestParseCodec(t *testing.T) {
	tests := []struct {
		name    string
		want    Codec
		wantErr bool
	}{
		{"ZSTD", CodecZstd, false},
		{"lz4", CodecLZ4, false},
		{"", CodecNone, false},
		{"gzip", CodecNone, true},
	}
	for _, tt := range tests {
		got, err := ParseCodec(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCodec(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCodec(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}
