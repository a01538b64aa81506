package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/housenet/internal/dataset"
	"github.com/FlavioCFOliveira/housenet/internal/net"
)

// Predictor scores raw feature rows with a saved model. It applies the
// same ratio features and training statistics the model was fitted with.
type Predictor struct {
	Network    *net.Network
	Normalizer dataset.Normalizer
	Info       *net.SnapshotInfo
}

// LoadPredictor reads a snapshot written by Run.
func LoadPredictor(path string) (*Predictor, error) {
	network, info, err := net.Load(path)
	if err != nil {
		return nil, err
	}
	n := dataset.Normalizer{
		Mean: info.Metadata[MetaFeatureMean],
		Std:  info.Metadata[MetaFeatureStd],
	}
	if !n.Fitted() {
		return nil, fmt.Errorf("%w: snapshot has no normalization statistics", net.ErrInvalidModel)
	}
	return &Predictor{Network: network, Normalizer: n, Info: info}, nil
}

// RawFeatures is the number of input columns expected by Predict, or 0 if
// the snapshot does not record it.
func (p *Predictor) RawFeatures() int {
	if v := p.Info.Metadata[MetaRawFeatures]; len(v) == 1 {
		return int(v[0])
	}
	return 0
}

// Predict returns one prediction per row of the raw feature matrix x.
func (p *Predictor) Predict(x *mat.Dense) ([]float64, error) {
	if want := p.RawFeatures(); want > 0 {
		if _, cols := x.Dims(); cols != want {
			return nil, fmt.Errorf("%w: input has %d columns, model expects %d", dataset.ErrFeatureIndex, cols, want)
		}
	}
	features, err := dataset.AddFeatures(x)
	if err != nil {
		return nil, err
	}
	features, err = p.Normalizer.Apply(features)
	if err != nil {
		return nil, err
	}
	return p.Network.PredictMatrix(features)
}
