package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/housenet/internal/config"
)

// Loader splits a Source into training and validation sets.
type Loader struct {
	source          Source
	seed            int64
	validationSplit float64
	log             logrus.FieldLogger

	// normalizer backs NormalizeData.
	normalizer Normalizer
}

// NewLoader creates a loader reading from source. A nil logger is
// replaced by logrus.New().
func NewLoader(cfg config.Config, source Source, log logrus.FieldLogger) *Loader {
	if log == nil {
		log = logrus.New()
	}
	return &Loader{
		source:          source,
		seed:            cfg.Seed,
		validationSplit: cfg.ValidationSplit,
		log:             log,
	}
}

// SourceFromConfig builds the Source named by cfg.Dataset.
func SourceFromConfig(cfg config.Config) (Source, error) {
	switch cfg.Dataset.Source {
	case config.SourceCSV:
		return CSVSource{
			Path:         cfg.Dataset.Path,
			TargetColumn: cfg.Dataset.TargetColumn,
			HasHeader:    cfg.Dataset.HasHeader,
		}, nil
	case config.SourceSynthetic:
		return SyntheticSource{Rows: cfg.Dataset.SyntheticRows, Seed: cfg.Seed}, nil
	default:
		return nil, fmt.Errorf("%w: source '%s' is not supported", ErrDataUnavailable, cfg.Dataset.Source)
	}
}

// isDataError reports whether err already names what is wrong with the data.
func isDataError(err error) bool {
	return errors.Is(err, ErrDataUnavailable) ||
		errors.Is(err, ErrMalformedData) ||
		errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrFeatureIndex)
}

// validationRows rounds the held out share up, so 100 rows at 0.29 give 29.
func validationRows(rows int, fraction float64) int {
	return int(math.Ceil(float64(rows)*fraction - 1e-9))
}

// LoadData loads the source, shuffles rows with the configured seed and
// holds out the last ValidationSplit fraction for validation.
func (l *Loader) LoadData() (Split, Split, error) {
	if l.source == nil {
		return Split{}, Split{}, fmt.Errorf("%w: no source configured", ErrDataUnavailable)
	}
	x, y, err := l.source.Load()
	if err != nil {
		if !isDataError(err) {
			err = fmt.Errorf("%w: %w", ErrDataUnavailable, err)
		}
		return Split{}, Split{}, err
	}
	if err := (Split{X: x, Y: y}).Validate(); err != nil {
		return Split{}, Split{}, err
	}

	rows, cols := x.Dims()
	valRows := validationRows(rows, l.validationSplit)
	trainRows := rows - valRows
	if valRows < 1 || trainRows < 1 {
		return Split{}, Split{}, fmt.Errorf("%w: %d rows cannot be split with validation fraction %g", ErrDataUnavailable, rows, l.validationSplit)
	}

	order := rand.New(rand.NewSource(l.seed)).Perm(rows)

	train := Split{X: mat.NewDense(trainRows, cols, nil), Y: make([]float64, trainRows)}
	validate := Split{X: mat.NewDense(valRows, cols, nil), Y: make([]float64, valRows)}
	for i, idx := range order {
		dst, k := train, i
		if i >= trainRows {
			dst, k = validate, i-trainRows
		}
		dst.X.SetRow(k, x.RawRowView(idx))
		dst.Y[k] = y[idx]
	}

	l.log.WithFields(logrus.Fields{
		"rows":       rows,
		"features":   cols,
		"train":      trainRows,
		"validation": valRows,
		"seed":       l.seed,
	}).Info("dataset loaded")
	return train, validate, nil
}

// NormalizeData fits statistics on x when training is true and stores
// them; otherwise it applies the stored statistics unchanged.
func (l *Loader) NormalizeData(x *mat.Dense, training bool) (*mat.Dense, error) {
	if training {
		n, err := Fit(x)
		if err != nil {
			return nil, err
		}
		l.normalizer = n
	}
	return l.normalizer.Apply(x)
}

// Normalizer returns the statistics stored by NormalizeData.
func (l *Loader) Normalizer() Normalizer {
	return l.normalizer
}
