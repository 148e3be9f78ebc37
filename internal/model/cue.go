package model

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pulsar/internal/mjd"
	"github.com/roach88/pulsar/internal/toa"
)

// spinSchema constrains spin model files. Definitions are closed, so a
// misspelled field is rejected rather than silently ignored.
const spinSchema = `
#Spin: {
	psr:       string & !=""
	timescale: *"utc" | "tt" | "tdb"
	pepoch:    string & =~"^[0-9]+(\\.[0-9]*)?$"
	f0:        number & >0
	f1:        number | *0
	f2:        number | *0
	dm:        number & >=0 | *0
	jumps: [string]: number
}
`

// spinDoc mirrors #Spin for decoding.
type spinDoc struct {
	PSR       string             `json:"psr"`
	TimeScale string             `json:"timescale"`
	PEpoch    string             `json:"pepoch"`
	F0        float64            `json:"f0"`
	F1        float64            `json:"f1"`
	F2        float64            `json:"f2"`
	DM        float64            `json:"dm"`
	Jumps     map[string]float64 `json:"jumps"`
}

// LoadError is a model file error with its CUE source position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads a spin model from a CUE file.
func LoadFile(path string) (*Spin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return Parse(data, path)
}

// Parse compiles a CUE spin model document. filename is used only for error
// positions.
//
// Example:
//
//	psr:       "J1748-2021E"
//	timescale: "tdb"
//	pepoch:    "53750.000000"
//	f0:        61.485476554
//	f1:        -1.181e-15
//	dm:        224.114
//	jumps: gbt: 1.5e-6
func Parse(data []byte, filename string) (*Spin, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(spinSchema, cue.Filename("spin_schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	doc := ctx.CompileBytes(data, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Spin")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var sd spinDoc
	if err := v.Decode(&sd); err != nil {
		return nil, formatCUEError(err)
	}

	pepoch, err := mjd.Parse(sd.PEpoch)
	if err != nil {
		return nil, &LoadError{
			Field:   "pepoch",
			Message: err.Error(),
			Pos:     v.LookupPath(cue.ParsePath("pepoch")).Pos(),
		}
	}

	scale, err := toa.ParseScale(sd.TimeScale)
	if err != nil {
		return nil, &LoadError{Field: "timescale", Message: err.Error()}
	}

	return NewSpin(SpinParams{
		PSR:       sd.PSR,
		TimeScale: scale,
		PEpoch:    pepoch,
		F0:        sd.F0,
		F1:        sd.F1,
		F2:        sd.F2,
		DM:        sd.DM,
		Jumps:     sd.Jumps,
	})
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
