package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pulsar/internal/model"
	"github.com/roach88/pulsar/internal/simulate"
	"github.com/roach88/pulsar/internal/tim"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Model   string
	Out     string
	Batches []string
	Noise   bool
	Seed    uint64
}

// SimulateOutput is the simulate command result.
type SimulateOutput struct {
	File          string   `json:"file"`
	TOAs          int      `json:"toas"`
	Observatories []string `json:"observatories"`
	Fingerprint   string   `json:"fingerprint"`
}

// Text renders the output for humans.
func (o SimulateOutput) Text() string {
	return fmt.Sprintf("wrote %d TOAs (%s) to %s\nfingerprint: %s\n",
		o.TOAs, strings.Join(o.Observatories, ", "), o.File, o.Fingerprint)
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate fake TOAs on a spin model",
		Long: `Generate TOAs that sit on the pulses of a spin model and write them as a
tim file.

Each --batch is start:end:count:freq:obs[:error], with MJD bounds, the TOA
count, the frequency in MHz ("inf" for infinite frequency), the
observatory code and the uncertainty in microseconds (default 1). With
--noise each TOA is perturbed by Gaussian noise of its uncertainty.

Examples:
  pulsar simulate --model ngc6440e.cue --batch 55000:55500:30:1400:ao --out fake.tim
  pulsar simulate --model ngc6440e.cue --noise --seed 7 \
      --batch 55000:55500:30:1400:ao --batch 55010:55500:40:800:gbt:2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "CUE spin model file (required)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output tim file (default stdout)")
	cmd.Flags().StringArrayVar(&opts.Batches, "batch", nil, "batch start:end:count:freq:obs[:error] (repeatable)")
	cmd.Flags().BoolVar(&opts.Noise, "noise", false, "add Gaussian noise")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "noise seed")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("batch")

	return cmd
}

func runSimulate(opts *SimulateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	batches := make([]simulate.Batch, 0, len(opts.Batches))
	for _, spec := range opts.Batches {
		b, err := ParseBatch(spec)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeUsage, "invalid --batch", err)
		}
		b.AddNoise = opts.Noise
		b.Seed = opts.Seed
		batches = append(batches, b)
	}

	m, err := model.LoadFile(opts.Model)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeModel, "failed to load model", err)
	}

	t, err := simulate.Many(m, batches...)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeCompute, "failed to simulate TOAs", err)
	}

	if opts.Out == "" || opts.Out == "-" {
		if err := tim.Write(cmd.OutOrStdout(), t); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeTOAs, "failed to write TOAs", err)
		}
		return nil
	}

	if err := tim.WriteFile(opts.Out, t); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeTOAs, "failed to write TOAs", err)
	}
	formatter.VerboseLog("Wrote %d TOAs to %s", t.Len(), opts.Out)

	return formatter.Success(SimulateOutput{
		File:          opts.Out,
		TOAs:          t.Len(),
		Observatories: t.Observatories(),
		Fingerprint:   t.Fingerprint(),
	})
}

// ParseBatch parses start:end:count:freq:obs[:error].
func ParseBatch(spec string) (simulate.Batch, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 5 && len(parts) != 6 {
		return simulate.Batch{}, fmt.Errorf("%q: want start:end:count:freq:obs[:error]", spec)
	}

	var (
		b   simulate.Batch
		err error
	)
	if b.StartMJD, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return simulate.Batch{}, fmt.Errorf("%q: bad start: %w", spec, err)
	}
	if b.EndMJD, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return simulate.Batch{}, fmt.Errorf("%q: bad end: %w", spec, err)
	}
	if b.Count, err = strconv.Atoi(parts[2]); err != nil {
		return simulate.Batch{}, fmt.Errorf("%q: bad count: %w", spec, err)
	}
	if b.FreqMHz, err = strconv.ParseFloat(parts[3], 64); err != nil {
		return simulate.Batch{}, fmt.Errorf("%q: bad frequency: %w", spec, err)
	}
	b.Obs = parts[4]
	if b.Obs == "" {
		return simulate.Batch{}, fmt.Errorf("%q: observatory is required", spec)
	}
	if len(parts) == 6 {
		if b.ErrorUS, err = strconv.ParseFloat(parts[5], 64); err != nil {
			return simulate.Batch{}, fmt.Errorf("%q: bad error: %w", spec, err)
		}
	}
	return b, nil
}
