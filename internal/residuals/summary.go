package residuals

// Summary is the scalar digest of a residual snapshot.
type Summary struct {
	Model        string  `json:"model"`
	TOAs         int     `json:"toas"`
	SubtractMean bool    `json:"subtract_mean"`
	Mean         float64 `json:"mean_s"`
	Chi2         float64 `json:"chi2"`
	DOF          int     `json:"dof"`
	ReducedChi2  float64 `json:"reduced_chi2,omitempty"`
	WeightedRMS  float64 `json:"weighted_rms_s,omitempty"`
}

// Summarize reduces r for nfree fitted parameters. ReducedChi2 and
// WeightedRMS are left zero when undefined (no degrees of freedom, no rows).
func (r *Residuals) Summarize(nfree int) (Summary, error) {
	chi2, err := r.Chi2()
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		Model:        r.model,
		TOAs:         r.Len(),
		SubtractMean: r.subtracted,
		Mean:         r.mean,
		Chi2:         chi2,
		DOF:          r.DOF(nfree),
	}
	if s.DOF > 0 {
		s.ReducedChi2 = chi2 / float64(s.DOF)
	}
	if r.Len() > 0 {
		rms, err := r.RMSWeighted()
		if err != nil {
			return Summary{}, err
		}
		s.WeightedRMS = rms
	}
	return s, nil
}
