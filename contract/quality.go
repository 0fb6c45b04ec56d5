package contract

// QualityReport counts contracts that need manual review.
type QualityReport struct {
	Total                       int `json:"total"`
	InconsistenciaDataPagamento int `json:"inconsistenciaDataPagamento"`
	LiquidoFallback             int `json:"liquidoFallback"`
	ComissaoCalculada           int `json:"comissaoCalculada"`
	ComissaoZero                int `json:"comissaoZero"`
	LiquidoZero                 int `json:"liquidoZero"`
}

// Quality tallies the quality flags and zero-value conditions.
func Quality(contracts []Contract) QualityReport {
	r := QualityReport{Total: len(contracts)}
	for _, c := range contracts {
		if c.InconsistenciaDataPagamento {
			r.InconsistenciaDataPagamento++
		}
		if c.LiquidoFallback {
			r.LiquidoFallback++
		}
		if c.ComissaoCalculada {
			r.ComissaoCalculada++
		}
		if c.ComissaoTotal == 0 {
			r.ComissaoZero++
		}
		if c.LiquidoLiberado == 0 {
			r.LiquidoZero++
		}
	}
	return r
}
