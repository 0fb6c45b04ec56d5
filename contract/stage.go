package contract

// DefaultInvalidStages are pipeline stages whose contracts never count toward
// realized value.
var DefaultInvalidStages = []string{
	"Cancelado",
	"Não Contratado",
	"Comercial",
	"Em Digitação",
}

// StageFilter decides which pipeline stages are eligible for aggregation.
// A contract without a stage is eligible: absence is not invalidity.
type StageFilter struct {
	invalid map[string]struct{}
}

func NewStageFilter(invalid []string) StageFilter {
	f := StageFilter{invalid: make(map[string]struct{}, len(invalid))}
	for _, s := range invalid {
		if c := collapse(s); c != "" {
			f.invalid[c] = struct{}{}
		}
	}
	return f
}

// Valid reports whether a normalized stage name can be counted.
func (f StageFilter) Valid(stage string) bool {
	_, bad := f.invalid[stage]
	return !bad
}

// Keep returns the contracts whose stage is valid, preserving order.
func (f StageFilter) Keep(contracts []Contract) []Contract {
	out := make([]Contract, 0, len(contracts))
	for _, c := range contracts {
		if f.Valid(c.EtapaPipeline) {
			out = append(out, c)
		}
	}
	return out
}
