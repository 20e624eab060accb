package sim

// Series is the sampled history of one variable.
type Series struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Values      []float64 `json:"values"`
}

// Result is a snapshot of a simulation's time series.
type Result struct {
	TimeSymbol string    `json:"time_symbol"`
	Time       []float64 `json:"time"`
	Series     []Series  `json:"series"`
}

// Result copies the time series recorded so far.
func (s *Simulation) Result() *Result {
	r := &Result{TimeSymbol: string(s.timeSymbol), Time: s.Time()}
	for _, v := range s.Variables() {
		r.Series = append(r.Series, Series{Name: string(v.Symbol), Description: v.Description, Values: v.Series})
	}
	return r
}

func (r *Result) Get(name string) (Series, bool) {
	for _, s := range r.Series {
		if s.Name == name {
			return s, true
		}
	}
	return Series{}, false
}

// Final maps every variable to its last value.
func (r *Result) Final() map[string]float64 {
	out := make(map[string]float64, len(r.Series))
	for _, s := range r.Series {
		if len(s.Values) > 0 {
			out[s.Name] = s.Values[len(s.Values)-1]
		}
	}
	return out
}
