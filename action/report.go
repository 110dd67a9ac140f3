package action

import "errors"

// Report pairs an emission with the non-fatal diagnostics gathered while
// producing it. An action that partially succeeds — some inputs decoded,
// one external call failed — returns both, so the dispatcher can surface
// the failures as diagnostics while the healthy outputs still flow
// downstream.
type Report[I any] struct {
	Outputs     Outputs[I]
	Diagnostics []error
}

// Diagnose appends a non-fatal diagnostic to the report.
func (r Report[I]) Diagnose(err error) Report[I] {
	if err != nil {
		r.Diagnostics = append(r.Diagnostics, err)
	}
	return r
}

// Into flattens the report to the Execute return shape: the outputs, plus
// the joined diagnostics as the error. The dispatcher treats an error
// accompanied by outputs as diagnostic, not fatal — the outputs are still
// delivered.
func (r Report[I]) Into() (Outputs[I], error) {
	if len(r.Diagnostics) == 0 {
		return r.Outputs, nil
	}
	return r.Outputs, errors.Join(r.Diagnostics...)
}
