package main

import (
	"strings"

	"github.com/posener/complete"
)

// commandPredictor completes --command values.
type commandPredictor struct {
	names []string
}

func newCommandPredictor() complete.Predictor {
	return &commandPredictor{names: commandNames()}
}

// Predict implements complete.Predictor interface.
func (p *commandPredictor) Predict(args complete.Args) []string {
	var results []string
	for _, name := range p.names {
		if strings.HasPrefix(name, args.Last) {
			results = append(results, name)
		}
	}
	return results
}
