package model

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/Meesho/BharatMLStack/onscene/pkg/matrix"
)

// Transformer turns the raw feature frame into the regressor's input.
type Transformer interface {
	Transform(frame *matrix.Frame) (matrix.Matrix, error)
	OutputDim() int
}

const (
	StepOneHot         = "one_hot"
	StepStandardScaler = "standard_scaler"
	StepImpute         = "impute"
	StepPassthrough    = "passthrough"
)

// PipelineSpec is the serialized column transformer shipped next to the regressor.
type PipelineSpec struct {
	SparseOutput bool       `json:"sparse_output"`
	Steps        []StepSpec `json:"steps"`
}

type StepSpec struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Column     string   `json:"column"`
	Categories []string `json:"categories,omitempty"`
	Mean       float64  `json:"mean,omitempty"`
	Scale      float64  `json:"scale,omitempty"`
	// applied to NaN before any other arithmetic
	ImputeValue *float64 `json:"impute_value,omitempty"`
}

type step interface {
	width() int
	// write emits the step's values for row; emit receives offsets local to the step.
	write(frame *matrix.Frame, row int, emit func(j int, v float64)) error
}

// Pipeline applies its steps left to right, concatenating their outputs.
type Pipeline struct {
	sparse bool
	steps  []step
	dim    int
}

func ParsePipeline(data []byte) (*Pipeline, error) {
	var spec PipelineSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("invalid pipeline json: %w", err)
	}
	return NewPipeline(spec)
}

func NewPipeline(spec PipelineSpec) (*Pipeline, error) {
	if len(spec.Steps) == 0 {
		return nil, fmt.Errorf("pipeline has no steps")
	}
	p := &Pipeline{sparse: spec.SparseOutput}
	for i, s := range spec.Steps {
		if s.Column == "" {
			return nil, fmt.Errorf("step %d (%s) has no column", i, s.Name)
		}
		var st step
		switch s.Type {
		case StepOneHot:
			if len(s.Categories) == 0 {
				return nil, fmt.Errorf("step %s: one_hot needs categories", s.Name)
			}
			index := make(map[string]int, len(s.Categories))
			for j, c := range s.Categories {
				if _, dup := index[c]; dup {
					return nil, fmt.Errorf("step %s: duplicate category %q", s.Name, c)
				}
				index[c] = j
			}
			st = &oneHot{column: s.Column, index: index}
		case StepStandardScaler:
			if s.Scale == 0 {
				return nil, fmt.Errorf("step %s: scale must be non-zero", s.Name)
			}
			st = &numericStep{column: s.Column, impute: s.ImputeValue, mean: s.Mean, scale: s.Scale}
		case StepImpute:
			if s.ImputeValue == nil {
				return nil, fmt.Errorf("step %s: impute needs impute_value", s.Name)
			}
			st = &numericStep{column: s.Column, impute: s.ImputeValue, scale: 1}
		case StepPassthrough:
			st = &numericStep{column: s.Column, scale: 1}
		default:
			return nil, fmt.Errorf("step %s: unknown type %q", s.Name, s.Type)
		}
		p.steps = append(p.steps, st)
		p.dim += st.width()
	}
	return p, nil
}

func (p *Pipeline) OutputDim() int { return p.dim }

func (p *Pipeline) Transform(frame *matrix.Frame) (matrix.Matrix, error) {
	rows := frame.Rows()
	if p.sparse {
		b := matrix.NewCSRBuilder(p.dim)
		for i := 0; i < rows; i++ {
			if err := p.writeRow(frame, i, b.Add); err != nil {
				return nil, err
			}
			b.EndRow()
		}
		return b.Build()
	}
	d, err := matrix.NewDense(rows, p.dim, nil)
	if err != nil {
		return nil, err
	}
	for i := 0; i < rows; i++ {
		if err := p.writeRow(frame, i, func(j int, v float64) { d.Set(i, j, v) }); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (p *Pipeline) writeRow(frame *matrix.Frame, row int, emit func(j int, v float64)) error {
	offset := 0
	for _, st := range p.steps {
		base := offset
		if err := st.write(frame, row, func(j int, v float64) { emit(base+j, v) }); err != nil {
			return err
		}
		offset += st.width()
	}
	return nil
}

// oneHot ignores unknown and empty categories, leaving the row all zero.
type oneHot struct {
	column string
	index  map[string]int
}

func (o *oneHot) width() int { return len(o.index) }

func (o *oneHot) write(frame *matrix.Frame, row int, emit func(j int, v float64)) error {
	values, ok := frame.Categorical(o.column)
	if !ok {
		return fmt.Errorf("categorical column %s not in frame", o.column)
	}
	if j, known := o.index[values[row]]; known {
		emit(j, 1)
	}
	return nil
}

// numericStep computes (impute(v) - mean) / scale.
type numericStep struct {
	column string
	impute *float64
	mean   float64
	scale  float64
}

func (n *numericStep) width() int { return 1 }

func (n *numericStep) write(frame *matrix.Frame, row int, emit func(j int, v float64)) error {
	values, ok := frame.Numeric(n.column)
	if !ok {
		return fmt.Errorf("numeric column %s not in frame", n.column)
	}
	v := values[row]
	if math.IsNaN(v) && n.impute != nil {
		v = *n.impute
	}
	emit(0, (v-n.mean)/n.scale)
	return nil
}
