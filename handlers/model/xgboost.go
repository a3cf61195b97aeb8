package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Meesho/BharatMLStack/onscene/pkg/matrix"
)

// Regressor maps feature rows to raw model outputs.
type Regressor interface {
	Predict(x matrix.Matrix) ([]float64, error)
	// NumFeatures is the expected input width, or 0 when unknown.
	NumFeatures() int
}

// objectives whose prediction is the untransformed margin
var identityObjectives = map[string]bool{
	"reg:squarederror":     true,
	"reg:linear":           true,
	"reg:absoluteerror":    true,
	"reg:pseudohubererror": true,
	"reg:quantileerror":    true,
}

type xgbDocument struct {
	Learner struct {
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	DefaultLeft     flexBools `json:"default_left"`
}

// flexBools accepts both [0, 1] and [false, true]; xgboost releases disagree.
type flexBools []bool

func (f *flexBools) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]bool, len(raw))
	for i, r := range raw {
		switch strings.TrimSpace(string(r)) {
		case "true", "1":
			out[i] = true
		case "false", "0":
			out[i] = false
		default:
			return fmt.Errorf("invalid default_left value %s", r)
		}
	}
	*f = out
	return nil
}

// XGBoostModel evaluates a gbtree ensemble saved with xgboost's save_model JSON format.
type XGBoostModel struct {
	baseScore   float64
	numFeatures int
	trees       []tree
}

type tree struct {
	left, right []int
	split       []int
	cond        []float32
	leafValue   []float64
	defaultLeft []bool
}

func ParseXGBoostJSON(data []byte) (*XGBoostModel, error) {
	var doc xgbDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid xgboost json: %w", err)
	}
	learner := doc.Learner
	if learner.GradientBooster.Name != "gbtree" {
		return nil, fmt.Errorf("unsupported booster %q", learner.GradientBooster.Name)
	}
	if !identityObjectives[learner.Objective.Name] {
		return nil, fmt.Errorf("unsupported objective %q", learner.Objective.Name)
	}
	baseScore, err := parseBaseScore(learner.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, err
	}
	numFeatures, err := strconv.Atoi(learner.LearnerModelParam.NumFeature)
	if err != nil {
		return nil, fmt.Errorf("invalid num_feature %q: %w", learner.LearnerModelParam.NumFeature, err)
	}

	m := &XGBoostModel{baseScore: baseScore, numFeatures: numFeatures}
	for i, t := range learner.GradientBooster.Model.Trees {
		parsed, err := newTree(t, numFeatures)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.trees = append(m.trees, parsed)
	}
	return m, nil
}

// base_score is "5E-1" in older releases and "[5E-1]" in newer ones.
func parseBaseScore(raw string) (float64, error) {
	s := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "["), "]")
	if s == "" {
		return 0, fmt.Errorf("missing base_score")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid base_score %q: %w", raw, err)
	}
	return v, nil
}

func newTree(t xgbTree, numFeatures int) (tree, error) {
	n := len(t.LeftChildren)
	if n == 0 {
		return tree{}, fmt.Errorf("empty tree")
	}
	if len(t.RightChildren) != n || len(t.SplitIndices) != n || len(t.SplitConditions) != n || len(t.DefaultLeft) != n {
		return tree{}, fmt.Errorf("node arrays have different lengths")
	}
	out := tree{
		left:        t.LeftChildren,
		right:       t.RightChildren,
		split:       t.SplitIndices,
		cond:        make([]float32, n),
		leafValue:   t.SplitConditions,
		defaultLeft: t.DefaultLeft,
	}
	for i := 0; i < n; i++ {
		out.cond[i] = float32(t.SplitConditions[i])
		if t.LeftChildren[i] == -1 {
			continue
		}
		if t.LeftChildren[i] <= i || t.LeftChildren[i] >= n || t.RightChildren[i] <= i || t.RightChildren[i] >= n {
			return tree{}, fmt.Errorf("node %d has children out of range", i)
		}
		if t.SplitIndices[i] < 0 || (numFeatures > 0 && t.SplitIndices[i] >= numFeatures) {
			return tree{}, fmt.Errorf("node %d splits on feature %d of %d", i, t.SplitIndices[i], numFeatures)
		}
	}
	return out, nil
}

func (t *tree) predict(x matrix.Matrix, row int) float64 {
	n := 0
	for t.left[n] != -1 {
		v, present := x.Value(row, t.split[n])
		switch {
		case !present:
			if t.defaultLeft[n] {
				n = t.left[n]
			} else {
				n = t.right[n]
			}
		case float32(v) < t.cond[n]:
			n = t.left[n]
		default:
			n = t.right[n]
		}
	}
	return t.leafValue[n]
}

func (m *XGBoostModel) NumFeatures() int { return m.numFeatures }

func (m *XGBoostModel) Predict(x matrix.Matrix) ([]float64, error) {
	if x.Cols() != m.numFeatures {
		return nil, fmt.Errorf("input has %d features, model expects %d", x.Cols(), m.numFeatures)
	}
	out := make([]float64, x.Rows())
	for i := range out {
		margin := m.baseScore
		for k := range m.trees {
			margin += m.trees[k].predict(x, i)
		}
		out[i] = margin
	}
	return out, nil
}
