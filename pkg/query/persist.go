package query

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gitrdm/marabou-go/internal/boundmgr"
	"github.com/gitrdm/marabou-go/internal/constraint"
)

// Save writes the query as newline-delimited text format: a
// header line, one bound line per explicitly-set bound, one line per
// equation, one self-describing line per constraint, and one line per
// input/output mark. Loading the result reproduces the query
// bit-identically (same variable indices, same construction calls).
//
// Disjunction constraints whose disjuncts carry Equations are not
// supported by this format (only Tightenings round-trip); Save returns an
// error rather than silently dropping them.
func (q *Query) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	numConstraints := len(q.pl) + len(q.nl)
	fmt.Fprintf(bw, "%d %d %d %d %d\n", q.numVars, len(q.equations), numConstraints, len(q.inputVars), len(q.outputVars))

	for v, x := range q.lb {
		fmt.Fprintf(bw, "lb,%d,%s\n", v, formatFloat(x))
	}
	for v, x := range q.ub {
		fmt.Fprintf(bw, "ub,%d,%s\n", v, formatFloat(x))
	}

	for _, eq := range q.equations {
		parts := []string{"equation", opName(eq.Op), formatFloat(eq.Scalar)}
		for _, a := range eq.Addends {
			parts = append(parts, formatFloat(a.Coeff), strconv.Itoa(a.Var))
		}
		fmt.Fprintln(bw, strings.Join(parts, ","))
	}

	for _, spec := range q.pl {
		line, err := plSpecLine(spec)
		if err != nil {
			return err
		}
		fmt.Fprintln(bw, line)
	}
	for _, spec := range q.nl {
		fmt.Fprintln(bw, nlSpecLine(spec))
	}

	for v, idx := range q.inputVars {
		fmt.Fprintf(bw, "input,%d,%d\n", v, idx)
	}
	for v, idx := range q.outputVars {
		fmt.Fprintf(bw, "output,%d,%d\n", v, idx)
	}

	return bw.Flush()
}

func formatFloat(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }

func opName(op EquationOp) string {
	switch op {
		case EQ:
			return "eq"
		case LE:
			return "le"
		case GE:
			return "ge"
		default:
			return "eq"
	}
}

func parseOp(s string) (EquationOp, error) {
	switch s {
		case "eq":
			return EQ, nil
		case "le":
			return LE, nil
		case "ge":
			return GE, nil
		default:
			return EQ, fmt.Errorf("query: unknown equation op %q", s)
	}
}

func plSpecLine(spec plSpec) (string, error) {
	switch spec.kind {
		case plReLU:
			return fmt.Sprintf("relu,%d,%d", spec.f, spec.b), nil
		case plLeakyReLU:
			return fmt.Sprintf("leaky_relu,%d,%d,%s", spec.f, spec.b, formatFloat(spec.slope)), nil
		case plAbsoluteValue:
			return fmt.Sprintf("absoluteValue,%d,%d", spec.f, spec.b), nil
		case plSign:
			return fmt.Sprintf("sign,%d,%d", spec.f, spec.b), nil
		case plMax:
			parts := []string{"max", strconv.Itoa(spec.f)}
			for _, e := range spec.elements {
				parts = append(parts, strconv.Itoa(e))
			}
			return strings.Join(parts, ","), nil
		case plDisjunction:
			return disjunctionLine(spec)
		default:
			return "", fmt.Errorf("query: unsupported piecewise-linear constraint kind %d", spec.kind)
	}
}

// disjunctionLine serializes "disjunction,<numVars>,v1,...,<numDisjuncts>,
// <numTightenings1>,var,kind,value,...,<numTightenings2>,...". Equations
// attached to a disjunct are rejected (see Save's doc comment).
func disjunctionLine(spec plSpec) (string, error) {
	parts := []string{"disjunction", strconv.Itoa(len(spec.vars))}
	for _, v := range spec.vars {
		parts = append(parts, strconv.Itoa(v))
	}
	parts = append(parts, strconv.Itoa(len(spec.disjuncts)))
	for _, d := range spec.disjuncts {
		if len(d.Equations) > 0 {
			return "", fmt.Errorf("query: disjunction disjuncts with Equations cannot be persisted")
		}
		parts = append(parts, strconv.Itoa(len(d.Tightenings)))
		for _, t := range d.Tightenings {
			parts = append(parts, strconv.Itoa(t.Variable), kindName(t.Kind), formatFloat(t.Value))
		}
	}
	return strings.Join(parts, ","), nil
}

func kindName(k boundmgr.Kind) string {
	if k == boundmgr.LB {
		return "lb"
	}
	return "ub"
}

func parseKind(s string) (boundmgr.Kind, error) {
	switch s {
		case "lb":
			return boundmgr.LB, nil
		case "ub":
			return boundmgr.UB, nil
		default:
			return boundmgr.LB, fmt.Errorf("query: unknown tightening kind %q", s)
	}
}

func nlSpecLine(spec nlSpec) string {
	switch spec.kind {
		case nlSigmoid:
			return fmt.Sprintf("sigmoid,%d,%d", spec.f, spec.b)
		case nlRound:
			return fmt.Sprintf("round,%d,%d", spec.f, spec.b)
		case nlExp:
			return fmt.Sprintf("exp,%d,%d", spec.f, spec.b)
		case nlReciprocal:
			return fmt.Sprintf("reciprocal,%d,%d", spec.f, spec.b)
		case nlBilinear:
			return fmt.Sprintf("bilinear,%d,%d,%d", spec.f, spec.b1, spec.b2)
		case nlSoftmax:
			parts := []string{"softmax", strconv.Itoa(len(spec.inputs))}
			for _, v := range spec.inputs {
				parts = append(parts, strconv.Itoa(v))
			}
			for _, v := range spec.outputs {
				parts = append(parts, strconv.Itoa(v))
			}
			return strings.Join(parts, ",")
		default:
			return ""
	}
}

// Load reads back a query written by Save, reconstructing it by replaying
// the construction calls (SetBounds, AddReLU and the like) for each
// record it reads.
func Load(r io.Reader) (*Query, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("query: empty input, expected header line")
	}
	header := strings.Fields(scanner.Text())
	if len(header) != 5 {
		return nil, fmt.Errorf("query: malformed header %q", scanner.Text())
	}
	numVars, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, fmt.Errorf("query: malformed variable count: %w", err)
	}

	q := New()
	q.SetNumberOfVariables(numVars)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if err := loadLine(q, fields); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return q, nil
}

func loadLine(q *Query, f []string) error {
	switch f[0] {
		case "lb":
			v, x, err := parseVarFloat(f)
			if err != nil {
				return err
			}
			q.SetLowerBound(v, x)
		case "ub":
			v, x, err := parseVarFloat(f)
			if err != nil {
				return err
			}
			q.SetUpperBound(v, x)
		case "equation":
			return loadEquation(q, f)
		case "relu":
			fv, bv, err := parseFB(f)
			if err != nil {
				return err
			}
			q.AddReLU(bv, fv)
		case "leaky_relu":
			if len(f) != 4 {
				return fmt.Errorf("query: malformed leaky_relu line %q", strings.Join(f, ","))
			}
			fv, _ := strconv.Atoi(f[1])
			bv, _ := strconv.Atoi(f[2])
			slope, err := strconv.ParseFloat(f[3], 64)
			if err != nil {
				return err
			}
			q.AddLeakyReLU(bv, fv, slope)
		case "absoluteValue":
			fv, bv, err := parseFB(f)
			if err != nil {
				return err
			}
			q.AddAbsoluteValue(bv, fv)
		case "sign":
			fv, bv, err := parseFB(f)
			if err != nil {
				return err
			}
			q.AddSign(bv, fv)
		case "max":
			return loadMax(q, f)
		case "disjunction":
			return loadDisjunction(q, f)
		case "sigmoid":
			fv, bv, err := parseFB(f)
			if err != nil {
				return err
			}
			q.AddSigmoid(bv, fv)
		case "round":
			fv, bv, err := parseFB(f)
			if err != nil {
				return err
			}
			q.AddRound(bv, fv)
		case "exp":
			fv, bv, err := parseFB(f)
			if err != nil {
				return err
			}
			q.AddExp(bv, fv)
		case "reciprocal":
			fv, bv, err := parseFB(f)
			if err != nil {
				return err
			}
			q.AddReciprocal(bv, fv)
		case "bilinear":
			if len(f) != 4 {
				return fmt.Errorf("query: malformed bilinear line %q", strings.Join(f, ","))
			}
			fv, _ := strconv.Atoi(f[1])
			b1, _ := strconv.Atoi(f[2])
			b2, _ := strconv.Atoi(f[3])
			q.AddBilinear(b1, b2, fv)
		case "softmax":
			return loadSoftmax(q, f)
		case "input":
			v, idx, err := parseVarInt(f)
			if err != nil {
				return err
			}
			q.MarkInputVariable(v, idx)
		case "output":
			v, idx, err := parseVarInt(f)
			if err != nil {
				return err
			}
			q.MarkOutputVariable(v, idx)
		default:
			return fmt.Errorf("query: unrecognized line kind %q", f[0])
	}
	return nil
}

func parseVarFloat(f []string) (int, float64, error) {
	if len(f) != 3 {
		return 0, 0, fmt.Errorf("query: malformed bound line %q", strings.Join(f, ","))
	}
	v, err := strconv.Atoi(f[1])
	if err != nil {
		return 0, 0, err
	}
	x, err := strconv.ParseFloat(f[2], 64)
	if err != nil {
		return 0, 0, err
	}
	return v, x, nil
}

func parseVarInt(f []string) (int, int, error) {
	if len(f) != 3 {
		return 0, 0, fmt.Errorf("query: malformed mark line %q", strings.Join(f, ","))
	}
	v, err := strconv.Atoi(f[1])
	if err != nil {
		return 0, 0, err
	}
	idx, err := strconv.Atoi(f[2])
	if err != nil {
		return 0, 0, err
	}
	return v, idx, nil
}

func parseFB(f []string) (fv, bv int, err error) {
	if len(f) != 3 {
		return 0, 0, fmt.Errorf("query: malformed constraint line %q", strings.Join(f, ","))
	}
	fv, err = strconv.Atoi(f[1])
	if err != nil {
		return 0, 0, err
	}
	bv, err = strconv.Atoi(f[2])
	return fv, bv, err
}

func loadEquation(q *Query, f []string) error {
	if len(f) < 3 {
		return fmt.Errorf("query: malformed equation line %q", strings.Join(f, ","))
	}
	op, err := parseOp(f[1])
	if err != nil {
		return err
	}
	scalar, err := strconv.ParseFloat(f[2], 64)
	if err != nil {
		return err
	}
	rest := f[3:]
	if len(rest)%2 != 0 {
		return fmt.Errorf("query: malformed equation addends in %q", strings.Join(f, ","))
	}
	var addends []Addend
	for i := 0; i < len(rest); i += 2 {
		coeff, err := strconv.ParseFloat(rest[i], 64)
		if err != nil {
			return err
		}
		v, err := strconv.Atoi(rest[i+1])
		if err != nil {
			return err
		}
		addends = append(addends, Addend{Coeff: coeff, Var: v})
	}
	q.AddEquation(Equation{Op: op, Addends: addends, Scalar: scalar})
	return nil
}

func loadMax(q *Query, f []string) error {
	if len(f) < 2 {
		return fmt.Errorf("query: malformed max line %q", strings.Join(f, ","))
	}
	fv, err := strconv.Atoi(f[1])
	if err != nil {
		return err
	}
	var elements []int
	for _, s := range f[2:] {
		e, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		elements = append(elements, e)
	}
	q.AddMax(fv, elements)
	return nil
}

func loadSoftmax(q *Query, f []string) error {
	if len(f) < 2 {
		return fmt.Errorf("query: malformed softmax line %q", strings.Join(f, ","))
	}
	d, err := strconv.Atoi(f[1])
	if err != nil {
		return err
	}
	rest := f[2:]
	if len(rest) != 2*d {
		return fmt.Errorf("query: softmax dimension mismatch in %q", strings.Join(f, ","))
	}
	inputs := make([]int, d)
	outputs := make([]int, d)
	for i := 0; i < d; i++ {
		inputs[i], err = strconv.Atoi(rest[i])
		if err != nil {
			return err
		}
	}
	for i := 0; i < d; i++ {
		outputs[i], err = strconv.Atoi(rest[d+i])
		if err != nil {
			return err
		}
	}
	q.AddSoftmax(inputs, outputs)
	return nil
}

func loadDisjunction(q *Query, f []string) error {
	if len(f) < 2 {
		return fmt.Errorf("query: malformed disjunction line %q", strings.Join(f, ","))
	}
	idx := 1
	numVars, err := strconv.Atoi(f[idx])
	if err != nil {
		return err
	}
	idx++
	vars := make([]int, numVars)
	for i := 0; i < numVars; i++ {
		vars[i], err = strconv.Atoi(f[idx])
		if err != nil {
			return err
		}
		idx++
	}
	numDisjuncts, err := strconv.Atoi(f[idx])
	if err != nil {
		return err
	}
	idx++
	disjuncts := make([]constraint.CaseSplit, numDisjuncts)
	for d := 0; d < numDisjuncts; d++ {
		numTightenings, err := strconv.Atoi(f[idx])
		if err != nil {
			return err
		}
		idx++
		tightenings := make([]boundmgr.Tightening, numTightenings)
		for t := 0; t < numTightenings; t++ {
			v, err := strconv.Atoi(f[idx])
			if err != nil {
				return err
			}
			idx++
			kind, err := parseKind(f[idx])
			if err != nil {
				return err
			}
			idx++
			val, err := strconv.ParseFloat(f[idx], 64)
			if err != nil {
				return err
			}
			idx++
			tightenings[t] = boundmgr.Tightening{Variable: v, Value: val, Kind: kind}
		}
		disjuncts[d] = constraint.CaseSplit{Tightenings: tightenings}
	}
	q.AddDisjunction(disjuncts, vars)
	return nil
}
