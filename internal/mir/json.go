package mir

import (
	"encoding/json"
	"fmt"
)

// instrEnvelope is the wire shape for the Instr tagged union: { "type": "...", "data": {...} }.
type instrEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func instrTypeName(in Instr) (string, error) {
	switch in.(type) {
	case BinOp:
		return "binop", nil
	case Ret:
		return "ret", nil
	case Call:
		return "call", nil
	case Alloca:
		return "alloca", nil
	case Load:
		return "load", nil
	case Store:
		return "store", nil
	case Cmp:
		return "cmp", nil
	case Br:
		return "br", nil
	case CondBr:
		return "condbr", nil
	default:
		return "", fmt.Errorf("mir: unknown instruction type %T", in)
	}
}

func marshalInstr(in Instr) (instrEnvelope, error) {
	typ, err := instrTypeName(in)
	if err != nil {
		return instrEnvelope{}, err
	}

	data, err := json.Marshal(in)
	if err != nil {
		return instrEnvelope{}, fmt.Errorf("mir: marshal %s: %w", typ, err)
	}

	return instrEnvelope{Type: typ, Data: data}, nil
}

func unmarshalInstr(env instrEnvelope) (Instr, error) {
	switch env.Type {
	case "binop":
		var v BinOp
		err := json.Unmarshal(env.Data, &v)

		return v, err
	case "ret":
		var v Ret
		err := json.Unmarshal(env.Data, &v)

		return v, err
	case "call":
		var v Call
		err := json.Unmarshal(env.Data, &v)

		return v, err
	case "alloca":
		var v Alloca
		err := json.Unmarshal(env.Data, &v)

		return v, err
	case "load":
		var v Load
		err := json.Unmarshal(env.Data, &v)

		return v, err
	case "store":
		var v Store
		err := json.Unmarshal(env.Data, &v)

		return v, err
	case "cmp":
		var v Cmp
		err := json.Unmarshal(env.Data, &v)

		return v, err
	case "br":
		var v Br
		err := json.Unmarshal(env.Data, &v)

		return v, err
	case "condbr":
		var v CondBr
		err := json.Unmarshal(env.Data, &v)

		return v, err
	default:
		return nil, fmt.Errorf("mir: unknown instruction type %q", env.Type)
	}
}

// basicBlockWire is the JSON-friendly shadow of BasicBlock.
type basicBlockWire struct {
	Name  string          `json:"name"`
	Instr []instrEnvelope `json:"instr"`
}

// MarshalJSON implements json.Marshaler for BasicBlock, encoding each
// instruction as a tagged-union envelope.
func (bb *BasicBlock) MarshalJSON() ([]byte, error) {
	wire := basicBlockWire{Name: bb.Name, Instr: make([]instrEnvelope, 0, len(bb.Instr))}

	for _, in := range bb.Instr {
		env, err := marshalInstr(in)
		if err != nil {
			return nil, err
		}

		wire.Instr = append(wire.Instr, env)
	}

	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler for BasicBlock.
func (bb *BasicBlock) UnmarshalJSON(data []byte) error {
	var wire basicBlockWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	bb.Name = wire.Name
	bb.Instr = make([]Instr, 0, len(wire.Instr))

	for _, env := range wire.Instr {
		in, err := unmarshalInstr(env)
		if err != nil {
			return err
		}

		bb.Instr = append(bb.Instr, in)
	}

	return nil
}
