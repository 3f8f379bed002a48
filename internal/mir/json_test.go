package mir

import (
	"encoding/json"
	"testing"
)

func TestBasicBlockJSONRoundTrip(t *testing.T) {
	bb := &BasicBlock{
		Name: "entry",
		Instr: []Instr{
			Alloca{Dst: "%x.addr", Name: "x"},
			Call{
				Dst:    "p",
				Callee: "malloc",
				Args:   []Value{{Kind: ValConstInt, Int64: 16}},
				Kind:   CallPlain,
			},
			BinOp{Dst: "%t0", Op: OpAdd, LHS: Value{Kind: ValRef, Ref: "%a"}, RHS: Value{Kind: ValConstInt, Int64: 1}},
			Cmp{Dst: "%c0", Pred: CmpEQ, LHS: Value{Kind: ValRef, Ref: "p"}, RHS: Value{Kind: ValConstInt}},
			CondBr{Cond: Value{Kind: ValRef, Ref: "%c0"}, True: "then", False: "else"},
			Br{Target: "join"},
			Load{Dst: "%v", Addr: Value{Kind: ValRef, Ref: "%x.addr"}},
			Store{Addr: Value{Kind: ValRef, Ref: "%x.addr"}, Val: Value{Kind: ValConstInt, Int64: 7}},
			Ret{Val: &Value{Kind: ValRef, Ref: "p"}},
		},
	}

	data, err := json.Marshal(bb)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded BasicBlock
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Name != bb.Name {
		t.Errorf("Name = %q, want %q", decoded.Name, bb.Name)
	}

	if len(decoded.Instr) != len(bb.Instr) {
		t.Fatalf("Instr len = %d, want %d", len(decoded.Instr), len(bb.Instr))
	}

	call, ok := decoded.Instr[1].(Call)
	if !ok {
		t.Fatalf("Instr[1] = %T, want Call", decoded.Instr[1])
	}

	if call.Callee != "malloc" || len(call.Args) != 1 || call.Args[0].Int64 != 16 {
		t.Errorf("call round-tripped wrong: %+v", call)
	}

	ret, ok := decoded.Instr[len(decoded.Instr)-1].(Ret)
	if !ok {
		t.Fatalf("last instr = %T, want Ret", decoded.Instr[len(decoded.Instr)-1])
	}

	if ret.Val == nil || ret.Val.Ref != "p" {
		t.Errorf("ret value round-tripped wrong: %+v", ret.Val)
	}
}

func TestUnmarshalInstrUnknownType(t *testing.T) {
	var bb BasicBlock

	err := json.Unmarshal([]byte(`{"name":"x","instr":[{"type":"bogus","data":{}}]}`), &bb)
	if err == nil {
		t.Fatal("want error for unknown instruction type")
	}
}

func TestModuleJSONRoundTrip(t *testing.T) {
	mod := &Module{
		Name: "sample",
		Functions: []*Function{
			{
				Name:       "f",
				Parameters: []Value{{Kind: ValRef, Ref: "%arg0"}},
				Blocks: []*BasicBlock{
					{Name: "entry", Instr: []Instr{Ret{}}},
				},
			},
		},
	}

	data, err := json.Marshal(mod)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Module
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Name != "sample" || len(decoded.Functions) != 1 {
		t.Fatalf("decoded = %+v", decoded)
	}

	if decoded.Functions[0].Name != "f" || len(decoded.Functions[0].Parameters) != 1 {
		t.Fatalf("decoded function = %+v", decoded.Functions[0])
	}
}
