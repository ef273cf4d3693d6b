package schemax

import (
	"context"
	"errors"
	"testing"

	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
)

type memStore struct {
	names  []string
	failOn string
}

func (m *memStore) AddCanonicalName(_ context.Context, name string, _ record.Pass) error {
	if name == m.failOn {
		return errors.New("boom")
	}
	m.names = append(m.names, name)
	return nil
}

func (m *memStore) CanonicalNames(context.Context) ([]string, error) {
	return m.names, nil
}

func TestRegister_AppendOnlyNoOp(t *testing.T) {
	r, _ := NewRegistry(context.Background(), nil)

	added, err := r.Register(context.Background(), "wear_layer", record.PassPattern)
	if err != nil || !added {
		t.Fatalf("first register: added=%v err=%v", added, err)
	}
	added, err = r.Register(context.Background(), "wear_layer", record.PassStructured)
	if err != nil || added {
		t.Fatalf("re-register should be a no-op: added=%v err=%v", added, err)
	}
	if got := r.Names(); len(got) != 1 || got[0] != "wear_layer" {
		t.Fatalf("names = %v", got)
	}
}

func TestRegister_ConflictOnDivergedSpelling(t *testing.T) {
	r, _ := NewRegistry(context.Background(), nil)
	if _, err := r.Register(context.Background(), "boxweight", record.PassHeuristic); err != nil {
		t.Fatal(err)
	}

	// Same concept arrives later under the corrected canonical spelling:
	// the registry has diverged and must escalate, not silently merge.
	_, err := r.Register(context.Background(), "box_weight", record.PassStructured)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	// The diverged registry is left untouched.
	if got := r.Names(); len(got) != 1 || got[0] != "boxweight" {
		t.Fatalf("names = %v", got)
	}
}

func TestNewRegistry_SeedsFromStore(t *testing.T) {
	st := &memStore{names: []string{"origin", "pei_rating"}}
	r, err := NewRegistry(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 2 {
		t.Fatalf("len = %d", r.Len())
	}
	// Seeded names behave like registered ones.
	if added, _ := r.Register(context.Background(), "origin", record.PassPattern); added {
		t.Fatal("seeded name re-registered")
	}
}

func TestExpand_RoutesOpenFieldsOnly(t *testing.T) {
	r, _ := NewRegistry(context.Background(), nil)
	e := NewExpander(r)

	fields := []record.CanonicalField{
		{Name: "title", Value: "X", Pass: record.PassStructured},       // fixed
		{Name: "material", Value: "marble", Pass: record.PassPattern},  // fixed
		{Name: "color", Value: "Grey", Pass: record.PassHeuristic},     // open
		{Name: "pei_rating", Value: "4", Pass: record.PassStructured},  // open
	}
	open, conflicts, err := e.Expand(context.Background(), fields)
	if err != nil {
		t.Fatal(err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("conflicts = %v", conflicts)
	}
	if len(open) != 2 {
		t.Fatalf("open = %v", open)
	}
	if open["color"].Value != "Grey" || open["pei_rating"].Value != "4" {
		t.Fatalf("open = %v", open)
	}
}

func TestExpand_ConflictDropsFieldAndReports(t *testing.T) {
	r, _ := NewRegistry(context.Background(), nil)
	if _, err := r.Register(context.Background(), "glazetype", record.PassHeuristic); err != nil {
		t.Fatal(err)
	}
	e := NewExpander(r)

	open, conflicts, err := e.Expand(context.Background(), []record.CanonicalField{
		{Name: "glaze_type", Value: "matte", Pass: record.PassPattern},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("conflicts = %v", conflicts)
	}
	if _, ok := open["glaze_type"]; ok {
		t.Fatal("conflicting field must not enter the open map")
	}
}

func TestExpand_StoreFailureIsAnError(t *testing.T) {
	st := &memStore{failOn: "color"}
	r, err := NewRegistry(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = NewExpander(r).Expand(context.Background(), []record.CanonicalField{
		{Name: "color", Value: "Grey", Pass: record.PassHeuristic},
	})
	if err == nil {
		t.Fatal("expected persistence error to surface")
	}
}
