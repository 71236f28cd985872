package runtime

import "testing"

func TestMemoryBincodeStoreRoundTrip(t *testing.T) {
	store := NewMemoryBincodeStore()
	var id [32]byte
	id[0] = 1

	if _, ok := store.GetBincode(id); ok {
		t.Fatal("expected missing contract before Put")
	}

	store.Put(id, []byte("wasm bytes"))
	got, ok := store.GetBincode(id)
	if !ok {
		t.Fatal("expected contract present after Put")
	}
	if string(got) != "wasm bytes" {
		t.Fatalf("bincode = %q, want %q", got, "wasm bytes")
	}
}

func TestEchoFactoryMissingContract(t *testing.T) {
	store := NewMemoryBincodeStore()
	factory := NewEchoFactory(store)

	var id [32]byte
	id[0] = 9
	if _, err := factory.New(id, nil); err != ErrMissingContract {
		t.Fatalf("expected ErrMissingContract, got %v", err)
	}
}

func TestEchoRuntimeExecAndApply(t *testing.T) {
	store := NewMemoryBincodeStore()
	var id [32]byte
	id[0] = 3
	store.Put(id, []byte("contract-code"))

	factory := NewEchoFactory(store)
	rt, err := factory.New(id, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	update, err := rt.Exec([]byte("call-payload"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(update) != 32 {
		t.Fatalf("update length = %d, want 32", len(update))
	}

	if err := rt.Apply(update); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if factory.ApplyCount(id) != 1 {
		t.Fatalf("apply count = %d, want 1", factory.ApplyCount(id))
	}
}
