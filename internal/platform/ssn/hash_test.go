package ssn

import "testing"

func TestHash_Deterministic(t *testing.T) {
	a := Hash("9001011234568", "hash-salt")
	b := Hash("9001011234568", "hash-salt")
	if a != b {
		t.Error("hash of identical input and salt must be identical")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
}

func TestHash_DistinguishesInputs(t *testing.T) {
	inputs := []string{
		"9001011234568",
		"8807242345672",
		"9001011234569",
	}
	seen := make(map[string]string)
	for _, in := range inputs {
		h := Hash(in, "hash-salt")
		if prev, ok := seen[h]; ok {
			t.Errorf("collision between %q and %q", prev, in)
		}
		seen[h] = in
	}
}

func TestHash_SaltChangesOutput(t *testing.T) {
	if Hash("9001011234568", "salt-a") == Hash("9001011234568", "salt-b") {
		t.Error("different salts must produce different hashes")
	}
}
