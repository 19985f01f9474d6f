package module

import "testing"

func TestEngineFingerprintIsStable(t *testing.T) {
	a := EngineFingerprint()
	b := EngineFingerprint()
	if a != b {
		t.Fatalf("EngineFingerprint is not deterministic: %d != %d", a, b)
	}
	if a == 0 {
		t.Fatal("EngineFingerprint returned zero, which looks like an uninitialized hash")
	}
}
