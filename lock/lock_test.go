package lock

import "testing"

func TestAcquireThenSecondFails(t *testing.T) {
	cfgPath := t.TempDir() + "/spyrun.toml"

	l1, err := Acquire(cfgPath)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer l1.Release()

	if _, err := Acquire(cfgPath); err == nil {
		t.Fatalf("expected second Acquire for the same config to fail")
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	cfgPath := t.TempDir() + "/spyrun.toml"

	l1, err := Acquire(cfgPath)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := l1.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	l2, err := Acquire(cfgPath)
	if err != nil {
		t.Fatalf("second Acquire after release: %v", err)
	}
	defer l2.Release()
}

func TestDistinctConfigsDoNotCollide(t *testing.T) {
	a := t.TempDir() + "/a.toml"
	b := t.TempDir() + "/b.toml"

	la, err := Acquire(a)
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer la.Release()

	lb, err := Acquire(b)
	if err != nil {
		t.Fatalf("Acquire b should succeed independently of a: %v", err)
	}
	defer lb.Release()
}
