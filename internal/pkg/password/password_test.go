package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !Verify("correct horse battery staple", hash) {
		t.Error("correct password must verify")
	}
	if Verify("wrong password", hash) {
		t.Error("wrong password must not verify")
	}
}

func TestHashesAreSalted(t *testing.T) {
	a, err := Hash("same password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	b, err := Hash("same password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password must differ")
	}
}
