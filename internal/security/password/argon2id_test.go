package password

import (
	"strings"
	"testing"
)

// parámetros chicos para no quemar CPU en tests
var testParams = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerifyRoundTrip(t *testing.T) {
	phc, err := Hash(testParams, "hunter2!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("phc = %q", phc)
	}
	if !Verify("hunter2!", phc) {
		t.Fatal("la contraseña correcta tiene que verificar")
	}
	if Verify("hunter3!", phc) {
		t.Fatal("la contraseña incorrecta no puede verificar")
	}
}

func TestHashSaltsDiffer(t *testing.T) {
	a, err := Hash(testParams, "misma")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := Hash(testParams, "misma")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatal("dos hashes iguales: el salt no está entrando")
	}
	if !Verify("misma", a) || !Verify("misma", b) {
		t.Fatal("ambos tienen que verificar")
	}
}

func TestHashRejectsEmpty(t *testing.T) {
	if _, err := Hash(testParams, ""); err == nil {
		t.Fatal("password vacío tiene que fallar")
	}
}

func TestVerifyMalformed(t *testing.T) {
	for _, phc := range []string{
		"",
		"no-es-phc",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=19$basura$c2FsdA$ZGs",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$ZGs",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$!!!",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA",
	} {
		if Verify("lo-que-sea", phc) {
			t.Fatalf("Verify(%q) = true, un PHC roto nunca verifica", phc)
		}
	}
}
