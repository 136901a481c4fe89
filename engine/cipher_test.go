package engine

import (
	"bytes"
	"testing"
)

func TestCipherRoundTripAcrossMessages(t *testing.T) {
	key, err := DeriveFixedSharedKey("hunter2")
	if err != nil {
		t.Fatal(err)
	}

	sender, err := NewCipher(key, RoleSender)
	if err != nil {
		t.Fatal(err)
	}
	receiver, err := NewCipher(key, RoleReceiver)
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte("Attack at dawn!")

	var ciphertexts [][]byte
	for n := 1; n <= 5; n++ {
		ct, mac, err := sender.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("message %d: encrypt failed: %v", n, err)
		}
		if len(ct) != len(plaintext) {
			t.Fatalf("message %d: ciphertext length %d, want %d", n, len(ct), len(plaintext))
		}
		ciphertexts = append(ciphertexts, append([]byte(nil), ct...))

		got, err := receiver.Decrypt(ct, mac)
		if err != nil {
			t.Fatalf("message %d: decrypt failed: %v", n, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("message %d: got %q, want %q", n, got, plaintext)
		}
	}

	for i := 0; i < len(ciphertexts); i++ {
		for j := i + 1; j < len(ciphertexts); j++ {
			if bytes.Equal(ciphertexts[i], ciphertexts[j]) {
				t.Fatalf("ciphertexts for message %d and %d are identical despite equal plaintext", i+1, j+1)
			}
		}
	}
}

func TestCipherTamperedMACFailsDecrypt(t *testing.T) {
	key, err := DeriveFixedSharedKey("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	sender, err := NewCipher(key, RoleSender)
	if err != nil {
		t.Fatal(err)
	}
	receiver, err := NewCipher(key, RoleReceiver)
	if err != nil {
		t.Fatal(err)
	}

	ct, mac, err := sender.Encrypt([]byte("Attack at dawn!"))
	if err != nil {
		t.Fatal(err)
	}
	mac[0] ^= 0xFF

	if _, err := receiver.Decrypt(ct, mac); err != ErrCipherFailure {
		t.Fatalf("got %v, want ErrCipherFailure", err)
	}
}

func TestDeriveFixedSharedKeyIsDeterministic(t *testing.T) {
	a, err := DeriveFixedSharedKey("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	b, err := DeriveFixedSharedKey("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("expected the same passphrase to derive the same key")
	}

	c, err := DeriveFixedSharedKey("different")
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Fatal("expected different passphrases to derive different keys")
	}
}
