package engine

import (
	"crypto/cipher"
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/salsa20/salsa"
	"golang.org/x/crypto/scrypt"
)

// Role picks which of the two fixed nonce seeds a cipher uses for its
// send vs. receive stream, per spec.md §4.3. Two peers seeded with the
// same key and opposite roles stay in lock-step.
type Role int

const (
	RoleSender Role = iota
	RoleReceiver
)

// nonceSeedA and nonceSeedB are the two fixed 8-byte nonce-generator
// seeds spec.md §4.3 calls for. The literal bytes are carried over from
// original_source/src/net/proto/upgen/crypto/prototype.rs (NONCE_A =
// [0xAA;8], NONCE_B = [0xBB;8]) so two independently built peers
// interoperate.
var (
	nonceSeedA = [8]byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
	nonceSeedB = [8]byte{0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB}
)

const macSize = 16

// nonceGenerator streams a deterministic sequence of 12-byte AEAD
// nonces by keystreaming a zero buffer with Salsa20, exactly as
// prototype.rs's Cipher::get_nonce does. Salsa20's low-level API takes
// an 8-byte nonce plus an 8-byte little-endian block counter packed
// into a single 16-byte counter array; we hold the seed fixed and
// advance the block counter by one 64-byte block per call, which is
// enough entropy for a 12-byte keystream per message.
type nonceGenerator struct {
	key     [32]byte
	counter [16]byte // [0:8] = fixed seed, [8:16] = advancing block counter
	blocks  uint64
}

func newNonceGenerator(key [32]byte, seed [8]byte) *nonceGenerator {
	g := &nonceGenerator{key: key}
	copy(g.counter[:8], seed[:])
	return g
}

func (g *nonceGenerator) next() [12]byte {
	var zero [12]byte
	var out [12]byte

	binary.LittleEndian.PutUint64(g.counter[8:], g.blocks)
	salsa.XORKeyStream(out[:], zero[:], &g.counter, &g.key)
	g.blocks++

	return out
}

// Cipher is the per-connection AEAD pair described in spec.md §4.3: a
// length-preserving ciphertext plus a detached 16-byte MAC, with sender
// and receiver nonce streams seeded so they stay synchronized as long
// as EncryptField/DecryptField are called in the same order at both
// ends of the connection.
type Cipher struct {
	aead       cipher.AEAD
	sendNonces *nonceGenerator
	recvNonces *nonceGenerator
}

// NewCipher installs a ChaCha20-Poly1305 AEAD keyed by key (32 bytes),
// with the nonce streams assigned per role: a Sender sends on seed A
// and receives on seed B; a Receiver mirrors that.
func NewCipher(key [32]byte, role Role) (*Cipher, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}

	var sendSeed, recvSeed [8]byte
	switch role {
	case RoleSender:
		sendSeed, recvSeed = nonceSeedA, nonceSeedB
	case RoleReceiver:
		sendSeed, recvSeed = nonceSeedB, nonceSeedA
	}

	return &Cipher{
		aead:       aead,
		sendNonces: newNonceGenerator(key, sendSeed),
		recvNonces: newNonceGenerator(key, recvSeed),
	}, nil
}

// Encrypt AEAD-encrypts plaintext, consuming one nonce from the send
// stream. Ciphertext length equals plaintext length; the MAC is
// returned detached (16 bytes), not appended in-line, per spec.md §4.3.
func (c *Cipher) Encrypt(plaintext []byte) (ciphertext []byte, mac [macSize]byte, err error) {
	nonce := c.sendNonces.next()
	sealed := c.aead.Seal(nil, nonce[:], plaintext, nil)
	if len(sealed) != len(plaintext)+macSize {
		return nil, mac, ErrCipherFailure
	}
	ciphertext = sealed[:len(plaintext)]
	copy(mac[:], sealed[len(plaintext):])
	return ciphertext, mac, nil
}

// Decrypt AEAD-decrypts ciphertext+mac, consuming one nonce from the
// receive stream. Failure is fatal to the connection: the nonce stream
// has already advanced, so the two peers are now desynchronized and
// cannot be recovered message-by-message (spec.md §7).
func (c *Cipher) Decrypt(ciphertext []byte, mac [macSize]byte) ([]byte, error) {
	nonce := c.recvNonces.next()
	sealed := make([]byte, 0, len(ciphertext)+macSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, mac[:]...)
	plaintext, err := c.aead.Open(nil, nonce[:], sealed, nil)
	if err != nil {
		return nil, ErrCipherFailure
	}
	return plaintext, nil
}

// DeriveFixedSharedKey derives a 32-byte key from a passphrase using a
// memory-hard KDF (scrypt), per spec.md §4.3's InitFixedSharedKey. The
// salt is fixed: the engine's only secret input is the passphrase
// itself, matching original_source's kdf::derive_key_256(password,
// "stupid stupid stupid") placeholder, replaced here with a real
// memory-hard construction (see DESIGN.md).
func DeriveFixedSharedKey(password string) ([32]byte, error) {
	const n, r, p, keyLen = 1 << 15, 8, 1, 32
	salt := blake2b.Sum256([]byte("protoengine-fixed-shared-key-salt"))
	derived, err := scrypt.Key([]byte(password), salt[:], n, r, p, keyLen)
	if err != nil {
		var zero [32]byte
		return zero, err
	}
	var key [32]byte
	copy(key[:], derived)
	return key, nil
}
