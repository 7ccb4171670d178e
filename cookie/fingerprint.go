package cookie

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Identity is everything that distinguishes one session from another.
type Identity struct {
	UID        string
	Endpoint   string
	Login      string
	Password   string
	Account    string
	ClientKind string
}

// Fingerprint hashes id with BLAKE2b-256. Every field is length-prefixed so
// that moving bytes across field boundaries changes the result.
func Fingerprint(id Identity) string {
	h, _ := blake2b.New256(nil)
	var size [8]byte
	for _, field := range []string{id.UID, id.Endpoint, id.Login, id.Password, id.Account, id.ClientKind} {
		binary.BigEndian.PutUint64(size[:], uint64(len(field)))
		h.Write(size[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Short returns the log-safe prefix of a fingerprint.
func Short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
