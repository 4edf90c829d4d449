package crypto

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// FirmwareSalt is the key-derivation salt baked into Protocol B firmware.
const FirmwareSalt = "JiangPan"

// DeriveKeyIV derives the per-message AES-128 key and IV for a nonce.
// The uppercase hex MD5 digest of salt || nonce is 32 ASCII characters; the
// first half is used as the key bytes and the second half as the IV bytes.
func DeriveKeyIV(salt []byte, nonce string) (key, iv []byte) {
	h := md5.New()
	h.Write(salt)
	h.Write([]byte(nonce))
	digest := []byte(strings.ToUpper(hex.EncodeToString(h.Sum(nil))))
	half := len(digest) / 2
	return digest[:half], digest[half:]
}
