package password

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

// ASP.NET Identity stores PBKDF2 hashes as base64 of a marker byte followed
// by the parameters, the salt and the derived key.
//
//	v2: 0x00 | salt(16) | key(32)                    HMAC-SHA1, 1000 iterations
//	v3: 0x01 | prf(u32) | iter(u32) | saltLen(u32) | salt | key   (big endian)
const (
	identityV2Marker     = 0x00
	identityV3Marker     = 0x01
	identityV2Iterations = 1000
	identityV2SaltLen    = 16
	identityV2KeyLen     = 32
	identityV3HeaderLen  = 13
	identityMinSaltLen   = 16
	identityMinKeyLen    = 16
)

var errMalformedIdentity = errors.New("malformed identity hash")

type identityHash struct {
	prf        func() hash.Hash
	iterations int
	salt       []byte
	key        []byte
}

func parseIdentityHash(encoded string) (identityHash, error) {
	var h identityHash

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) == 0 {
		return h, errMalformedIdentity
	}

	switch raw[0] {
	case identityV2Marker:
		if len(raw) != 1+identityV2SaltLen+identityV2KeyLen {
			return h, errMalformedIdentity
		}
		h.prf = sha1.New
		h.iterations = identityV2Iterations
		h.salt = raw[1 : 1+identityV2SaltLen]
		h.key = raw[1+identityV2SaltLen:]
		return h, nil

	case identityV3Marker:
		if len(raw) < identityV3HeaderLen+identityMinSaltLen+identityMinKeyLen {
			return h, errMalformedIdentity
		}
		switch binary.BigEndian.Uint32(raw[1:5]) {
		case 0:
			h.prf = sha1.New
		case 1:
			h.prf = sha256.New
		case 2:
			h.prf = sha512.New
		default:
			return h, errMalformedIdentity
		}
		iterations := binary.BigEndian.Uint32(raw[5:9])
		saltLen := int(binary.BigEndian.Uint32(raw[9:13]))
		if iterations == 0 || iterations > 1<<24 || saltLen < identityMinSaltLen ||
			len(raw)-identityV3HeaderLen-saltLen < identityMinKeyLen {
			return h, errMalformedIdentity
		}
		h.iterations = int(iterations)
		h.salt = raw[identityV3HeaderLen : identityV3HeaderLen+saltLen]
		h.key = raw[identityV3HeaderLen+saltLen:]
		return h, nil
	}
	return h, errMalformedIdentity
}

func verifyIdentityHash(password, encoded string) (bool, error) {
	h, err := parseIdentityHash(encoded)
	if err != nil {
		return false, err
	}
	computed := pbkdf2.Key([]byte(password), h.salt, h.iterations, len(h.key), h.prf)
	return subtle.ConstantTimeCompare(computed, h.key) == 1, nil
}
