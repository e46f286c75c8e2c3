package password

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID          = "argon2id"
	minMemoryKB   uint32 = 8 * 1024
	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16
)

var errMalformedPHC = errors.New("malformed argon2id hash")

// phcHash is a decoded $argon2id$ string.
type phcHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h phcHash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		h.memory, h.time, h.parallelism,
		base64.StdEncoding.EncodeToString(h.salt),
		base64.StdEncoding.EncodeToString(h.key),
	)
}

// parsePHC decodes $argon2id$v=19$m=..,t=..,p=..$salt$key.
func parsePHC(encoded string) (phcHash, error) {
	var h phcHash

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != algorithmID {
		return h, errMalformedPHC
	}

	version, ok := strings.CutPrefix(fields[2], "v=")
	if !ok {
		return h, fmt.Errorf("%w: missing version", errMalformedPHC)
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return h, fmt.Errorf("%w: unsupported version %q", errMalformedPHC, version)
	}

	if err := h.parseParams(fields[3]); err != nil {
		return h, err
	}

	var err error
	if h.salt, err = base64.StdEncoding.DecodeString(fields[4]); err != nil || uint32(len(h.salt)) < minSaltLength {
		return h, fmt.Errorf("%w: bad salt", errMalformedPHC)
	}
	if h.key, err = base64.StdEncoding.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return h, fmt.Errorf("%w: bad key", errMalformedPHC)
	}
	return h, nil
}

// parseParams reads exactly the m, t and p parameters, in any order.
func (h *phcHash) parseParams(s string) error {
	seen := map[string]bool{}
	for _, pair := range strings.Split(s, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return fmt.Errorf("%w: bad parameter %q", errMalformedPHC, pair)
		}
		seen[name] = true

		bits := 32
		if name == "p" {
			bits = 8
		}
		v, err := strconv.ParseUint(raw, 10, bits)
		if err != nil || v == 0 {
			return fmt.Errorf("%w: bad parameter %q", errMalformedPHC, pair)
		}

		switch name {
		case "m":
			if uint32(v) < minMemoryKB {
				return fmt.Errorf("%w: memory below minimum", errMalformedPHC)
			}
			h.memory = uint32(v)
		case "t":
			h.time = uint32(v)
		case "p":
			h.parallelism = uint8(v)
		default:
			return fmt.Errorf("%w: unknown parameter %q", errMalformedPHC, name)
		}
	}
	if len(seen) != 3 {
		return fmt.Errorf("%w: missing parameters", errMalformedPHC)
	}
	return nil
}
