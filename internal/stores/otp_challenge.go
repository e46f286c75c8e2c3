package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpChallengeRecordVersion1 = 1
	maxTxRetries               = 4
)

var (
	ErrOTPChallengeNotFound = errors.New("otp challenge not found")
	ErrOTPChallengeBackend  = errors.New("otp challenge backend unavailable")
)

// OTPChallenge is the persisted form of a pending-login challenge. Times are
// Unix nanoseconds.
type OTPChallenge struct {
	UserID    string
	Subject   string
	Code      string
	IssuedAt  int64
	ExpiresAt int64
	Attempts  uint16
}

// RedisOTPChallengeStore keeps challenges in Redis keyed by pending-login ID.
type RedisOTPChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisOTPChallengeStore(redisClient redis.UniversalClient, prefix string) *RedisOTPChallengeStore {
	if prefix == "" {
		prefix = "cotp"
	}
	return &RedisOTPChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisOTPChallengeStore) key(pendingID string) string {
	return s.prefix + ":c:" + pendingID
}

func (s *RedisOTPChallengeStore) subjectKey(subject string) string {
	return s.prefix + ":s:" + subject
}

// Save stores record under pendingID and removes any other challenge
// previously saved for the same subject.
func (s *RedisOTPChallengeStore) Save(
	ctx context.Context,
	pendingID string,
	record *OTPChallenge,
	ttl time.Duration,
) error {
	encoded, err := encodeOTPChallenge(record)
	if err != nil {
		return err
	}
	subjectKey := s.subjectKey(record.Subject)

	for i := 0; i < maxTxRetries; i++ {
		err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
			previous, err := tx.Get(ctx, subjectKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if previous != "" && previous != pendingID {
					pipe.Del(ctx, s.key(previous))
				}
				pipe.Set(ctx, s.key(pendingID), encoded, ttl)
				pipe.Set(ctx, subjectKey, pendingID, ttl)
				return nil
			})
			return err
		}, subjectKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOTPChallengeBackend, err)
		}
		return nil
	}

	return fmt.Errorf("%w: save contention", ErrOTPChallengeBackend)
}

func (s *RedisOTPChallengeStore) Get(ctx context.Context, pendingID string) (*OTPChallenge, error) {
	data, err := s.redis.Get(ctx, s.key(pendingID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrOTPChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrOTPChallengeBackend, err)
	}
	return decodeOTPChallenge(data)
}

// Delete removes the challenge and reports whether it existed.
func (s *RedisOTPChallengeStore) Delete(ctx context.Context, pendingID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(pendingID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrOTPChallengeBackend, err)
	}
	return n > 0, nil
}

// RecordFailure counts a wrong code. Once the count reaches maxAttempts the
// challenge is deleted and exceeded is true.
func (s *RedisOTPChallengeStore) RecordFailure(
	ctx context.Context,
	pendingID string,
	maxAttempts int,
) (bool, error) {
	key := s.key(pendingID)

	for i := 0; i < maxTxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			record, err := decodeOTPChallenge(data)
			if err != nil {
				return err
			}

			record.Attempts++
			if maxAttempts > 0 && int(record.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			ttl, err := tx.PTTL(ctx, key).Result()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				return redis.Nil
			}
			updated, err := encodeOTPChallenge(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, ErrOTPChallengeNotFound
			}
			return false, fmt.Errorf("%w: %v", ErrOTPChallengeBackend, err)
		}
		return exceeded, nil
	}

	return false, ErrOTPChallengeNotFound
}

func encodeOTPChallenge(record *OTPChallenge) ([]byte, error) {
	if record == nil {
		return nil, errors.New("otp challenge is nil")
	}

	var buf bytes.Buffer
	buf.WriteByte(otpChallengeRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	for _, field := range []string{record.UserID, record.Subject, record.Code} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func decodeOTPChallenge(data []byte) (*OTPChallenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != otpChallengeRecordVersion1 {
		return nil, errors.New("invalid otp challenge version")
	}

	record := &OTPChallenge{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if record.UserID, err = readString(reader); err != nil {
		return nil, err
	}
	if record.Subject, err = readString(reader); err != nil {
		return nil, err
	}
	if record.Code, err = readString(reader); err != nil {
		return nil, err
	}

	return record, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("otp challenge field length exceeded")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
