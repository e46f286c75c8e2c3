// Command credctl is the operator tool for goCred deployments.
//
// Usage:
//
//	credctl migrate
//	credctl enroll <email> <password>
//	credctl status <user-id>
//	credctl unlock <user-id>
//	credctl seal <plaintext>
//	credctl reveal <ciphertext>
//	credctl keygen
//
// Settings come from the environment, optionally loaded from a .env file.
// Without CREDCTL_DATABASE_URL records live in memory for the duration of
// the command; without CREDCTL_REDIS_ADDR an embedded miniredis is used.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/codec"
	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/policy"
	"github.com/MrEthical07/goCred/storage/memstore"
	"github.com/MrEthical07/goCred/storage/postgres"
)

var errUsage = errors.New("usage")

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	flag.Usage = usage
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		if msg := goCred.UserMessage(err); goCred.KindOf(err) != goCred.KindInternalFailure {
			fmt.Fprintln(os.Stderr, msg)
		} else {
			logger.Error("command failed", zap.Error(err))
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: credctl [-env-file path] <migrate|enroll|status|unlock|seal|reveal|keygen> [args]")
}

func run(ctx context.Context, cfg *cliConfig, logger *zap.Logger, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "keygen":
		return keygen()
	case "seal", "reveal":
		if len(rest) != 1 {
			return errUsage
		}
		return codecCommand(cfg, cmd, rest[0])
	case "migrate":
		return migrate(ctx, cfg, logger)
	case "enroll":
		if len(rest) != 2 {
			return errUsage
		}
		return withEngine(ctx, cfg, logger, func(engine *goCred.Engine) error {
			rec, err := engine.Enroll(ctx, goCred.EnrollRequest{Email: rest[0], Password: rest[1]})
			if err != nil {
				return err
			}
			fmt.Println(rec.UserID)
			return nil
		})
	case "status":
		if len(rest) != 1 {
			return errUsage
		}
		return withEngine(ctx, cfg, logger, func(engine *goCred.Engine) error {
			status, err := engine.PasswordStatus(ctx, rest[0])
			if err != nil {
				return err
			}
			printStatus(status)
			return nil
		})
	case "unlock":
		if len(rest) != 1 {
			return errUsage
		}
		return withEngine(ctx, cfg, logger, func(engine *goCred.Engine) error {
			return engine.UnlockAccount(ctx, rest[0])
		})
	default:
		return errUsage
	}
}

func keygen() error {
	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		return err
	}
	fmt.Println(base64.StdEncoding.EncodeToString(key[:]))
	return nil
}

func codecCommand(cfg *cliConfig, cmd, value string) error {
	if len(cfg.CodecKey) == 0 {
		return errors.New("CREDCTL_CODEC_KEY is not set")
	}
	c, err := codec.New(cfg.CodecKey)
	if err != nil {
		return err
	}

	if cmd == "seal" {
		sealed, err := c.Encrypt(value)
		if err != nil {
			return err
		}
		fmt.Println(sealed)
		return nil
	}
	plain, err := c.Decrypt(value)
	if err != nil {
		return err
	}
	fmt.Println(plain)
	return nil
}

func migrate(ctx context.Context, cfg *cliConfig, logger *zap.Logger) error {
	if cfg.DatabaseURL == "" {
		return errors.New("CREDCTL_DATABASE_URL is not set")
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.New(pool).Migrate(ctx); err != nil {
		return err
	}
	logger.Info("schema applied")
	return nil
}

// withEngine builds an engine over the configured backends, runs fn and
// releases everything.
func withEngine(ctx context.Context, cfg *cliConfig, logger *zap.Logger, fn func(*goCred.Engine) error) error {
	var storage credential.Storage
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		storage = postgres.New(pool)
	} else {
		logger.Warn("CREDCTL_DATABASE_URL not set, using in-memory storage")
		storage = memstore.New()
	}

	client, cleanup, err := redisClient(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := goCred.New().
		WithConfig(cfg.engineConfig()).
		WithStorage(storage).
		WithRedis(client).
		WithAuditSink(goCred.NewZapSink(logger)).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	return fn(engine)
}

func redisClient(cfg *cliConfig, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{cfg.RedisAddr},
		})
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	logger.Debug("using embedded miniredis", zap.String("addr", mr.Addr()))
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func printStatus(s *goCred.PasswordStatus) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	lastChanged := "never"
	if s.LastChanged != nil {
		lastChanged = s.LastChanged.Format(time.RFC3339)
	}
	fmt.Fprintf(w, "last changed\t%s\n", lastChanged)
	fmt.Fprintf(w, "expired\t%t\n", s.Expired)
	fmt.Fprintf(w, "expires in\t%s\n", formatWindow(s.ExpiresIn))
	fmt.Fprintf(w, "warn\t%t\n", s.Warn)
	fmt.Fprintf(w, "can change\t%t\n", s.CanChange)
	if !s.CanChange {
		fmt.Fprintf(w, "can change in\t%s\n", s.CanChangeIn.Round(time.Second))
	}
	fmt.Fprintf(w, "must change\t%t\n", s.MustChangePassword)
	fmt.Fprintf(w, "locked\t%t\n", s.Locked)
	if s.Locked {
		fmt.Fprintf(w, "locked for\t%s\n", s.LockedFor.Round(time.Second))
	}
}

func formatWindow(d time.Duration) string {
	if d == policy.Forever {
		return "never"
	}
	return d.Round(time.Second).String()
}
