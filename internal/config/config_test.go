package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given a fresh configuration", t, func() {
		cfg := New()

		Convey("Then service defaults are populated", func() {
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.SessionTTLSeconds, ShouldEqual, 1800)
			So(cfg.DefaultTopN, ShouldEqual, 20)
			So(cfg.MaxLeaderboardLimit, ShouldEqual, 100)
			So(cfg.StoreOpTimeoutMS, ShouldEqual, 250)
			So(cfg.RetryAttempts, ShouldEqual, 3)
			So(cfg.DispatchShards, ShouldEqual, 4)
			So(cfg.DedupeSize, ShouldEqual, 50_000)
			So(cfg.DefaultPoints, ShouldEqual, 100)
			So(cfg.WrongAnswerPenalty, ShouldEqual, 10)
		})
	})
}

func TestLoadDefaults(t *testing.T) {
	Convey("When nothing overrides the defaults", t, func() {
		cfg, err := Load(context.Background())

		Convey("Then Load returns the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.SessionTTLSeconds, ShouldEqual, 1800)
		})
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QUIZBOARD_ADDR", ":8088")
	t.Setenv("QUIZBOARD_SESSION_TTL_SECONDS", "600")
	t.Setenv("QUIZBOARD_LOG_LEVEL", "debug")

	Convey("When environment variables are set", t, func() {
		cfg, err := Load(context.Background())

		Convey("Then they override the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":8088")
			So(cfg.SessionTTLSeconds, ShouldEqual, 600)
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.DefaultTopN, ShouldEqual, 20)
		})
	})
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("addr: \":7070\"\ndefault_top_n: 5\nquestion_points:\n  geo-1: 80\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("QUIZBOARD_CONFIG", path)

	Convey("When a YAML file is provided", t, func() {
		cfg, err := Load(context.Background())

		Convey("Then file values override the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.DefaultTopN, ShouldEqual, 5)
			So(cfg.QuestionPoints["geo-1"], ShouldEqual, 80)
		})
	})
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("addr: \":7070\"\ndefault_top_n: 5\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("QUIZBOARD_CONFIG", path)
	t.Setenv("QUIZBOARD_ADDR", ":6060")

	Convey("When both file and env set the same key", t, func() {
		cfg, err := Load(context.Background())

		Convey("Then env wins and other file keys still apply", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6060")
			So(cfg.DefaultTopN, ShouldEqual, 5)
		})
	})
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("QUIZBOARD_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	Convey("When the config file path is bogus", t, func() {
		_, err := Load(context.Background())
		So(err, ShouldNotBeNil)
	})
}

func TestValidateMissingAddr(t *testing.T) {
	t.Setenv("QUIZBOARD_ADDR", "")

	Convey("A blank listen address is rejected", t, func() {
		_, err := Load(context.Background())
		So(errors.Is(err, ErrMissingAddr), ShouldBeTrue)
	})
}

func TestValidateInvalidTTL(t *testing.T) {
	t.Setenv("QUIZBOARD_SESSION_TTL_SECONDS", "0")

	Convey("A non-positive session TTL is rejected", t, func() {
		_, err := Load(context.Background())
		So(errors.Is(err, ErrInvalidTTL), ShouldBeTrue)
	})
}

func TestValidateInvalidShards(t *testing.T) {
	t.Setenv("QUIZBOARD_DISPATCH_SHARDS", "0")

	Convey("A non-positive shard count is rejected", t, func() {
		_, err := Load(context.Background())
		So(errors.Is(err, ErrInvalidShards), ShouldBeTrue)
	})
}

func TestValidateInvalidLatencyRange(t *testing.T) {
	t.Setenv("QUIZBOARD_JUDGE_LATENCY_MIN_MS", "50")
	t.Setenv("QUIZBOARD_JUDGE_LATENCY_MAX_MS", "10")

	Convey("An inverted judge latency range is rejected", t, func() {
		_, err := Load(context.Background())
		So(errors.Is(err, ErrInvalidLatencyRange), ShouldBeTrue)
	})
}
