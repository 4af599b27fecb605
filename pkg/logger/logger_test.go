package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}

	ctx := context.Background()
	logger.Info(ctx, "test message", String("k", "v"))
}

func TestLoggerNamed(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}

	ctx := context.Background()
	namedLogger.Info(ctx, "test message")
}

func TestLoggerWriter(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWriter(&buf), ShouldBeNil)
		defer func() { _ = Init() }()
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Named("engine").Info(ctx, "run completed",
				Int("users", 5),
				Int64("requests", 42),
				Bool("ok", true),
				Float64("rps", 1.5),
				Duration("elapsed", 1500*time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then the output should carry the message, component and fields", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "run completed")
				So(out, ShouldContainSubstring, "component=engine")
				So(out, ShouldContainSubstring, "users=5")
				So(out, ShouldContainSubstring, "elapsed=1.5s")
				So(out, ShouldContainSubstring, "error=boom")
				So(out, ShouldContainSubstring, "source=")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "visible")

			Convey("Then info messages should be dropped", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "visible")
			})
		})

		Convey("When setting an unknown level", func() {
			err := SetLevelString("chatty")

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When initializing with a nil writer", func() {
			So(InitWriter(nil), ShouldNotBeNil)
		})
	})
}
