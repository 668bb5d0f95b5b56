package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	coreconfig "github.com/m3rciful/assocbot/core/config"
	coretelegram "github.com/m3rciful/assocbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct{}

func (fakeApp) Bot() *tele.Bot { return nil }

func (fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func TestRunLoadsEnvFileAndHooks(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("ASSOCBOT_TEST_CONFIG=from-env\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("ASSOCBOT_TEST_CONFIG") })

	var gotPath string
	started, stopped := false, false
	err := Run(Options{
		ConfigEnvVar: "ASSOCBOT_TEST_CONFIG",
		EnvFiles:     []string{envFile, filepath.Join(dir, "missing.env")},
		LoadConfig: func(path string) (ConfigCarrier, error) {
			gotPath = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return fakeApp{}, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, _ *tele.Bot, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			started = true
			stopped = opts.OnStop(ctx, coretelegram.Runtime{}) == nil
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotPath != "from-env" {
		t.Fatalf("config path = %q", gotPath)
	}
	if !started || !stopped {
		t.Fatalf("hooks not called: start=%v stop=%v", started, stopped)
	}
}

func TestRunBootstrapError(t *testing.T) {
	boom := errors.New("boom")
	shut := false
	err := Run(Options{
		DefaultConfigPath: "config.yaml",
		EnvFiles:          []string{},
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap:      func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, boom },
		ShutdownLogger: func() error { shut = true; return nil },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
	if !shut {
		t.Fatalf("logger must be shut down after a failed bootstrap")
	}
}
