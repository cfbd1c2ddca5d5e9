package logging

import "testing"

func TestNew(t *testing.T) {
	t.Parallel()

	for _, dev := range []bool{true, false} {
		logger, err := New(dev)
		if err != nil {
			t.Fatalf("New(%v) error = %v", dev, err)
		}
		if logger == nil {
			t.Fatalf("New(%v) returned nil logger", dev)
		}
		logger.Info("logger ready")
		_ = logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
	}
}

func TestConfigTagsService(t *testing.T) {
	t.Parallel()

	for _, dev := range []bool{true, false} {
		cfg := config(dev)
		if got := cfg.InitialFields["service"]; got != Service {
			t.Fatalf("config(%v) service = %v, want %q", dev, got, Service)
		}
		if cfg.EncoderConfig.TimeKey != "ts" {
			t.Fatalf("config(%v) time key = %q", dev, cfg.EncoderConfig.TimeKey)
		}
		if cfg.Development != dev {
			t.Fatalf("config(%v) development = %v", dev, cfg.Development)
		}
	}
	if config(false).Sampling == nil {
		t.Fatal("production config should sample")
	}
}
