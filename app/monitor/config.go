package monitor

import (
	"flag"
	"fmt"
	"time"

	"github.com/substrate-tools/auramon/pkg/utils"
)

// Config is the CLI/boundary surface. Flags win; AURAMON_* environment
// variables back the commonly scripted ones.
type Config struct {
	WS           string
	KeystorePath string

	EpochSize     uint64
	EpochOverride *uint64
	SlotsOverride *uint64

	PollInterval time.Duration
	Watch        bool

	DBPath  string
	NoStore bool

	TZ        string
	ColorMode string
}

// FromFlags parses the command line (without the program name) into a
// validated Config.
func FromFlags(args []string) (*Config, error) {
	fs := flag.NewFlagSet("auramon", flag.ContinueOnError)

	ws := fs.String("ws", utils.Env("AURAMON_WS", "ws://127.0.0.1:9944"), "node websocket RPC endpoint")
	keystore := fs.String("keystore-path", utils.Env("AURAMON_KEYSTORE", ""), "node keystore directory; the aura public key is auto-detected from it")
	epochSize := fs.Uint64("epoch-size", uint64(utils.EnvInt("AURAMON_EPOCH_SIZE", 1200)), "slots per epoch")
	epoch := fs.Int64("epoch", -1, "pin the scanned epoch instead of deriving it from the latest slot")
	slots := fs.Int64("slots", -1, "scan this many slots from the epoch start instead of epoch-size")
	watchSeconds := fs.Uint("watch-seconds", uint(utils.EnvInt("AURAMON_WATCH_SECONDS", 30)), "watch-mode poll ceiling in seconds")
	tz := fs.String("tz", utils.Env("AURAMON_TZ", "UTC"), "output timezone: UTC | local | +HH:MM | -HH:MM | Area/City")
	colorMode := fs.String("color", "auto", "colorize output: auto|always|never")
	dbPath := fs.String("db", utils.Env("AURAMON_DB", "aura_schedule.sqlite"), "sqlite database path")
	noStore := fs.Bool("no-store", false, "do not write to sqlite")
	watch := fs.Bool("watch", false, "keep polling instead of exiting after one pass")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		WS:           *ws,
		KeystorePath: *keystore,
		EpochSize:    *epochSize,
		PollInterval: time.Duration(*watchSeconds) * time.Second,
		Watch:        *watch,
		DBPath:       *dbPath,
		NoStore:      *noStore,
		TZ:           *tz,
		ColorMode:    *colorMode,
	}
	if *epoch >= 0 {
		e := uint64(*epoch)
		cfg.EpochOverride = &e
	}
	if *slots >= 0 {
		s := uint64(*slots)
		cfg.SlotsOverride = &s
	}

	if cfg.KeystorePath == "" {
		return nil, fmt.Errorf("--keystore-path is required")
	}
	if cfg.EpochSize == 0 {
		return nil, fmt.Errorf("--epoch-size must be positive")
	}
	if cfg.SlotsOverride != nil && *cfg.SlotsOverride == 0 {
		return nil, fmt.Errorf("--slots must be positive")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("--watch-seconds must be positive")
	}
	return cfg, nil
}
