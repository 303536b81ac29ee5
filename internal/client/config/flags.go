package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-m", "-b", "-e", "-a", "-w", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.MetadataDSN, "m", cfg.MetadataDSN, "metadata database DSN")
	fs.StringVar(&cfg.BlobBackend, "b", cfg.BlobBackend, "blob backend (bolt|sqlite)")
	fs.StringVar(&cfg.ExportDir, "e", cfg.ExportDir, "export directory")
	fs.StringVar(&cfg.BridgeAddr, "a", cfg.BridgeAddr, "bridge listen address, empty disables it")
	fs.StringVar(&cfg.InboxDir, "w", cfg.InboxDir, "inbox directory to watch")
	saveInterval := fs.Int("i", int(cfg.SaveInterval.Seconds()), "save interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SaveInterval = time.Duration(*saveInterval) * time.Second
}
