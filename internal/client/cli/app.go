package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/bridge"
	"github.com/dmitrijs2005/claimkeeper/internal/client/config"
	"github.com/dmitrijs2005/claimkeeper/internal/client/inbox"
	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
	"github.com/dmitrijs2005/claimkeeper/internal/client/notify"
	"github.com/dmitrijs2005/claimkeeper/internal/client/repositories/files"
	"github.com/dmitrijs2005/claimkeeper/internal/client/repositories/snapshots"
	"github.com/dmitrijs2005/claimkeeper/internal/client/services"
	"github.com/dmitrijs2005/claimkeeper/internal/client/storage"
	"github.com/dmitrijs2005/claimkeeper/internal/filex"
	"github.com/dmitrijs2005/claimkeeper/internal/logging"
)

// StatusCheckInterval is how often the status watcher looks at the tiers.
const StatusCheckInterval = 3 * time.Second

type App struct {
	config  *config.Config
	session *services.ClaimSession
	bus     *notify.Bus
	hub     *bridge.Hub
	log     logging.Logger

	db    *sql.DB
	blobs files.Repository

	// newSink builds the export destination for "export [dir|s3]".
	newSink func(target string) (services.ExportSink, error)

	reader      *bufio.Reader
	out         io.Writer
	interactive bool

	mu   sync.Mutex
	last models.Status
}

// NewApp opens the stores named by c and builds the claim session. A store
// that cannot be opened does not stop the app; the session then runs with
// that tier disabled.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Discard()
	}

	if _, err := filex.EnsureDir(c.DataDir); err != nil {
		return nil, err
	}

	var meta services.MetadataStore
	db, err := storage.InitDatabase(ctx, c.MetadataDSN)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
	} else {
		meta = snapshots.NewStore(db)
	}

	var blobs files.Repository
	repo, err := storage.OpenBlobStore(storage.BlobOptions{
		Backend:   c.BlobBackend,
		Path:      c.BlobPath,
		CacheSize: c.BlobCacheSize,
	}, db)
	if err != nil {
		log.Error(ctx, "error configuring blob store", "error", err)
	} else {
		blobs = repo
	}

	bus := notify.NewBus(log)
	session := services.NewClaimSession(meta, blobs,
		services.WithLogger(log),
		services.WithNotifier(bus),
		services.WithAllowedTypes(c.AllowedTypes...),
		services.WithMaxFileSize(c.MaxFileSize),
		services.WithSaveInterval(c.SaveInterval),
		services.WithExportDelay(c.ExportDelay),
	)

	a := &App{
		config:      c,
		session:     session,
		bus:         bus,
		hub:         bridge.NewHub(log, c.BridgeTimeout),
		log:         log.With("module", "cli"),
		db:          db,
		blobs:       blobs,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: isTerminal(int(os.Stdin.Fd())),
	}
	a.newSink = a.defaultSink
	return a, nil
}

func (a *App) defaultSink(target string) (services.ExportSink, error) {
	switch target {
	case "", "dir":
		return services.NewDirSink(a.config.ExportDir), nil
	case "s3":
		if !a.config.S3Enabled() {
			return nil, errors.New("no S3 bucket configured")
		}
		return services.NewS3Sink(services.S3Config{
			Endpoint:  a.config.S3Endpoint,
			Region:    a.config.S3Region,
			Bucket:    a.config.S3Bucket,
			Prefix:    a.config.S3Prefix,
			AccessKey: a.config.S3AccessKey,
			SecretKey: a.config.S3SecretKey,
		}, http.DefaultClient, time.Now()), nil
	default:
		return nil, fmt.Errorf("unknown export target %q", target)
	}
}

// Run loads the claim, starts the background parts and runs the REPL until
// the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.initSignalHandler(cancel)

	unsubscribe := a.bus.Subscribe(a.printNotification)
	defer unsubscribe()

	if err := a.session.Load(ctx); err != nil {
		return err
	}
	a.session.Start(ctx)
	a.last = a.session.Status()

	unregister := a.hub.Register(bridge.NewLocalPeer(a.session))
	defer unregister()

	if a.config.BridgeAddr != "" {
		srv := bridge.NewServer(a.config.BridgeAddr, a.hub, a.log)
		go func() {
			if err := srv.Run(ctx); err != nil {
				a.log.Error(ctx, "bridge server stopped", "error", err)
			}
		}()
	}

	if a.config.InboxDir != "" {
		w, err := inbox.New(a.config.InboxDir, a.session, a.log)
		if err != nil {
			a.log.Error(ctx, "inbox disabled", "error", err)
		} else {
			go func() { _ = w.Run(ctx) }()
		}
	}

	go a.StartStatusWatcher(ctx, StatusCheckInterval)

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Root(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	// Last chance for answers typed since the previous save.
	if !a.session.Submitted() {
		saveCtx, cancelSave := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancelSave()
		_ = a.session.Save(saveCtx)
	}
	return nil
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Close releases the stores.
func (a *App) Close() {
	if a.blobs != nil {
		_ = a.blobs.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) printNotification(n notify.Notification) {
	prefix := ""
	switch n.Level {
	case notify.LevelWarning:
		prefix = "warning: "
	case notify.LevelError:
		prefix = "error: "
	}
	fmt.Fprintf(a.out, "* %s%s\n", prefix, n.Message)
}

// StartStatusWatcher reports storage tier changes until ctx is done.
func (a *App) StartStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkStatus()
		case <-ctx.Done():
			return
		}
	}
}

// checkStatus prints the tiers when they differ from the last check and
// reports whether they did.
func (a *App) checkStatus() bool {
	st := a.session.Status()

	a.mu.Lock()
	changed := st.Metadata != a.last.Metadata || st.Blobs != a.last.Blobs
	a.last = st
	a.mu.Unlock()

	if changed {
		fmt.Fprintf(a.out, "Storage: answers %s, files %s\n", st.Metadata, st.Blobs)
	}
	return changed
}
