package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lumen-data/particle.report/internal/api"
	"github.com/lumen-data/particle.report/internal/config"
	"github.com/lumen-data/particle.report/internal/db"
	"github.com/lumen-data/particle.report/internal/ingest"
	"github.com/lumen-data/particle.report/internal/serialmux"
	"github.com/lumen-data/particle.report/internal/version"
)

var (
	devMode      = flag.Bool("dev", false, "Run in dev mode (mock bench link, no hardware needed)")
	listen       = flag.String("listen", ":8080", "Listen address")
	dbFile       = flag.String("db", "particle_data.db", "Path to the SQLite database file")
	benchPort    = flag.String("bench", "/dev/ttyUSB0", "Serial port for the bench link (ignored in dev mode)")
	disableBench = flag.Bool("disable-bench", false, "Run without a bench instrument (no serial port needed)")
	watchDir     = flag.String("watch", "", "Analyzer export directory to watch for .zmes archives (disabled when empty)")
	sizeUnits    = flag.String("units", "", "Display size units: nm or um (default from tuning config)")
	tempUnits    = flag.String("temp-units", "", "Display temperature units: c or k (default from tuning config)")
	configFile   = flag.String("config", "", "Path to a JSON tuning config file (optional)")
)

// devFixture is streamed by the mock bench link in dev mode when no
// fixtures.txt is present.
const devFixture = "RESULT,dev sample,142.7,0.081,388.2,25.0"

func main() {
	flag.Parse()

	// `particle-report [flags] migrate <action>` manages the schema and
	// exits without starting the service.
	if args := flag.Args(); len(args) > 0 && args[0] == "migrate" {
		db.RunMigrateCommand(args[1:], *dbFile)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !*devMode && !*disableBench && *benchPort == "" {
		log.Fatal("Serial port is required (or pass -disable-bench)")
	}

	log.Printf("particle-report %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	tuning := &config.TuningConfig{}
	if *configFile != "" {
		loaded, err := config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		tuning = loaded
		log.Printf("loaded tuning config from %s", *configFile)
	}

	// Flags win over the tuning file for display units.
	displaySize := tuning.GetDefaultSizeUnits()
	if *sizeUnits != "" {
		displaySize = *sizeUnits
	}
	displayTemp := tuning.GetDefaultTemperatureUnits()
	if *tempUnits != "" {
		displayTemp = *tempUnits
	}

	var benchSerial serialmux.BenchLink
	switch {
	case *disableBench:
		benchSerial = serialmux.NewDisabledMux()
		log.Print("bench link disabled")
	case *devMode:
		line := devFixture
		if data, err := os.ReadFile("fixtures.txt"); err == nil {
			if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) > 0 && lines[0] != "" {
				line = lines[0]
			}
		}
		benchSerial = serialmux.NewReplayMux([]byte(line + "\n"))
	default:
		var err error
		benchSerial, err = serialmux.OpenPort(*benchPort, serialmux.PortOptions{
			BaudRate: tuning.GetBenchBaud(),
		})
		if err != nil {
			log.Fatalf("failed to open bench port %s: %v", *benchPort, err)
		}
	}
	defer benchSerial.Close()

	if err := benchSerial.Initialize(); err != nil {
		log.Fatalf("failed to initialize bench link: %v", err)
	}
	log.Printf("initialized bench link")

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	// Refuse to serve against a schema this binary does not understand.
	if err := database.CheckMigrations(db.MigrationsFS()); err != nil {
		log.Fatalf("schema check failed: %v", err)
	}

	// Create a wait group for the HTTP server, bench monitor, event
	// handler, and ingest watcher routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the bench serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := benchSerial.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor bench port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to the bench link messages and pass them to the event
	// handler, which records completed results to the database
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := benchSerial.Subscribe()
		defer benchSerial.Unsubscribe(id)
		for {
			select {
			case payload, ok := <-c:
				if !ok {
					log.Printf("subscribe routine terminated (channel closed)")
					return
				}
				if err := serialmux.HandleEvent(database, payload); err != nil {
					log.Printf("error handling event: %v", err)
				}
			case <-ctx.Done():
				log.Printf("subscribe routine terminated")
				return
			}
		}
	}()

	// export-directory watcher converts archives the analyzer drops
	if *watchDir != "" {
		watcher, err := ingest.NewWatcher(database, ingest.Options{
			Dir:             *watchDir,
			DebounceWindow:  tuning.GetDebounceWindow(),
			ScanInterval:    tuning.GetScanInterval(),
			MaxArchiveBytes: tuning.GetMaxArchiveBytes(),
		})
		if err != nil {
			log.Fatalf("failed to create export watcher: %v", err)
		}
		if err := watcher.Start(ctx); err != nil {
			log.Fatalf("failed to start export watcher: %v", err)
		}
		defer watcher.Stop()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		// create a new API server instance using the bench link and
		// database and mount the API handlers
		mux := api.NewServer(benchSerial, database, api.ServerOptions{
			SizeUnits:        displaySize,
			TemperatureUnits: displayTemp,
			MaxArchiveBytes:  tuning.GetMaxArchiveBytes(),
			LiveResultLimit:  tuning.GetLiveResultLimit(),
			RollupDays:       tuning.GetRollupDays(),
		}).ServeMux()

		benchSerial.AttachAdminRoutes(mux)
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Fatalf("failed to attach db admin routes: %v", err)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a shorter timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
