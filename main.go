package main

import (
	"crypto/sha256"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/panjf2000/ants/v2"

	"sgai-proxy/work/assetlist"
	"sgai-proxy/work/config"
	"sgai-proxy/work/httpapi"
	"sgai-proxy/work/liveedge"
	"sgai-proxy/work/logger"
	"sgai-proxy/work/originclient"
	"sgai-proxy/work/session"
)

var Version = "v0.1.0"

// main wires the ambient stack (config, logging, metrics, worker pool) and
// the SGAI domain collaborators (origin client, live-edge registry, ad
// break scheduler, asset-list resolver, session store) and starts the
// HTTP server. Positional CLI arguments mirror original_source/'s clap
// CliArguments: listen-addr, listen-port, master-playlist-url,
// ad-server-endpoint.
func main() {
	fs := flag.NewFlagSet("sgai-proxy", flag.ContinueOnError)
	insertionMode := fs.String("ad-insertion-mode", "static", "static|dynamic")
	interstitialsBase := fs.String("interstitials-address", "", "base URL the proxy advertises for X-ASSET-LIST")
	defaultAdDuration := fs.Duration("default-ad-duration", 10*time.Second, "default ad break duration")
	defaultRepeatingCycle := fs.Duration("default-repeating-cycle", 30*time.Second, "spacing between static-schedule breaks")
	defaultAdNumber := fs.Int("default-ad-number", 9, "number of static-schedule breaks to materialize")
	testAssetURL := fs.String("test-asset-url", "", "override every resolved creative URL, for staging")
	cliFlags := config.ParseFlags(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	positional := fs.Args()
	if len(positional) < 4 {
		fmt.Fprintln(os.Stderr, "usage: sgai-proxy <listen-addr> <listen-port> <master-playlist-url> <ad-server-endpoint> [flags]")
		os.Exit(2)
	}
	listenAddr, listenPort, masterURL, adServerEndpoint := positional[0], positional[1], positional[2], positional[3]

	cfg := config.LoadConfig()
	cfg.ListenAddr = fmt.Sprintf("%s:%s", listenAddr, listenPort)
	cfg.ForwardURL = masterURL
	cfg.AdServerEndpoint = adServerEndpoint
	cfg.InsertionMode = *insertionMode
	cfg.InterstitialsBase = *interstitialsBase
	cfg.BreakDuration = *defaultAdDuration
	cfg.BreakCycle = *defaultRepeatingCycle
	cfg.FixedBreakCount = *defaultAdNumber
	cfg.TestAssetURL = *testAssetURL
	config.ApplyFlags(cfg, cliFlags)

	log := logger.New(cfg.LogLevel)

	client := originclient.New(cfg, log)
	edges := liveedge.NewRegistry(5 * time.Minute)
	resolver := assetlist.New(cfg, client, log)

	var persisted *session.PersistedStore
	if cfg.PersistedSessionEndpoint != "" {
		secret := deriveSecret(cfg.PersistedSessionCredentials)
		var err error
		persisted, err = session.OpenPersisted(cfg.PersistedSessionEndpoint, secret, log)
		if err != nil {
			log.Error("failed to open persisted session store: %v", err)
			os.Exit(1)
		}
		defer persisted.Close()
	}
	sessions := session.New(persisted)

	maintenance, err := ants.NewPool(cfg.WorkerThreads, ants.WithPreAlloc(true))
	if err != nil {
		log.Error("failed to create worker pool: %v", err)
		os.Exit(1)
	}
	defer maintenance.Release()

	server := httpapi.New(cfg, log, client, edges, resolver, sessions)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := maintenance.Submit(server.GC); err != nil {
				log.Warn("maintenance sweep dropped: %v", err)
			}
		}
	}()

	log.Info("Starting SGAI Proxy %s", Version)
	log.Info("  - Listen: %s", cfg.ListenAddr)
	log.Info("  - Forward URL: %s", cfg.ForwardURL)
	log.Info("  - Ad server: %s (mode=%s)", cfg.AdServerEndpoint, cfg.AdServerMode)
	log.Info("  - Insertion mode: %s", cfg.InsertionMode)
	log.Info("  - Worker Threads: %d", cfg.WorkerThreads)
	log.Info("  - Persisted sessions: %v", cfg.PersistedSessionEndpoint != "")

	router := server.Routes()
	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		log.Error("server failed: %v", err)
		os.Exit(1)
	}
}

// deriveSecret turns the operator-supplied "user:pass"-style credentials
// string into the fixed-size key nacl/secretbox requires.
func deriveSecret(credentials string) *[32]byte {
	sum := sha256.Sum256([]byte(credentials))
	return &sum
}
