package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/ledger"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		key        = flag.String("key", "", "optional MRN or order number to look up")
		kind       = flag.String("kind", "patient", "record kind for --key: patient or order")
		timeout    = flag.Duration("timeout", 3*time.Second, "ping timeout")
	)
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := ledger.Open(ctx, cfg.Ledger, nil)
	if err != nil {
		log.Fatalf("opening %s ledger: %v", cfg.Ledger.Driver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("ERROR: closing ledger: %v", err)
		}
	}()

	if err := ledger.HealthCheck(ctx, store, *timeout, nil); err != nil {
		log.Fatalf("ledger health: FAIL (%v)", err)
	}
	log.Printf("ledger health: OK (%s)", cfg.Ledger.Driver)

	if *key == "" {
		return
	}
	k, ok := constants.ParseKind(*kind)
	if !ok {
		log.Fatalf("unknown kind %q", *kind)
	}
	prior, err := store.Lookup(ctx, k, *key)
	if err != nil {
		log.Fatalf("lookup %s: %v", *key, err)
	}
	if prior == nil {
		log.Printf("%s %s: not seen", k, *key)
		return
	}
	log.Printf("%s %s: %s external_id=%s doc_id=%s at %s",
		k, *key, prior.Status, prior.ExternalID, prior.DocID, prior.RecordedAt.Format(time.RFC3339))
}
