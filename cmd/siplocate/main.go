package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/looneyapurv/siplocate/internal/sip/common/log"
	"github.com/looneyapurv/siplocate/internal/sip/config"
	"github.com/looneyapurv/siplocate/internal/sip/domain"
	"github.com/looneyapurv/siplocate/internal/sip/gateways/dnslookup"
	"github.com/looneyapurv/siplocate/internal/sip/gateways/hostresolver"
	"github.com/looneyapurv/siplocate/internal/sip/services/locator"
)

const (
	version = "0.1.0-dev"
	appName = "siplocate"

	// upper bound for one whole resolution, covering the full
	// NAPTR/SRV/address fallback chain
	resolveTimeout = 30 * time.Second
)

// Exit codes: 0 all targets routed, 1 at least one target had no
// route, 2 usage or configuration error.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(2)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s uri [uri ...]\n", appName)
		os.Exit(2)
	}

	log.Debug("starting "+appName, log.Fields{
		"version":     version,
		"env":         cfg.Env,
		"dns_servers": cfg.DNSServers,
		"transports":  cfg.Transports,
	})

	loc, err := buildLocator(cfg)
	if err != nil {
		log.Fatal("failed to build locator", log.Fields{"error": err.Error()})
	}

	exit := 0
	for _, raw := range args {
		uri, err := domain.ParseTargetURI(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", raw, err)
			exit = 2
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		hops := loc.LocateHops(ctx, uri)
		cancel()

		if len(hops) == 0 {
			fmt.Printf("%s: no route\n", raw)
			if exit == 0 {
				exit = 1
			}
			continue
		}
		for _, line := range formatHops(raw, hops) {
			fmt.Println(line)
		}
	}
	os.Exit(exit)
}

// buildLocator wires the DNS and host resolver gateways into a Locator
// configured from the environment.
func buildLocator(cfg *config.AppConfig) (*locator.Locator, error) {
	dnsGateway, err := dnslookup.New(dnslookup.Options{
		Servers: cfg.DNSServers,
		Timeout: time.Duration(cfg.QueryTimeout) * time.Second,
		Logger:  log.GetLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build DNS gateway: %w", err)
	}

	loc := locator.New(locator.Options{
		DNS:                 dnsGateway,
		Addresses:           hostresolver.New(),
		SupportedTransports: cfg.Transports,
		Logger:              log.GetLogger(),
	})
	for _, name := range cfg.LocalHostnames {
		loc.AddLocalHostname(name)
	}
	return loc, nil
}

// formatHops renders one numbered line per hop in attempt order.
func formatHops(target string, hops []domain.Hop) []string {
	lines := make([]string, 0, len(hops))
	for i, hop := range hops {
		lines = append(lines, fmt.Sprintf("%s: %d. %s", target, i+1, hop))
	}
	return lines
}
